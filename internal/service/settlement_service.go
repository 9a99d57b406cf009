package service

import (
	"context"
	"database/sql"
	"time"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
	"pixgate/pkg/metrics"
	"pixgate/pkg/tracing"
)

// DefaultSettlementService applies normalized settlement events. All writes
// run inside the single transaction opened by the webhook guard; row locks are
// taken on the transaction record first, then on user rows in ascending id
// order.
type DefaultSettlementService struct {
	guard          domain.WebhookGuard
	depositRepo    domain.DepositRepository
	withdrawalRepo domain.WithdrawalRepository
	userRepo       domain.UserRepository
	ledger         domain.LedgerService
	distributor    domain.CommissionDistributor
	events         domain.PaymentEventService
	dispatcher     domain.CallbackDispatcher
	logger         logger.Logger
}

func NewSettlementService(
	guard domain.WebhookGuard,
	depositRepo domain.DepositRepository,
	withdrawalRepo domain.WithdrawalRepository,
	userRepo domain.UserRepository,
	ledger domain.LedgerService,
	distributor domain.CommissionDistributor,
	events domain.PaymentEventService,
	dispatcher domain.CallbackDispatcher,
	logger logger.Logger,
) domain.SettlementService {
	return &DefaultSettlementService{
		guard:          guard,
		depositRepo:    depositRepo,
		withdrawalRepo: withdrawalRepo,
		userRepo:       userRepo,
		ledger:         ledger,
		distributor:    distributor,
		events:         events,
		dispatcher:     dispatcher,
		logger:         logger,
	}
}

// settlementResult accumulates, inside the transaction, the work to be done
// after commit.
type settlementResult struct {
	touchedUsers []int64
	notification *domain.CallbackNotification
	split        *domain.SplitPayout
}

func (s *DefaultSettlementService) ProcessSettlement(ctx context.Context, event *domain.SettlementEvent) error {
	ctx, span := tracing.StartSpan(ctx, "settlement.process")
	defer span.End()

	if err := event.Validate(); err != nil {
		return err
	}

	start := time.Now()
	result := &settlementResult{}

	err := s.guard.Execute(ctx, event, func(tx *sql.Tx) error {
		switch event.Direction {
		case domain.DirectionDeposit:
			return s.settleDeposit(ctx, tx, event, result)
		default:
			return s.settleWithdrawal(ctx, tx, event, result)
		}
	})

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.RecordSettlement(string(event.Direction), outcome, time.Since(start))

	if err != nil {
		return err
	}

	// Side effects only after commit: split payout, callback queue and cache
	// invalidation.
	if result.split != nil {
		s.distributor.PaySplit(ctx, result.split)
	}
	if result.notification != nil && result.notification.URL != "" {
		s.dispatcher.EnqueueCallback(ctx, result.notification)
	}
	if len(result.touchedUsers) > 0 {
		s.events.InvalidateUsers(ctx, result.touchedUsers...)
	}

	return nil
}

func (s *DefaultSettlementService) settleDeposit(ctx context.Context, tx *sql.Tx, event *domain.SettlementEvent, result *settlementResult) error {
	deposit, err := s.depositRepo.FindByExternalIDForUpdate(ctx, tx, event.Acquirer, event.ExternalTransactionID)
	if err != nil {
		return err
	}

	if event.Outcome != domain.OutcomeSuccess {
		return s.rejectDeposit(ctx, tx, event, deposit, result)
	}

	if deposit.IsTerminal() {
		// A PAID_OUT replay is an idempotent success; a late success event can
		// never revive a cancelled record.
		if deposit.Status != domain.DepositStatusPaidOut {
			s.logger.Warn("Nihai durumdaki yatırma için success eventi yoksayıldı", map[string]interface{}{
				"deposit_id": deposit.ID,
				"status":     string(deposit.Status),
			})
		}
		return nil
	}

	if !event.Amount.IsZero() && !event.Amount.Equal(deposit.Amount) {
		s.logger.Warn("Event tutarı kayıtla uyuşmuyor", map[string]interface{}{
			"deposit_id":   deposit.ID,
			"event_amount": event.Amount.String(),
			"amount":       deposit.Amount.String(),
		})
	}

	locked, owner, err := s.lockParticipants(ctx, tx, deposit.UserID)
	if err != nil {
		return err
	}

	ok, err := s.depositRepo.TransitionStatus(ctx, tx, deposit.ID, domain.DepositStatusWaitingForApproval, domain.DepositStatusPaidOut)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if _, err := s.ledger.Credit(ctx, tx, domain.LedgerMutation{
		UserID:               owner.ID,
		Field:                domain.FieldBalance,
		EventType:            domain.EventPaymentReceived,
		TransactionKind:      domain.KindDeposit,
		RelatedTransactionID: deposit.ID,
		Metadata: map[string]interface{}{
			"acquirer":    event.Acquirer,
			"external_id": event.ExternalTransactionID,
		},
	}, deposit.NetAmount); err != nil {
		return err
	}

	split, err := s.distributor.DistributeForDeposit(ctx, tx, deposit, owner, locked)
	if err != nil {
		return err
	}
	result.split = split

	s.logger.Info("Yatırma işlemi tamamlandı", map[string]interface{}{
		"deposit_id": deposit.ID,
		"user_id":    owner.ID,
		"net_amount": deposit.NetAmount.String(),
	})

	result.touchedUsers = lockedIDs(locked)
	result.notification = &domain.CallbackNotification{
		URL:             deposit.CallbackURL,
		TransactionID:   deposit.ID,
		TransactionKind: domain.KindDeposit,
		Status:          string(domain.DepositStatusPaidOut),
		Amount:          deposit.NetAmount,
	}
	return nil
}

func (s *DefaultSettlementService) rejectDeposit(ctx context.Context, tx *sql.Tx, event *domain.SettlementEvent, deposit *domain.DepositRequest, result *settlementResult) error {
	target := domain.DepositStatusRejected
	if event.Outcome == domain.OutcomeCancelled {
		target = domain.DepositStatusCancelled
	}

	if deposit.IsTerminal() {
		return nil
	}

	ok, err := s.depositRepo.TransitionStatus(ctx, tx, deposit.ID, domain.DepositStatusWaitingForApproval, target)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.logger.Info("Yatırma işlemi sonlandırıldı", map[string]interface{}{
		"deposit_id": deposit.ID,
		"status":     string(target),
	})

	result.notification = &domain.CallbackNotification{
		URL:             deposit.CallbackURL,
		TransactionID:   deposit.ID,
		TransactionKind: domain.KindDeposit,
		Status:          string(target),
		Amount:          deposit.Amount,
	}
	return nil
}

func (s *DefaultSettlementService) settleWithdrawal(ctx context.Context, tx *sql.Tx, event *domain.SettlementEvent, result *settlementResult) error {
	withdrawal, err := s.withdrawalRepo.FindByExternalIDForUpdate(ctx, tx, event.Acquirer, event.ExternalTransactionID)
	if err != nil {
		return err
	}

	if event.Outcome != domain.OutcomeSuccess {
		return s.reverseWithdrawal(ctx, tx, event, withdrawal, result)
	}

	if withdrawal.IsTerminal() {
		if !withdrawal.IsPaidOut() {
			s.logger.Warn("Nihai durumdaki çekme için success eventi yoksayıldı", map[string]interface{}{
				"withdrawal_id": withdrawal.ID,
				"status":        string(withdrawal.Status),
			})
		}
		return nil
	}

	locked, owner, err := s.lockParticipants(ctx, tx, withdrawal.UserID)
	if err != nil {
		return err
	}

	ok, err := s.withdrawalRepo.TransitionStatus(ctx, tx, withdrawal.ID, domain.WithdrawalStatusPending, domain.WithdrawalStatusPaidOut)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	// When the balance was not debited earlier it is debited now and the
	// amount recorded; a potential refund will use exactly this amount.
	if withdrawal.DebitedAmount.IsZero() {
		if _, err := s.ledger.Debit(ctx, tx, domain.LedgerMutation{
			UserID:               owner.ID,
			Field:                domain.FieldBalance,
			EventType:            domain.EventPaymentSent,
			TransactionKind:      domain.KindWithdrawal,
			RelatedTransactionID: withdrawal.ID,
			Metadata: map[string]interface{}{
				"executor":    event.Acquirer,
				"external_id": event.ExternalTransactionID,
			},
		}, withdrawal.Amount); err != nil {
			return err
		}

		if err := s.withdrawalRepo.SetDebitedAmount(ctx, tx, withdrawal.ID, withdrawal.Amount); err != nil {
			return err
		}
		withdrawal.DebitedAmount = withdrawal.Amount
	}

	if err := s.distributor.DistributeForWithdrawal(ctx, tx, withdrawal, owner, locked); err != nil {
		return err
	}

	s.logger.Info("Çekme işlemi tamamlandı", map[string]interface{}{
		"withdrawal_id": withdrawal.ID,
		"user_id":       owner.ID,
		"amount":        withdrawal.Amount.String(),
	})

	result.touchedUsers = lockedIDs(locked)
	result.notification = &domain.CallbackNotification{
		URL:             withdrawal.CallbackURL,
		TransactionID:   withdrawal.ID,
		TransactionKind: domain.KindWithdrawal,
		Status:          string(domain.WithdrawalStatusPaidOut),
		Amount:          withdrawal.NetAmount,
	}
	return nil
}

func (s *DefaultSettlementService) reverseWithdrawal(ctx context.Context, tx *sql.Tx, event *domain.SettlementEvent, withdrawal *domain.WithdrawalRequest, result *settlementResult) error {
	target := domain.WithdrawalStatusRejected
	if event.Outcome == domain.OutcomeCancelled {
		target = domain.WithdrawalStatusCancelled
	}

	// PAID_OUT is final; a late reject event never re-credits a withdrawal
	// that was already paid out.
	if withdrawal.IsPaidOut() {
		s.logger.Warn("Ödenmiş çekme için ret eventi yoksayıldı", map[string]interface{}{
			"withdrawal_id": withdrawal.ID,
			"outcome":       string(event.Outcome),
		})
		return nil
	}
	if withdrawal.IsTerminal() {
		return nil
	}

	ok, err := s.withdrawalRepo.TransitionStatus(ctx, tx, withdrawal.ID, domain.WithdrawalStatusPending, target)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	// The refund equals the amount actually debited from the balance; when
	// nothing was debited only the status transition remains.
	if withdrawal.DebitedAmount.IsPositive() {
		locked, owner, err := s.lockParticipants(ctx, tx, withdrawal.UserID)
		if err != nil {
			return err
		}

		if _, err := s.ledger.Credit(ctx, tx, domain.LedgerMutation{
			UserID:               owner.ID,
			Field:                domain.FieldBalance,
			EventType:            domain.EventPaymentReversed,
			TransactionKind:      domain.KindWithdrawal,
			RelatedTransactionID: withdrawal.ID,
			Metadata: map[string]interface{}{
				"executor": event.Acquirer,
				"reason":   string(event.Outcome),
			},
		}, withdrawal.DebitedAmount); err != nil {
			return err
		}

		result.touchedUsers = lockedIDs(locked)
	}

	s.logger.Info("Çekme işlemi sonlandırıldı", map[string]interface{}{
		"withdrawal_id": withdrawal.ID,
		"status":        string(target),
		"refunded":      withdrawal.DebitedAmount.String(),
	})

	result.notification = &domain.CallbackNotification{
		URL:             withdrawal.CallbackURL,
		TransactionID:   withdrawal.ID,
		TransactionKind: domain.KindWithdrawal,
		Status:          string(target),
		Amount:          withdrawal.Amount,
	}
	return nil
}

// lockParticipants locks the transaction owner and the commission
// beneficiaries in one pass, in ascending id order.
func (s *DefaultSettlementService) lockParticipants(ctx context.Context, tx *sql.Tx, ownerID int64) (map[int64]*domain.User, *domain.User, error) {
	preview, err := s.userRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}

	ids := []int64{ownerID}
	if preview.ManagerID != nil {
		ids = append(ids, *preview.ManagerID)
	}
	if preview.AffiliateParentID != nil {
		ids = append(ids, *preview.AffiliateParentID)
	}

	locked, err := s.userRepo.LockForUpdate(ctx, tx, ids...)
	if err != nil {
		return nil, nil, err
	}

	owner, ok := locked[ownerID]
	if !ok {
		return nil, nil, domain.ErrUserNotFound
	}

	return locked, owner, nil
}

func lockedIDs(locked map[int64]*domain.User) []int64 {
	ids := make([]int64, 0, len(locked))
	for id := range locked {
		ids = append(ids, id)
	}
	return ids
}
