package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"pixgate/internal/domain"
	"pixgate/pkg/circuitbreaker"
	"pixgate/pkg/logger"
	"pixgate/pkg/metrics"
)

var oneHundred = decimal.NewFromInt(100)

// CommissionService pays out the manager commission (deposits only), the
// affiliate commission and the merchant split for successfully settled
// transactions. Each step runs under its own savepoint; a step failure rolls
// back and logs that step only, the settlement still commits.
type CommissionService struct {
	commissionRepo domain.CommissionRepository
	ledger         domain.LedgerService
	uow            domain.UnitOfWork
	splitPayer     domain.SplitPayer
	splitBreaker   *circuitbreaker.CircuitBreaker
	logger         logger.Logger
}

func NewCommissionService(
	commissionRepo domain.CommissionRepository,
	ledger domain.LedgerService,
	uow domain.UnitOfWork,
	splitPayer domain.SplitPayer,
	logger logger.Logger,
) domain.CommissionDistributor {
	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name: "split-payer",
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			logger.Warn("Devre kesici durum değiştirdi", map[string]interface{}{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})

	return &CommissionService{
		commissionRepo: commissionRepo,
		ledger:         ledger,
		uow:            uow,
		splitPayer:     splitPayer,
		splitBreaker:   breaker,
		logger:         logger,
	}
}

func (s *CommissionService) DistributeForDeposit(ctx context.Context, tx *sql.Tx, deposit *domain.DepositRequest, owner *domain.User, locked map[int64]*domain.User) (*domain.SplitPayout, error) {
	s.distributeManager(ctx, tx, owner, locked, deposit.ID, deposit.Fee(), deposit.Amount)
	s.distributeAffiliate(ctx, tx, owner, locked, domain.CommissionCashIn, domain.KindDeposit, deposit.ID, deposit.AffiliateCommission, deposit.Amount)

	if deposit.HasSplit() {
		return s.prepareSplit(ctx, tx, owner, deposit), nil
	}

	return nil, nil
}

// DistributeForWithdrawal pays the affiliate commission only; the manager cut
// applies to deposits.
func (s *CommissionService) DistributeForWithdrawal(ctx context.Context, tx *sql.Tx, withdrawal *domain.WithdrawalRequest, owner *domain.User, locked map[int64]*domain.User) error {
	s.distributeAffiliate(ctx, tx, owner, locked, domain.CommissionCashOut, domain.KindWithdrawal, withdrawal.ID, withdrawal.AffiliateCommission, withdrawal.Amount)
	return nil
}

// distributeManager pays the manager a percentage of the deposit fee into
// their main balance.
func (s *CommissionService) distributeManager(
	ctx context.Context,
	tx *sql.Tx,
	owner *domain.User,
	locked map[int64]*domain.User,
	depositID int64,
	fee decimal.Decimal,
	transactionAmount decimal.Decimal,
) {
	if owner.ManagerID == nil || !owner.ManagerCommissionPercent.IsPositive() || !fee.IsPositive() {
		return
	}

	managerID := *owner.ManagerID
	if _, ok := locked[managerID]; !ok {
		s.logger.Warn("Yönetici satırı kilitli değil, komisyon atlandı", map[string]interface{}{
			"manager_id":     managerID,
			"transaction_id": depositID,
		})
		return
	}

	amount := fee.Mul(owner.ManagerCommissionPercent).Div(oneHundred).Round(2)
	if !amount.IsPositive() {
		return
	}

	err := s.uow.WithinSavepoint(ctx, tx, "manager_commission", func() error {
		return s.payCommission(ctx, tx, owner.ID, managerID, depositID, domain.CommissionCashIn, domain.KindDeposit, domain.FieldBalance, amount, transactionAmount)
	})
	s.report(err, "manager", domain.CommissionCashIn, managerID, depositID, amount)
}

// distributeAffiliate pays the fixed amount into the affiliate parent's
// affiliate balance.
func (s *CommissionService) distributeAffiliate(
	ctx context.Context,
	tx *sql.Tx,
	owner *domain.User,
	locked map[int64]*domain.User,
	commissionType domain.CommissionType,
	kind domain.TransactionKind,
	transactionID int64,
	amount decimal.Decimal,
	transactionAmount decimal.Decimal,
) {
	if owner.AffiliateParentID == nil || !amount.IsPositive() {
		return
	}

	parentID := *owner.AffiliateParentID
	if _, ok := locked[parentID]; !ok {
		s.logger.Warn("Affiliate satırı kilitli değil, komisyon atlandı", map[string]interface{}{
			"affiliate_id":   parentID,
			"transaction_id": transactionID,
		})
		return
	}

	err := s.uow.WithinSavepoint(ctx, tx, "affiliate_commission", func() error {
		return s.payCommission(ctx, tx, owner.ID, parentID, transactionID, commissionType, kind, domain.FieldAffiliateBalance, amount, transactionAmount)
	})
	s.report(err, "affiliate", commissionType, parentID, transactionID, amount)
}

// prepareSplit opens the merchant split record inside the settlement
// transaction without touching the network; the record commits with the
// settlement, so an attempted payout is always on file. The existence check
// prevents a duplicate payment after a half-finished attempt.
func (s *CommissionService) prepareSplit(ctx context.Context, tx *sql.Tx, owner *domain.User, deposit *domain.DepositRequest) *domain.SplitPayout {
	amount := deposit.Amount.Mul(deposit.SplitPercentage).Div(oneHundred).Round(2)
	if !amount.IsPositive() {
		return nil
	}

	var payout *domain.SplitPayout
	err := s.uow.WithinSavepoint(ctx, tx, "merchant_split", func() error {
		exists, err := s.commissionRepo.Exists(ctx, tx, owner.ID, deposit.ID, domain.CommissionCashIn)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		record := &domain.CommissionRecord{
			UserID:               owner.ID,
			BeneficiaryID:        owner.ID,
			TransactionType:      domain.CommissionCashIn,
			RelatedTransactionID: deposit.ID,
			CommissionValue:      amount,
			TransactionAmount:    deposit.Amount,
		}
		if err := s.commissionRepo.Create(ctx, tx, record); err != nil {
			return err
		}

		payout = &domain.SplitPayout{
			RecordID:      record.ID,
			OwnerID:       owner.ID,
			Recipient:     *deposit.SplitRecipient,
			Amount:        amount,
			TransactionID: deposit.ID,
		}
		return nil
	})
	if err != nil {
		s.report(err, "split", domain.CommissionCashIn, owner.ID, deposit.ID, amount)
		return nil
	}

	return payout
}

// PaySplit runs the external transfer behind the circuit breaker, after the
// settlement has committed and every row lock is released. A failed transfer
// leaves the record pending as the trace of the attempt.
func (s *CommissionService) PaySplit(ctx context.Context, payout *domain.SplitPayout) {
	err := s.splitBreaker.Execute(func() error {
		return s.splitPayer.Pay(ctx, payout.Recipient, payout.Amount, payout.TransactionID)
	})
	if err != nil {
		s.report(fmt.Errorf("split ödemesi gönderilemedi: %w", err), "split", domain.CommissionCashIn, payout.OwnerID, payout.TransactionID, payout.Amount)
		return
	}

	err = s.uow.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.commissionRepo.MarkPaid(ctx, tx, payout.RecordID)
	})
	s.report(err, "split", domain.CommissionCashIn, payout.OwnerID, payout.TransactionID, payout.Amount)
}

// payCommission applies a single commission step: opens the record when
// absent, credits the beneficiary's balance and flips the record to paid.
func (s *CommissionService) payCommission(
	ctx context.Context,
	tx *sql.Tx,
	ownerID, beneficiaryID, transactionID int64,
	commissionType domain.CommissionType,
	kind domain.TransactionKind,
	field domain.BalanceField,
	amount decimal.Decimal,
	transactionAmount decimal.Decimal,
) error {
	exists, err := s.commissionRepo.Exists(ctx, tx, beneficiaryID, transactionID, commissionType)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	record := &domain.CommissionRecord{
		UserID:               ownerID,
		BeneficiaryID:        beneficiaryID,
		TransactionType:      commissionType,
		RelatedTransactionID: transactionID,
		CommissionValue:      amount,
		TransactionAmount:    transactionAmount,
	}
	if err := s.commissionRepo.Create(ctx, tx, record); err != nil {
		return err
	}

	if _, err := s.ledger.Credit(ctx, tx, domain.LedgerMutation{
		UserID:               beneficiaryID,
		Field:                field,
		EventType:            domain.EventPaymentReceived,
		TransactionKind:      kind,
		RelatedTransactionID: transactionID,
		Metadata: map[string]interface{}{
			"commission_type": string(commissionType),
			"source_user_id":  ownerID,
		},
	}, amount); err != nil {
		return err
	}

	return s.commissionRepo.MarkPaid(ctx, tx, record.ID)
}

func (s *CommissionService) report(err error, step string, commissionType domain.CommissionType, beneficiaryID, transactionID int64, amount decimal.Decimal) {
	if err != nil {
		s.logger.Error("Komisyon adımı başarısız, settlement etkilenmedi", map[string]interface{}{
			"step":           step,
			"beneficiary_id": beneficiaryID,
			"transaction_id": transactionID,
			"amount":         amount.String(),
			"error":          err.Error(),
		})
		metrics.RecordCommission(string(commissionType), "failure")
		return
	}

	metrics.RecordCommission(string(commissionType), "success")
}
