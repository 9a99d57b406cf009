package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.New(logger.ErrorLevel, io.Discard)
}

type fakeUnitOfWork struct {
	mu        sync.Mutex
	txCount   int
	failTx    error
	savepoint int
}

func (u *fakeUnitOfWork) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	u.mu.Lock()
	u.txCount++
	failTx := u.failTx
	u.mu.Unlock()

	if failTx != nil {
		return failTx
	}
	return fn(nil)
}

func (u *fakeUnitOfWork) WithinSavepoint(ctx context.Context, tx *sql.Tx, name string, fn func() error) error {
	u.mu.Lock()
	u.savepoint++
	u.mu.Unlock()
	return fn()
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int64]*domain.User
	// lockOrder records the id batches LockForUpdate was asked to lock.
	lockOrder [][]int64
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[int64]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) LockForUpdate(ctx context.Context, tx *sql.Tx, ids ...int64) (map[int64]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	requested := append([]int64(nil), ids...)
	r.lockOrder = append(r.lockOrder, requested)

	locked := make(map[int64]*domain.User, len(requested))
	for _, id := range requested {
		user, ok := r.users[id]
		if !ok {
			return nil, domain.ErrUserNotFound
		}
		copied := *user
		locked[id] = &copied
	}
	return locked, nil
}

func (r *fakeUserRepo) AddToBalance(ctx context.Context, tx *sql.Tx, userID int64, delta decimal.Decimal, field domain.BalanceField) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return decimal.Zero, domain.ErrUserNotFound
	}

	switch field {
	case domain.FieldBalance:
		after := user.Balance.Add(delta)
		if after.IsNegative() {
			return decimal.Zero, domain.ErrInsufficientFunds
		}
		user.Balance = after
		return after, nil
	case domain.FieldAffiliateBalance:
		after := user.AffiliateBalance.Add(delta)
		if after.IsNegative() {
			return decimal.Zero, domain.ErrInsufficientFunds
		}
		user.AffiliateBalance = after
		return after, nil
	default:
		return decimal.Zero, fmt.Errorf("geçersiz bakiye alanı: %s", field)
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) balance(id int64) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].Balance
}

func (r *fakeUserRepo) affiliateBalance(id int64) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].AffiliateBalance
}

type fakeDepositRepo struct {
	mu       sync.Mutex
	deposits map[int64]*domain.DepositRequest
}

func newFakeDepositRepo(deposits ...*domain.DepositRequest) *fakeDepositRepo {
	repo := &fakeDepositRepo{deposits: make(map[int64]*domain.DepositRequest)}
	for _, d := range deposits {
		repo.deposits[d.ID] = d
	}
	return repo
}

func (r *fakeDepositRepo) FindByID(ctx context.Context, id int64) (*domain.DepositRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.deposits[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *fakeDepositRepo) FindByExternalIDForUpdate(ctx context.Context, tx *sql.Tx, acquirer, externalID string) (*domain.DepositRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.deposits {
		if d.AcquirerRef == acquirer && d.ExternalTransactionID == externalID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *fakeDepositRepo) TransitionStatus(ctx context.Context, tx *sql.Tx, id int64, from, to domain.DepositStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.deposits[id]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = to
	return true, nil
}

func (r *fakeDepositRepo) Create(ctx context.Context, deposit *domain.DepositRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deposits[deposit.ID] = deposit
	return nil
}

func (r *fakeDepositRepo) status(id int64) domain.DepositStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deposits[id].Status
}

type fakeWithdrawalRepo struct {
	mu          sync.Mutex
	withdrawals map[int64]*domain.WithdrawalRequest
}

func newFakeWithdrawalRepo(withdrawals ...*domain.WithdrawalRequest) *fakeWithdrawalRepo {
	repo := &fakeWithdrawalRepo{withdrawals: make(map[int64]*domain.WithdrawalRequest)}
	for _, w := range withdrawals {
		repo.withdrawals[w.ID] = w
	}
	return repo
}

func (r *fakeWithdrawalRepo) FindByID(ctx context.Context, id int64) (*domain.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.withdrawals[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	copied := *w
	return &copied, nil
}

func (r *fakeWithdrawalRepo) FindByExternalIDForUpdate(ctx context.Context, tx *sql.Tx, executor, externalID string) (*domain.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.withdrawals {
		if w.ExecutorRef == executor && w.ExternalTransactionID == externalID {
			copied := *w
			return &copied, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (r *fakeWithdrawalRepo) TransitionStatus(ctx context.Context, tx *sql.Tx, id int64, from, to domain.WithdrawalStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.withdrawals[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	return true, nil
}

func (r *fakeWithdrawalRepo) SetDebitedAmount(ctx context.Context, tx *sql.Tx, id int64, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.withdrawals[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	w.DebitedAmount = amount
	return nil
}

func (r *fakeWithdrawalRepo) Create(ctx context.Context, withdrawal *domain.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdrawals[withdrawal.ID] = withdrawal
	return nil
}

func (r *fakeWithdrawalRepo) get(id int64) domain.WithdrawalRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.withdrawals[id]
}

type fakeWebhookLogRepo struct {
	mu   sync.Mutex
	logs map[string]*domain.WebhookLog
}

func newFakeWebhookLogRepo() *fakeWebhookLogRepo {
	return &fakeWebhookLogRepo{logs: make(map[string]*domain.WebhookLog)}
}

func (r *fakeWebhookLogRepo) FindByKey(ctx context.Context, key string) (*domain.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	copied := *log
	return &copied, nil
}

func (r *fakeWebhookLogRepo) Reserve(ctx context.Context, log *domain.WebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.logs[log.IdempotencyKey]; ok {
		return domain.ErrDuplicateWebhook
	}
	log.Status = domain.WebhookStatusProcessing
	log.CreatedAt = time.Now()
	copied := *log
	r.logs[log.IdempotencyKey] = &copied
	return nil
}

func (r *fakeWebhookLogRepo) MarkProcessed(ctx context.Context, tx *sql.Tx, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log, ok := r.logs[key]; ok {
		log.Status = domain.WebhookStatusProcessed
		log.Error = nil
	}
	return nil
}

func (r *fakeWebhookLogRepo) MarkFailed(ctx context.Context, key, cause string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log, ok := r.logs[key]; ok {
		log.Status = domain.WebhookStatusFailed
		log.Error = &cause
	}
	return nil
}

func (r *fakeWebhookLogRepo) status(key string) domain.WebhookStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logs[key].Status
}

type fakePaymentEventRepo struct {
	mu     sync.Mutex
	nextID int64
	events []*domain.PaymentEvent
}

func newFakePaymentEventRepo() *fakePaymentEventRepo {
	return &fakePaymentEventRepo{}
}

func (r *fakePaymentEventRepo) Append(ctx context.Context, tx *sql.Tx, event *domain.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	event.ID = r.nextID
	event.CreatedAt = time.Now()
	copied := *event
	r.events = append(r.events, &copied)
	return nil
}

func (r *fakePaymentEventRepo) FindByUser(ctx context.Context, userID int64, from *time.Time, limit int) ([]*domain.PaymentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.PaymentEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		e := r.events[i]
		if e.UserID != userID {
			continue
		}
		if from != nil && e.CreatedAt.Before(*from) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakePaymentEventRepo) SumBalance(ctx context.Context, userID int64, from *time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := decimal.Zero
	for _, e := range r.events {
		if e.UserID != userID || e.BalanceField != domain.FieldBalance {
			continue
		}
		if from != nil && e.CreatedAt.Before(*from) {
			continue
		}
		if e.AmountCredited != nil {
			sum = sum.Add(*e.AmountCredited)
		}
		if e.AmountDebited != nil {
			sum = sum.Sub(*e.AmountDebited)
		}
	}
	return sum, nil
}

func (r *fakePaymentEventRepo) eventsFor(userID int64) []*domain.PaymentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.PaymentEvent
	for _, e := range r.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type fakeCommissionRepo struct {
	mu      sync.Mutex
	nextID  int64
	records []*domain.CommissionRecord
}

func newFakeCommissionRepo() *fakeCommissionRepo {
	return &fakeCommissionRepo{}
}

func (r *fakeCommissionRepo) Exists(ctx context.Context, tx *sql.Tx, beneficiaryID, relatedTransactionID int64, commissionType domain.CommissionType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.BeneficiaryID == beneficiaryID && rec.RelatedTransactionID == relatedTransactionID && rec.TransactionType == commissionType {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCommissionRepo) Create(ctx context.Context, tx *sql.Tx, record *domain.CommissionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	record.ID = r.nextID
	record.Status = domain.CommissionStatusPending
	copied := *record
	r.records = append(r.records, &copied)
	return nil
}

func (r *fakeCommissionRepo) MarkPaid(ctx context.Context, tx *sql.Tx, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.ID == id {
			rec.Status = domain.CommissionStatusPaid
		}
	}
	return nil
}

func (r *fakeCommissionRepo) all() []*domain.CommissionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.CommissionRecord(nil), r.records...)
}

type fakeDispatcher struct {
	mu            sync.Mutex
	notifications []*domain.CallbackNotification
}

func (d *fakeDispatcher) EnqueueCallback(ctx context.Context, notification *domain.CallbackNotification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, notification)
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notifications)
}

type fakeSplitPayer struct {
	mu       sync.Mutex
	payments []decimal.Decimal
	err      error
	onPay    func()
}

func (p *fakeSplitPayer) Pay(ctx context.Context, recipient string, amount decimal.Decimal, relatedTransactionID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.onPay != nil {
		p.onPay()
	}
	if p.err != nil {
		return p.err
	}
	p.payments = append(p.payments, amount)
	return nil
}
