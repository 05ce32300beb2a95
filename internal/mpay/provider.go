package mpay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kyri56xcaesar/teamup/internal/ledger"
)

var _ ledger.PaymentProvider = (*Dummy)(nil)

// Dummy is a simulated gateway: orders are issued locally and every
// confirmation succeeds. Records still go through Repository so settlement
// stays transactional with the rest of the ledger.
type Dummy struct {
	repo     Repository
	currency string
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewDummy(repo Repository, currency string, logger *zap.SugaredLogger) *Dummy {
	if currency == "" {
		currency = "INR"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dummy{
		repo:     repo,
		currency: currency,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreatePendingPayment returns the open order for the seat if one exists,
// otherwise issues a new one. Slot prices are immutable so a reused order
// always carries the right amount.
func (d *Dummy) CreatePendingPayment(ctx context.Context, userID, teamID string, amount int64) (*ledger.PaymentRecord, error) {
	existing, err := d.repo.FindPendingPayment(ctx, teamID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ledger.ErrPaymentNotFound) {
		return nil, err
	}

	now := d.now()
	p := &ledger.PaymentRecord{
		Reference: orderPrefix + uuid.NewString(),
		UserID:    userID,
		TeamID:    teamID,
		Amount:    amount,
		Currency:  d.currency,
		Status:    ledger.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.repo.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	d.logger.Debugw("order issued", "reference", p.Reference, "team", teamID, "user", userID, "amount", amount)
	return p, nil
}

func (d *Dummy) Confirm(ctx context.Context, reference string) (*ledger.PaymentRecord, error) {
	if reference == "" {
		return nil, ledger.ErrPaymentNotFound
	}
	return d.repo.GetPayment(ctx, reference)
}

func (d *Dummy) MarkCompleted(ctx context.Context, reference string) error {
	ok, err := d.repo.TransitionPayment(ctx, reference, ledger.PaymentPending, ledger.PaymentCompleted, paymentPrefix+uuid.NewString())
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrAlreadySettled
	}
	return nil
}

func (d *Dummy) Refund(ctx context.Context, reference string) error {
	ok, err := d.repo.TransitionPayment(ctx, reference, ledger.PaymentCompleted, ledger.PaymentRefunded, "")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("refund %s: %w", reference, ledger.ErrInvalidState)
	}
	d.logger.Debugw("payment refunded", "reference", reference)
	return nil
}

func (d *Dummy) History(ctx context.Context, userID string, limit int) ([]ledger.PaymentRecord, error) {
	return d.repo.ListPaymentsByUser(ctx, userID, normalizeLimit(limit))
}
