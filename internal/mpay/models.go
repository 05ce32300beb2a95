package mpay

import (
	"context"

	"kyri56xcaesar/teamup/internal/ledger"
)

const (
	orderPrefix   = "dummy_order_"
	paymentPrefix = "dummy_payment_"
)

// Repository persists payment records.
type Repository interface {
	CreatePayment(ctx context.Context, p *ledger.PaymentRecord) error
	GetPayment(ctx context.Context, reference string) (*ledger.PaymentRecord, error)
	FindPendingPayment(ctx context.Context, teamID, userID string) (*ledger.PaymentRecord, error)
	// TransitionPayment moves reference from one status to another and
	// reports whether a row matched.
	TransitionPayment(ctx context.Context, reference string, from, to ledger.PaymentStatus, gatewayRef string) (bool, error)
	ListPaymentsByUser(ctx context.Context, userID string, limit int) ([]ledger.PaymentRecord, error)
}

func normalizeLimit(n int) int {
	if n <= 0 {
		return 50
	}
	if n > 200 {
		return 200
	}
	return n
}
