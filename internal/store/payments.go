package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kyri56xcaesar/teamup/internal/ledger"
)

const paymentColumns = `
	p.reference, COALESCE(p.gateway_ref, ''), p.user_id, p.team_id, COALESCE(t.name, ''),
	p.amount, p.currency, p.status, p.created_at, p.updated_at`

func scanPayment(row pgx.Row) (*ledger.PaymentRecord, error) {
	var (
		p      ledger.PaymentRecord
		status string
	)
	if err := row.Scan(
		&p.Reference,
		&p.GatewayRef,
		&p.UserID,
		&p.TeamID,
		&p.TeamName,
		&p.Amount,
		&p.Currency,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = ledger.PaymentStatus(status)
	return &p, nil
}

func (s *Store) CreatePayment(ctx context.Context, p *ledger.PaymentRecord) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO payments (reference, user_id, team_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.Reference, p.UserID, p.TeamID, p.Amount, p.Currency, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetPayment locks the payment row inside a transaction.
func (s *Store) GetPayment(ctx context.Context, reference string) (*ledger.PaymentRecord, error) {
	query := `SELECT` + paymentColumns + `
		FROM payments p LEFT JOIN teams t ON t.id = p.team_id
		WHERE p.reference = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE OF p`
	}

	p, err := scanPayment(s.q(ctx).QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (s *Store) FindPendingPayment(ctx context.Context, teamID, userID string) (*ledger.PaymentRecord, error) {
	p, err := scanPayment(s.q(ctx).QueryRow(ctx, `SELECT`+paymentColumns+`
		FROM payments p LEFT JOIN teams t ON t.id = p.team_id
		WHERE p.team_id = $1 AND p.user_id = $2 AND p.status = 'pending'
		ORDER BY p.created_at DESC
		LIMIT 1
	`, teamID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("find pending payment: %w", err)
	}
	return p, nil
}

func (s *Store) TransitionPayment(ctx context.Context, reference string, from, to ledger.PaymentStatus, gatewayRef string) (bool, error) {
	ct, err := s.q(ctx).Exec(ctx, `
		UPDATE payments
		SET status = $3,
		    gateway_ref = COALESCE(NULLIF($4, ''), gateway_ref),
		    updated_at = now()
		WHERE reference = $1 AND status = $2
	`, reference, string(from), string(to), gatewayRef)
	if err != nil {
		return false, fmt.Errorf("transition payment: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *Store) ListPaymentsByUser(ctx context.Context, userID string, limit int) ([]ledger.PaymentRecord, error) {
	limit = normalizeLimit(limit)

	rows, err := s.q(ctx).Query(ctx, `SELECT`+paymentColumns+`
		FROM payments p LEFT JOIN teams t ON t.id = p.team_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.PaymentRecord, 0, limit)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
