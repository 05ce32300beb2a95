package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kyri56xcaesar/teamup/internal/account"
	"kyri56xcaesar/teamup/internal/ledger"
)

func (s *Store) CreateUser(ctx context.Context, u *account.User) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Balance, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return account.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*account.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*account.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]account.User, error) {
	rows, err := s.q(ctx).Query(ctx, `
		SELECT id, email, name, balance, created_at
		FROM users
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	defer rows.Close()

	out := make([]account.User, 0, len(ids))
	for rows.Next() {
		var u account.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Balance, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (*account.User, error) {
	var u account.User
	err := s.q(ctx).QueryRow(ctx, `
		SELECT id, email, name, password_hash, balance, created_at
		FROM users `+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Balance, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) AddTeamRef(ctx context.Context, userID, teamID string) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO user_teams (user_id, team_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, team_id) DO NOTHING
	`, userID, teamID)
	if err != nil {
		return fmt.Errorf("add team ref: %w", err)
	}
	return nil
}

func (s *Store) RemoveTeamRef(ctx context.Context, userID, teamID string) error {
	_, err := s.q(ctx).Exec(ctx, `
		DELETE FROM user_teams
		WHERE user_id = $1 AND team_id = $2
	`, userID, teamID)
	if err != nil {
		return fmt.Errorf("remove team ref: %w", err)
	}
	return nil
}

func (s *Store) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	ct, err := s.q(ctx).Exec(ctx, `UPDATE users SET balance = balance + $2 WHERE id = $1`, userID, delta)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ledger.ErrUserNotFound
	}
	return nil
}
