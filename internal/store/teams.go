package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"kyri56xcaesar/teamup/internal/ledger"
)

const teamColumns = `
	t.id, t.name, t.sport, t.location, t.starts_at,
	t.total_slots, t.filled_slots, t.price_per_slot, t.creator_id,
	t.roster, t.status, t.version, t.created_at`

func scanTeam(row pgx.Row) (*ledger.Team, error) {
	var (
		t      ledger.Team
		status string
	)
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Sport,
		&t.Location,
		&t.Time,
		&t.TotalSlots,
		&t.FilledSlots,
		&t.PricePerSlot,
		&t.CreatorID,
		&t.Roster,
		&status,
		&t.Version,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	t.Status = ledger.Status(status)
	if t.Roster == nil {
		t.Roster = []ledger.Membership{}
	}
	return &t, nil
}

// GetTeam locks the row when called inside a transaction, so concurrent
// ledger operations on one team queue up behind each other.
func (s *Store) GetTeam(ctx context.Context, id string) (*ledger.Team, error) {
	query := `SELECT` + teamColumns + ` FROM teams t WHERE t.id = $1`
	if inTx(ctx) {
		query += ` FOR UPDATE`
	}

	t, err := scanTeam(s.q(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("get team %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) InsertTeam(ctx context.Context, t *ledger.Team) error {
	_, err := s.q(ctx).Exec(ctx, `
		INSERT INTO teams (
			id, name, sport, location, starts_at,
			total_slots, filled_slots, price_per_slot, creator_id,
			roster, status, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`,
		t.ID, t.Name, t.Sport, t.Location, t.Time,
		t.TotalSlots, t.FilledSlots, t.PricePerSlot, t.CreatorID,
		t.Roster, string(t.Status), t.Version, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

// Persist writes the mutable part of the aggregate if the stored version
// still matches t.Version.
func (s *Store) Persist(ctx context.Context, t *ledger.Team) error {
	ct, err := s.q(ctx).Exec(ctx, `
		UPDATE teams
		SET filled_slots = $3,
		    roster = $4,
		    status = $5,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $2
	`, t.ID, t.Version, t.FilledSlots, t.Roster, string(t.Status))
	if err != nil {
		return fmt.Errorf("persist team %s: %w", t.ID, err)
	}

	if ct.RowsAffected() == 0 {
		var exists bool
		if err := s.q(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM teams WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
			return fmt.Errorf("persist team %s: %w", t.ID, err)
		}
		if !exists {
			return ledger.ErrNotFound
		}
		s.logger.Warnw("version conflict", "team", t.ID, "version", t.Version)
		return ledger.ErrConflict
	}

	t.Version++
	return nil
}

func orderClause(order string) string {
	switch order {
	case "time_desc":
		return "t.starts_at DESC"
	case "created_desc":
		return "t.created_at DESC"
	case "price_asc":
		return "t.price_per_slot ASC, t.starts_at ASC"
	case "time_asc":
		fallthrough
	default:
		return "t.starts_at ASC"
	}
}

func (s *Store) ListTeams(ctx context.Context, f ledger.TeamFilter) ([]ledger.Team, error) {
	limit := normalizeLimit(f.Limit)

	var (
		where  []string
		args   []any
		argIdx = 1
	)
	add := func(cond string, v any) {
		where = append(where, fmt.Sprintf(cond, argIdx))
		args = append(args, v)
		argIdx++
	}

	if f.Status != "" {
		add("t.status = $%d", string(f.Status))
	}
	if sport := strings.TrimSpace(f.Sport); sport != "" {
		add("lower(t.sport) = lower($%d)", sport)
	}
	if location := strings.TrimSpace(f.Location); location != "" {
		add("lower(t.location) = lower($%d)", location)
	}
	if f.Date != nil {
		start := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, time.UTC)
		add("t.starts_at >= $%d", start)
		add("t.starts_at < $%d", start.AddDate(0, 0, 1))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM teams t %s ORDER BY %s LIMIT $%d`,
		teamColumns, whereSQL, orderClause(f.Order), argIdx)
	args = append(args, limit)

	return s.queryTeams(ctx, limit, query, args...)
}

func (s *Store) ListTeamsByUser(ctx context.Context, userID string) ([]ledger.Team, error) {
	return s.queryTeams(ctx, 16, `
		SELECT`+teamColumns+`
		FROM teams t
		JOIN user_teams ut ON ut.team_id = t.id AND ut.user_id = $1
		ORDER BY t.starts_at ASC
	`, userID)
}

func (s *Store) queryTeams(ctx context.Context, capHint int, query string, args ...any) ([]ledger.Team, error) {
	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.Team, 0, capHint)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
