package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kyri56xcaesar/teamup/internal/metrics"
)

// Ledger owns every mutation of a team's roster, slot count and status.
// Each operation runs inside a single Transactor unit; the ledger never
// retries on ErrConflict.
type Ledger struct {
	tx       Transactor
	teams    TeamCatalog
	users    UserDirectory
	payments PaymentProvider
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func New(tx Transactor, teams TeamCatalog, users UserDirectory, payments PaymentProvider, logger *zap.SugaredLogger) *Ledger {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Ledger{
		tx:       tx,
		teams:    teams,
		users:    users,
		payments: payments,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source; used by tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) Create(ctx context.Context, in CreateTeamInput) (team *Team, err error) {
	defer observe("create", time.Now(), &err)

	if err := validateCreate(in); err != nil {
		return nil, err
	}

	now := l.now()
	team = &Team{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Sport:        strings.TrimSpace(in.Sport),
		Location:     strings.TrimSpace(in.Location),
		Time:         in.Time.UTC(),
		TotalSlots:   in.TotalSlots,
		FilledSlots:  1,
		PricePerSlot: in.PricePerSlot,
		CreatorID:    in.CreatorID,
		Roster: []Membership{{
			UserID:        in.CreatorID,
			JoinedAt:      now,
			PaymentStatus: PaymentCompleted,
		}},
		Version:   1,
		CreatedAt: now,
	}
	team.Status = DeriveStatus(StatusOpen, team.FilledSlots, team.TotalSlots)

	if err := team.Validate(); err != nil {
		return nil, err
	}

	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := l.teams.InsertTeam(ctx, team); err != nil {
			return err
		}
		return l.users.AddTeamRef(ctx, in.CreatorID, team.ID)
	})
	if err != nil {
		l.logger.Errorw("failed to create team", "creator", in.CreatorID, "error", err)
		return nil, err
	}

	l.logger.Infow("team created", "team", team.ID, "creator", in.CreatorID, "slots", team.TotalSlots)
	return team, nil
}

func (l *Ledger) Get(ctx context.Context, teamID string) (*Team, error) {
	return l.teams.GetTeam(ctx, teamID)
}

// List returns catalog teams. An empty status filter lists open teams only.
func (l *Ledger) List(ctx context.Context, filter TeamFilter) ([]Team, error) {
	if filter.Status == "" {
		filter.Status = StatusOpen
	}
	return l.teams.ListTeams(ctx, filter)
}

func (l *Ledger) Join(ctx context.Context, teamID, userID string) (result *Team, err error) {
	defer observe("join", time.Now(), &err)

	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		team, err := l.teams.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}

		if DeriveStatus(team.Status, team.FilledSlots, team.TotalSlots) != StatusOpen {
			return ErrNotOpen
		}
		if team.IsMember(userID) {
			return ErrAlreadyMember
		}

		next := team.Clone()
		next.Roster = append(next.Roster, Membership{
			UserID:        userID,
			JoinedAt:      l.now(),
			PaymentStatus: PaymentPending,
		})
		next.FilledSlots = len(next.Roster)
		next.Status = DeriveStatus(next.Status, next.FilledSlots, next.TotalSlots)

		if err := l.commit(ctx, next); err != nil {
			return err
		}
		if err := l.users.AddTeamRef(ctx, userID, teamID); err != nil {
			return fmt.Errorf("add team ref: %w", err)
		}

		result = next
		return nil
	})
	if err != nil {
		l.logger.Debugw("join rejected", "team", teamID, "user", userID, "error", err)
		return nil, err
	}

	l.logger.Infow("user joined team", "team", teamID, "user", userID,
		"filled", result.FilledSlots, "total", result.TotalSlots, "status", result.Status)
	return result, nil
}

func (l *Ledger) Leave(ctx context.Context, teamID, userID string) (result *Team, err error) {
	defer observe("leave", time.Now(), &err)

	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		team, err := l.teams.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}

		if team.CreatorID == userID {
			return ErrCreatorCannotLeave
		}
		idx := team.MemberIndex(userID)
		if idx < 0 {
			return ErrNotMember
		}

		next := team.Clone()
		next.Roster = append(next.Roster[:idx], next.Roster[idx+1:]...)
		next.FilledSlots = len(next.Roster)
		next.Status = DeriveStatus(next.Status, next.FilledSlots, next.TotalSlots)

		if err := l.commit(ctx, next); err != nil {
			return err
		}
		if err := l.users.RemoveTeamRef(ctx, userID, teamID); err != nil {
			return fmt.Errorf("remove team ref: %w", err)
		}

		result = next
		return nil
	})
	if err != nil {
		l.logger.Debugw("leave rejected", "team", teamID, "user", userID, "error", err)
		return nil, err
	}

	l.logger.Infow("user left team", "team", teamID, "user", userID,
		"filled", result.FilledSlots, "total", result.TotalSlots, "status", result.Status)
	return result, nil
}

// Cancel moves a team to the terminal cancelled state and refunds every
// settled seat except the creator's. Only the payment that settled the
// current seat is refunded; payments for seats a user already left stay
// completed.
func (l *Ledger) Cancel(ctx context.Context, teamID, actorID string) (result *Team, err error) {
	defer observe("cancel", time.Now(), &err)

	var refunded int
	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		team, err := l.teams.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}
		if team.CreatorID != actorID {
			return ErrForbidden
		}
		if team.Status == StatusCancelled {
			return newError(CodeInvalidState, "team %s is already cancelled", teamID)
		}

		next := team.Clone()
		next.Status = StatusCancelled
		refunded = 0
		for i := range next.Roster {
			m := &next.Roster[i]
			if m.UserID == next.CreatorID || m.PaymentStatus != PaymentCompleted {
				continue
			}
			if m.PaymentRef == "" {
				return newError(CodeInvariant, "team %s: settled seat of %s has no payment reference", teamID, m.UserID)
			}
			if err := l.payments.Refund(ctx, m.PaymentRef); err != nil {
				return fmt.Errorf("refund %s: %w", m.UserID, err)
			}
			if err := l.users.AdjustBalance(ctx, m.UserID, next.PricePerSlot); err != nil {
				return fmt.Errorf("credit %s: %w", m.UserID, err)
			}
			m.PaymentStatus = PaymentRefunded
			refunded++
		}

		if err := l.commit(ctx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		l.logger.Debugw("cancel rejected", "team", teamID, "actor", actorID, "error", err)
		return nil, err
	}

	l.logger.Infow("team cancelled", "team", teamID, "refunded", refunded)
	return result, nil
}

// RequestPayment issues (or reuses) the pending payment for a member's seat.
func (l *Ledger) RequestPayment(ctx context.Context, teamID, userID string) (record *PaymentRecord, err error) {
	defer observe("request_payment", time.Now(), &err)

	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		team, err := l.teams.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}
		if team.Status == StatusCancelled {
			return newError(CodeInvalidState, "team %s is cancelled", teamID)
		}
		idx := team.MemberIndex(userID)
		if idx < 0 {
			return ErrNotMember
		}
		if team.Roster[idx].PaymentStatus != PaymentPending {
			return ErrAlreadySettled
		}

		record, err = l.payments.CreatePendingPayment(ctx, userID, teamID, team.PricePerSlot)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.logger.Infow("payment requested", "team", teamID, "user", userID, "reference", record.Reference, "amount", record.Amount)
	return record, nil
}

// SettlePayment completes a pending payment, marks the seat paid and debits
// the user. Re-settling a completed reference returns ErrAlreadySettled and
// changes nothing.
func (l *Ledger) SettlePayment(ctx context.Context, teamID, userID, reference string) (result *Team, err error) {
	defer observe("settle", time.Now(), &err)

	var amount int64
	err = l.tx.WithinTx(ctx, func(ctx context.Context) error {
		// team before payment, the same lock order Cancel uses
		team, err := l.teams.GetTeam(ctx, teamID)
		if err != nil {
			return err
		}

		payment, err := l.payments.Confirm(ctx, reference)
		if err != nil {
			return err
		}
		if payment.TeamID != teamID || payment.UserID != userID {
			return ErrPaymentNotFound
		}
		switch payment.Status {
		case PaymentPending:
		case PaymentCompleted:
			return ErrAlreadySettled
		default:
			return newError(CodeInvalidState, "payment %s is %s", reference, payment.Status)
		}

		if team.Status == StatusCancelled {
			return newError(CodeInvalidState, "team %s is cancelled", teamID)
		}
		if payment.Amount != team.PricePerSlot {
			return newError(CodeInvalidState, "payment amount %d does not match slot price %d", payment.Amount, team.PricePerSlot)
		}
		idx := team.MemberIndex(userID)
		if idx < 0 {
			return ErrNotMember
		}
		if team.Roster[idx].PaymentStatus == PaymentCompleted {
			return ErrAlreadySettled
		}

		if err := l.payments.MarkCompleted(ctx, reference); err != nil {
			return err
		}

		next := team.Clone()
		next.Roster[idx].PaymentStatus = PaymentCompleted
		next.Roster[idx].PaymentRef = reference
		if err := l.commit(ctx, next); err != nil {
			return err
		}
		if err := l.users.AdjustBalance(ctx, userID, -payment.Amount); err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}

		amount = payment.Amount
		result = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			l.logger.Infow("payment already settled", "team", teamID, "user", userID, "reference", reference)
		}
		return nil, err
	}

	l.logger.Infow("payment settled", "team", teamID, "user", userID, "reference", reference, "amount", amount)
	return result, nil
}

// commit validates the post-mutation state and persists it.
func (l *Ledger) commit(ctx context.Context, team *Team) error {
	if err := team.Validate(); err != nil {
		l.logger.Errorw("refusing to persist invalid team", "team", team.ID, "error", err)
		return err
	}
	return l.teams.Persist(ctx, team)
}

func validateCreate(in CreateTeamInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return newError(CodeValidation, "name is required")
	case strings.TrimSpace(in.Sport) == "":
		return newError(CodeValidation, "sport is required")
	case strings.TrimSpace(in.Location) == "":
		return newError(CodeValidation, "location is required")
	case in.Time.IsZero():
		return newError(CodeValidation, "time is required")
	case in.TotalSlots < MinSlots:
		return newError(CodeValidation, "totalSlots must be at least %d", MinSlots)
	case in.PricePerSlot < 0:
		return newError(CodeValidation, "pricePerSlot must not be negative")
	case in.CreatorID == "":
		return newError(CodeValidation, "creator is required")
	}
	return nil
}

func observe(op string, start time.Time, err *error) {
	metrics.ObserveLedgerOp(op, start, errorCode(*err))
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return string(le.Code)
	}
	return "INTERNAL"
}
