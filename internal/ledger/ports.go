package ledger

import "context"

// Transactor runs fn as one atomic unit. Implementations carry the
// transaction inside ctx, so every port called with that ctx joins it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TeamCatalog stores teams. Persist is a compare-and-swap on Version and
// returns ErrConflict when the stored version moved; on success it bumps
// team.Version.
type TeamCatalog interface {
	GetTeam(ctx context.Context, id string) (*Team, error)
	InsertTeam(ctx context.Context, team *Team) error
	Persist(ctx context.Context, team *Team) error
	ListTeams(ctx context.Context, filter TeamFilter) ([]Team, error)
	ListTeamsByUser(ctx context.Context, userID string) ([]Team, error)
}

// UserDirectory maintains the user side of a membership: the "my teams"
// index and the balance.
type UserDirectory interface {
	AddTeamRef(ctx context.Context, userID, teamID string) error
	RemoveTeamRef(ctx context.Context, userID, teamID string) error
	AdjustBalance(ctx context.Context, userID string, delta int64) error
}

// PaymentProvider issues and confirms payment references.
type PaymentProvider interface {
	CreatePendingPayment(ctx context.Context, userID, teamID string, amount int64) (*PaymentRecord, error)
	Confirm(ctx context.Context, reference string) (*PaymentRecord, error)
	// MarkCompleted moves a pending payment to completed and returns
	// ErrAlreadySettled if it was no longer pending.
	MarkCompleted(ctx context.Context, reference string) error
	// Refund moves one completed payment to refunded and returns
	// ErrInvalidState if it was not completed.
	Refund(ctx context.Context, reference string) error
}
