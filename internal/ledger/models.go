package ledger

import (
	"slices"
	"time"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusFull      Status = "full"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Membership is one seat on a team's roster. PaymentRef is the payment that
// settled this seat; a user who leaves and rejoins gets a new seat with no
// reference until it is settled again.
type Membership struct {
	UserID        string        `json:"user"`
	JoinedAt      time.Time     `json:"joinedAt"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaymentRef    string        `json:"paymentRef,omitempty"`
}

// Team is the aggregate root guarded by the ledger. Roster, FilledSlots and
// Status only change together, inside one transaction.
type Team struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Sport        string       `json:"sport"`
	Location     string       `json:"location"`
	Time         time.Time    `json:"time"`
	TotalSlots   int          `json:"totalSlots"`
	FilledSlots  int          `json:"filledSlots"`
	PricePerSlot int64        `json:"pricePerSlot"`
	CreatorID    string       `json:"creator"`
	Roster       []Membership `json:"players"`
	Status       Status       `json:"status"`
	Version      int64        `json:"version"`
	CreatedAt    time.Time    `json:"createdAt"`
}

func (t *Team) AvailableSlots() int {
	return t.TotalSlots - t.FilledSlots
}

// MemberIndex returns the roster position of userID or -1.
func (t *Team) MemberIndex(userID string) int {
	return slices.IndexFunc(t.Roster, func(m Membership) bool {
		return m.UserID == userID
	})
}

func (t *Team) IsMember(userID string) bool {
	return t.MemberIndex(userID) >= 0
}

func (t *Team) Clone() *Team {
	c := *t
	c.Roster = slices.Clone(t.Roster)
	return &c
}

// Validate checks the aggregate invariants. It never repairs state.
func (t *Team) Validate() error {
	if t.TotalSlots < MinSlots {
		return newError(CodeInvariant, "team %s: totalSlots %d below minimum %d", t.ID, t.TotalSlots, MinSlots)
	}
	if t.FilledSlots != len(t.Roster) {
		return newError(CodeInvariant, "team %s: filledSlots %d does not match roster size %d", t.ID, t.FilledSlots, len(t.Roster))
	}
	if t.FilledSlots < 0 || t.FilledSlots > t.TotalSlots {
		return newError(CodeInvariant, "team %s: filledSlots %d outside [0,%d]", t.ID, t.FilledSlots, t.TotalSlots)
	}
	if t.PricePerSlot < 0 {
		return newError(CodeInvariant, "team %s: negative price", t.ID)
	}

	seen := make(map[string]struct{}, len(t.Roster))
	for _, m := range t.Roster {
		if _, dup := seen[m.UserID]; dup {
			return newError(CodeInvariant, "team %s: user %s seated twice", t.ID, m.UserID)
		}
		seen[m.UserID] = struct{}{}
	}

	if _, ok := seen[t.CreatorID]; !ok && t.Status != StatusCancelled {
		return newError(CodeInvariant, "team %s: creator %s missing from roster", t.ID, t.CreatorID)
	}

	if want := DeriveStatus(t.Status, t.FilledSlots, t.TotalSlots); want != t.Status {
		return newError(CodeInvariant, "team %s: status %s, expected %s", t.ID, t.Status, want)
	}
	return nil
}

// PaymentRecord is a payment transaction for one (team, user) seat.
type PaymentRecord struct {
	Reference  string        `json:"orderId"`
	GatewayRef string        `json:"paymentId,omitempty"`
	UserID     string        `json:"user"`
	TeamID     string        `json:"team"`
	TeamName   string        `json:"teamName,omitempty"`
	Amount     int64         `json:"amount"`
	Currency   string        `json:"currency"`
	Status     PaymentStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// TeamFilter narrows catalog listings. Zero values mean "any".
type TeamFilter struct {
	Sport    string
	Location string
	Date     *time.Time
	Status   Status
	Limit    int
	Order    string
}

type CreateTeamInput struct {
	Name         string
	Sport        string
	Location     string
	Time         time.Time
	TotalSlots   int
	PricePerSlot int64
	CreatorID    string
}
