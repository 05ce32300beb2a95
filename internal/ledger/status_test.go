package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		filled  int
		total   int
		want    Status
	}{
		{"open with room", StatusOpen, 1, 4, StatusOpen},
		{"open reaches capacity", StatusOpen, 4, 4, StatusFull},
		{"full drops below capacity", StatusFull, 3, 4, StatusOpen},
		{"full stays full", StatusFull, 4, 4, StatusFull},
		{"cancelled with room", StatusCancelled, 1, 4, StatusCancelled},
		{"cancelled at capacity", StatusCancelled, 4, 4, StatusCancelled},
		{"stale open flag is ignored", StatusOpen, 5, 4, StatusFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DeriveStatus(tt.current, tt.filled, tt.total))
		})
	}
}

func TestTeamValidate(t *testing.T) {
	valid := func() *Team {
		return &Team{
			ID:          "t1",
			TotalSlots:  3,
			FilledSlots: 2,
			CreatorID:   "alice",
			Roster: []Membership{
				{UserID: "alice", PaymentStatus: PaymentCompleted},
				{UserID: "bob", PaymentStatus: PaymentPending},
			},
			Status: StatusOpen,
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Team)
	}{
		{"count drift", func(t *Team) { t.FilledSlots = 3 }},
		{"over capacity", func(t *Team) {
			t.TotalSlots = 2
			t.Roster = append(t.Roster, Membership{UserID: "carol"})
			t.FilledSlots = 3
		}},
		{"duplicate seat", func(t *Team) {
			t.Roster[1].UserID = "alice"
		}},
		{"creator missing", func(t *Team) { t.CreatorID = "dave" }},
		{"stale status", func(t *Team) { t.Status = StatusFull }},
		{"too few slots", func(t *Team) {
			t.TotalSlots = 1
			t.Roster = t.Roster[:1]
			t.FilledSlots = 1
			t.Status = StatusFull
		}},
		{"negative price", func(t *Team) { t.PricePerSlot = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team := valid()
			tt.mutate(team)
			err := team.Validate()
			require.ErrorIs(t, err, ErrInvariant)
		})
	}
}
