package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"kyri56xcaesar/teamup/internal/account"
	"kyri56xcaesar/teamup/internal/authmw"
	"kyri56xcaesar/teamup/internal/ledger"
	"kyri56xcaesar/teamup/internal/store/memstore"
)

func newService(t *testing.T) (*account.Service, *memstore.Store, *authmw.LocalAuth) {
	t.Helper()
	st := memstore.New()
	idp, err := authmw.NewLocalAuth("test-secret", time.Hour)
	require.NoError(t, err)
	idp.WithCost(bcrypt.MinCost)
	return account.NewService(st, st, idp, 500, nil), st, idp
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, idp := newService(t)

	u, token, err := svc.Signup(ctx, "  Alice@Example.com ", "hunter22", "Alice")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, int64(500), u.Balance)
	require.NotEmpty(t, u.ID)
	require.NotEmpty(t, u.PasswordHash)

	claims, err := idp.Parse(token)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.UserID)

	logged, token, err := svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, u.ID, logged.ID)
	require.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, account.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	require.ErrorIs(t, err, account.ErrInvalidCredentials)
}

func TestSignupRejects(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	_, _, err := svc.Signup(ctx, "bob@example.com", "secret1", "Bob")
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, "BOB@example.com", "secret1", "Bobby")
	require.ErrorIs(t, err, account.ErrEmailTaken)

	tests := []struct {
		name, email, password, display string
	}{
		{"bad email", "not-an-email", "secret1", "Carol"},
		{"short password", "carol@example.com", "abc", "Carol"},
		{"blank name", "carol@example.com", "secret1", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Signup(ctx, tt.email, tt.password, tt.display)
			require.ErrorIs(t, err, account.ErrInvalidSignup)
		})
	}
}

func TestProfileListsTeams(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newService(t)

	u, _, err := svc.Signup(ctx, "dana@example.com", "secret1", "Dana")
	require.NoError(t, err)

	l := ledger.New(st, st, st, nil, nil)
	team, err := l.Create(ctx, ledger.CreateTeamInput{
		Name:         "Morning doubles",
		Sport:        "tennis",
		Location:     "Court 3",
		Time:         time.Now().Add(24 * time.Hour),
		TotalSlots:   4,
		PricePerSlot: 0,
		CreatorID:    u.ID,
	})
	require.NoError(t, err)

	p, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, p.Email)
	require.Len(t, p.Teams, 1)
	require.Equal(t, team.ID, p.Teams[0].ID)

	_, err = svc.Profile(ctx, "ghost")
	require.ErrorIs(t, err, ledger.ErrUserNotFound)
}

// recordingIDP remembers which subjects were removed again.
type recordingIDP struct {
	*authmw.LocalAuth
	registered   []string
	unregistered []string
}

func (r *recordingIDP) Register(ctx context.Context, email, password, name string) (string, []byte, error) {
	subject, hash, err := r.LocalAuth.Register(ctx, email, password, name)
	if err == nil {
		r.registered = append(r.registered, subject)
	}
	return subject, hash, err
}

func (r *recordingIDP) Unregister(_ context.Context, subject string) error {
	r.unregistered = append(r.unregistered, subject)
	return nil
}

func TestSignupRemovesIdentityWhenUserInsertFails(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	local, err := authmw.NewLocalAuth("test-secret", time.Hour)
	require.NoError(t, err)
	local.WithCost(bcrypt.MinCost)
	idp := &recordingIDP{LocalAuth: local}
	svc := account.NewService(st, st, idp, 0, nil)

	st.FailNext["CreateUser"] = errors.New("users table unavailable")
	_, _, err = svc.Signup(ctx, "erin@example.com", "secret1", "Erin")
	require.Error(t, err)
	require.Len(t, idp.registered, 1)
	require.Equal(t, idp.registered, idp.unregistered)

	u, _, err := svc.Signup(ctx, "erin@example.com", "secret1", "Erin")
	require.NoError(t, err)
	require.Equal(t, idp.registered[1], u.ID)
	require.Len(t, idp.unregistered, 1)
}

func TestUsersResolvesKnownIDs(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	a, _, err := svc.Signup(ctx, "fay@example.com", "secret1", "Fay")
	require.NoError(t, err)
	b, _, err := svc.Signup(ctx, "gus@example.com", "secret1", "Gus")
	require.NoError(t, err)

	users, err := svc.Users(ctx, []string{a.ID, b.ID, "ghost"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "Fay", users[a.ID].Name)
	require.Equal(t, "gus@example.com", users[b.ID].Email)

	users, err = svc.Users(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, users)
}
