// Package memstore is an in-process implementation of the storage ports,
// used by unit tests and local experiments. Transactions are serialized and
// a failed transaction restores the state it started from.
package memstore

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"kyri56xcaesar/teamup/internal/account"
	"kyri56xcaesar/teamup/internal/ledger"
	"kyri56xcaesar/teamup/internal/mpay"
)

var (
	_ ledger.Transactor    = (*Store)(nil)
	_ ledger.TeamCatalog   = (*Store)(nil)
	_ ledger.UserDirectory = (*Store)(nil)
	_ mpay.Repository      = (*Store)(nil)
	_ account.Repository   = (*Store)(nil)
)

type state struct {
	teams    map[string]*ledger.Team
	users    map[string]*account.User
	refs     map[string]map[string]struct{}
	payments map[string]*ledger.PaymentRecord
}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	state

	// FailNext, when set, is returned (once) by the next call to the named
	// method. Tests use it to force a failure mid-transaction.
	FailNext map[string]error
	calls    map[string]int
}

func New() *Store {
	return &Store{
		state: state{
			teams:    make(map[string]*ledger.Team),
			users:    make(map[string]*account.User),
			refs:     make(map[string]map[string]struct{}),
			payments: make(map[string]*ledger.PaymentRecord),
		},
		FailNext: make(map[string]error),
		calls:    make(map[string]int),
	}
}

type txKey struct{}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := s.snapshot()
	s.mu.Unlock()

	err := fn(context.WithValue(ctx, txKey{}, true))
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) snapshot() state {
	c := state{
		teams:    make(map[string]*ledger.Team, len(s.teams)),
		users:    make(map[string]*account.User, len(s.users)),
		refs:     make(map[string]map[string]struct{}, len(s.refs)),
		payments: make(map[string]*ledger.PaymentRecord, len(s.payments)),
	}
	for id, t := range s.teams {
		c.teams[id] = t.Clone()
	}
	for id, u := range s.users {
		cu := *u
		c.users[id] = &cu
	}
	for id, r := range s.refs {
		c.refs[id] = maps.Clone(r)
	}
	for ref, p := range s.payments {
		cp := *p
		c.payments[ref] = &cp
	}
	return c
}

// Calls reports how many times the named method has run.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Store) fail(method string) error {
	s.calls[method]++
	if err, ok := s.FailNext[method]; ok {
		delete(s.FailNext, method)
		return err
	}
	return nil
}

// --- teams ---

func (s *Store) GetTeam(_ context.Context, id string) (*ledger.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetTeam"); err != nil {
		return nil, err
	}
	t, ok := s.teams[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *Store) InsertTeam(_ context.Context, t *ledger.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertTeam"); err != nil {
		return err
	}
	s.teams[t.ID] = t.Clone()
	return nil
}

func (s *Store) Persist(_ context.Context, t *ledger.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Persist"); err != nil {
		return err
	}
	cur, ok := s.teams[t.ID]
	if !ok {
		return ledger.ErrNotFound
	}
	if cur.Version != t.Version {
		return ledger.ErrConflict
	}
	t.Version++
	s.teams[t.ID] = t.Clone()
	return nil
}

// PutTeam stores t as-is, bypassing the ledger; tests use it to seed state.
func (s *Store) PutTeam(t *ledger.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[t.ID] = t.Clone()
}

func (s *Store) ListTeams(_ context.Context, f ledger.TeamFilter) ([]ledger.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ledger.Team, 0)
	for _, t := range s.teams {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Sport != "" && !strings.EqualFold(t.Sport, f.Sport) {
			continue
		}
		if f.Location != "" && !strings.EqualFold(t.Location, f.Location) {
			continue
		}
		if f.Date != nil {
			y1, m1, d1 := f.Date.UTC().Date()
			y2, m2, d2 := t.Time.UTC().Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
		}
		out = append(out, *t.Clone())
	}

	slices.SortFunc(out, func(a, b ledger.Team) int {
		switch f.Order {
		case "time_desc":
			return b.Time.Compare(a.Time)
		case "created_desc":
			return b.CreatedAt.Compare(a.CreatedAt)
		case "price_asc":
			return cmp.Or(cmp.Compare(a.PricePerSlot, b.PricePerSlot), a.Time.Compare(b.Time))
		default:
			return a.Time.Compare(b.Time)
		}
	})

	limit := f.Limit
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListTeamsByUser(_ context.Context, userID string) ([]ledger.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ledger.Team, 0, len(s.refs[userID]))
	for id := range s.refs[userID] {
		if t, ok := s.teams[id]; ok {
			out = append(out, *t.Clone())
		}
	}
	slices.SortFunc(out, func(a, b ledger.Team) int { return a.Time.Compare(b.Time) })
	return out, nil
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, u *account.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateUser"); err != nil {
		return err
	}
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return account.ErrEmailTaken
		}
	}
	cu := *u
	s.users[u.ID] = &cu
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cu := *u
			return &cu, nil
		}
	}
	return nil, ledger.ErrUserNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ledger.ErrUserNotFound
	}
	cu := *u
	return &cu, nil
}

func (s *Store) GetUsersByIDs(_ context.Context, ids []string) ([]account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]account.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

// TeamRefs returns the ids in userID's back-reference index.
func (s *Store) TeamRefs(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.refs[userID]))
}

func (s *Store) AddTeamRef(_ context.Context, userID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AddTeamRef"); err != nil {
		return err
	}
	if s.refs[userID] == nil {
		s.refs[userID] = make(map[string]struct{})
	}
	s.refs[userID][teamID] = struct{}{}
	return nil
}

func (s *Store) RemoveTeamRef(_ context.Context, userID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("RemoveTeamRef"); err != nil {
		return err
	}
	delete(s.refs[userID], teamID)
	return nil
}

func (s *Store) AdjustBalance(_ context.Context, userID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AdjustBalance"); err != nil {
		return err
	}
	u, ok := s.users[userID]
	if !ok {
		return ledger.ErrUserNotFound
	}
	u.Balance += delta
	return nil
}

// --- payments ---

func (s *Store) CreatePayment(_ context.Context, p *ledger.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payments[p.Reference] = &cp
	return nil
}

func (s *Store) GetPayment(_ context.Context, reference string) (*ledger.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[reference]
	if !ok {
		return nil, ledger.ErrPaymentNotFound
	}
	return s.withTeamName(p), nil
}

func (s *Store) FindPendingPayment(_ context.Context, teamID, userID string) (*ledger.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.TeamID == teamID && p.UserID == userID && p.Status == ledger.PaymentPending {
			return s.withTeamName(p), nil
		}
	}
	return nil, ledger.ErrPaymentNotFound
}

func (s *Store) TransitionPayment(_ context.Context, reference string, from, to ledger.PaymentStatus, gatewayRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("TransitionPayment"); err != nil {
		return false, err
	}
	p, ok := s.payments[reference]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	if gatewayRef != "" {
		p.GatewayRef = gatewayRef
	}
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) ListPaymentsByUser(_ context.Context, userID string, limit int) ([]ledger.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.PaymentRecord, 0)
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, *s.withTeamName(p))
		}
	}
	slices.SortFunc(out, func(a, b ledger.PaymentRecord) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) withTeamName(p *ledger.PaymentRecord) *ledger.PaymentRecord {
	cp := *p
	if t, ok := s.teams[p.TeamID]; ok {
		cp.TeamName = t.Name
	}
	return &cp
}
