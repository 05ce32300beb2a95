package account

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"kyri56xcaesar/teamup/internal/ledger"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSignup      = errors.New("invalid signup data")
)

const minPasswordLen = 6

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash []byte    `json:"-"`
	Balance      int64     `json:"balance"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is a user together with the teams they hold a seat on.
type Profile struct {
	User
	Teams []ledger.Team `json:"teams"`
}

// Repository persists users.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	// GetUsersByIDs skips ids that do not exist.
	GetUsersByIDs(ctx context.Context, ids []string) ([]User, error)
}

// IdentityProvider owns credentials. Register returns the subject id (and a
// password hash when credentials are kept locally); Token checks a password
// and returns a bearer token for the user. Unregister removes a subject that
// Register created.
type IdentityProvider interface {
	Register(ctx context.Context, email, password, name string) (subject string, hash []byte, err error)
	Unregister(ctx context.Context, subject string) error
	Token(ctx context.Context, u *User, password string) (string, error)
}

type Service struct {
	users          Repository
	teams          ledger.TeamCatalog
	idp            IdentityProvider
	defaultBalance int64
	logger         *zap.SugaredLogger
}

func NewService(users Repository, teams ledger.TeamCatalog, idp IdentityProvider, defaultBalance int64, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		users:          users,
		teams:          teams,
		idp:            idp,
		defaultBalance: defaultBalance,
		logger:         logger,
	}
}

func (s *Service) Signup(ctx context.Context, email, password, name string) (*User, string, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if _, err := mail.ParseAddress(email); err != nil || name == "" || len(password) < minPasswordLen {
		return nil, "", ErrInvalidSignup
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, ledger.ErrUserNotFound) {
		return nil, "", err
	}

	subject, hash, err := s.idp.Register(ctx, email, password, name)
	if err != nil {
		return nil, "", err
	}

	u := &User{
		ID:           subject,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Balance:      s.defaultBalance,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if uerr := s.idp.Unregister(context.WithoutCancel(ctx), subject); uerr != nil {
			s.logger.Errorw("failed to remove identity after signup failure", "subject", subject, "error", uerr)
		}
		return nil, "", err
	}

	token, err := s.idp.Token(ctx, u, password)
	if err != nil {
		return nil, "", err
	}

	s.logger.Infow("user registered", "user", u.ID)
	return u, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ledger.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	token, err := s.idp.Token(ctx, u, password)
	if err != nil {
		s.logger.Debugw("login failed", "user", u.ID, "error", err)
		return nil, "", ErrInvalidCredentials
	}

	s.logger.Infow("user logged in", "user", u.ID)
	return u, token, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	teams, err := s.teams.ListTeamsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: *u, Teams: teams}, nil
}

// Users resolves ids to users. Unknown ids are absent from the map.
func (s *Service) Users(ctx context.Context, ids []string) (map[string]User, error) {
	if len(ids) == 0 {
		return map[string]User{}, nil
	}
	list, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]User, len(list))
	for _, u := range list {
		out[u.ID] = u
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
