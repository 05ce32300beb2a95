package authmw

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kyri56xcaesar/teamup/internal/account"
)

var _ account.IdentityProvider = (*Service)(nil)

// Service provisions and logs in users against a Keycloak realm. Tokens it
// hands out are verified by KCAuth.
type Service struct {
	Client       *gocloak.GoCloak
	Realm        string
	clientID     string
	clientSecret string
	logger       *zap.SugaredLogger

	KCAuth *KeycloakAuth
}

func NewService(baseURL, realm, clientID, audience, clientSecret string, logger *zap.SugaredLogger) (*Service, error) {
	client := gocloak.NewClient("http://" + baseURL)

	issuer := fmt.Sprintf("http://%s/realms/%s", baseURL, realm)
	kcAuth, err := NewKeycloakAuth(
		fmt.Sprintf("%s/protocol/openid-connect/certs", issuer),
		issuer,
		audience,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("keycloak jwks: %w", err)
	}

	s := &Service{
		Client:       client,
		Realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		KCAuth:       kcAuth,
	}

	if err := s.selfTest(); err != nil {
		kcAuth.Close()
		return nil, err
	}

	return s, nil
}

func (s *Service) selfTest() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := s.loginAdmin(ctx)
	if err != nil {
		return fmt.Errorf("keycloak auth failed: %w", err)
	}

	if _, err := s.Client.GetRealm(ctx, token, s.Realm); err != nil {
		return fmt.Errorf("keycloak permission check failed: %w", err)
	}

	return nil
}

func (s *Service) loginAdmin(ctx context.Context) (string, error) {
	jwt, err := s.Client.LoginClient(ctx, s.clientID, s.clientSecret, s.Realm)
	if err != nil {
		return "", err
	}
	return jwt.AccessToken, nil
}

// Register creates an enabled realm user with the email as username.
// Keycloak owns the password, so no local hash is returned.
func (s *Service) Register(ctx context.Context, email, password, name string) (string, []byte, error) {
	token, err := s.loginAdmin(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("keycloak admin login: %w", err)
	}

	first, last, _ := strings.Cut(name, " ")
	user := gocloak.User{
		Username:      gocloak.StringP(email),
		Email:         gocloak.StringP(email),
		EmailVerified: gocloak.BoolP(false),
		Enabled:       gocloak.BoolP(true),
		FirstName:     gocloak.StringP(first),
		LastName:      gocloak.StringP(last),
		Credentials: &[]gocloak.CredentialRepresentation{
			{
				Type:      gocloak.StringP("password"),
				Value:     gocloak.StringP(password),
				Temporary: gocloak.BoolP(false),
			},
		},
	}

	id, err := s.Client.CreateUser(ctx, token, s.Realm, user)
	if err != nil {
		return "", nil, fmt.Errorf("keycloak create user: %w", err)
	}

	s.logger.Debugw("keycloak user created", "user", id)
	return id, nil, nil
}

func (s *Service) Unregister(ctx context.Context, subject string) error {
	token, err := s.loginAdmin(ctx)
	if err != nil {
		return fmt.Errorf("keycloak admin login: %w", err)
	}
	if err := s.Client.DeleteUser(ctx, token, s.Realm, subject); err != nil {
		return fmt.Errorf("keycloak delete user: %w", err)
	}
	s.logger.Debugw("keycloak user removed", "user", subject)
	return nil
}

func (s *Service) Token(ctx context.Context, u *account.User, password string) (string, error) {
	jwt, err := s.Client.Login(ctx, s.clientID, s.clientSecret, s.Realm, u.Email, password)
	if err != nil {
		return "", err
	}
	return jwt.AccessToken, nil
}

func (s *Service) RequireUser() gin.HandlerFunc {
	return s.KCAuth.RequireUser()
}

func (s *Service) Close() {
	s.KCAuth.Close()
}
