package authmw

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"kyri56xcaesar/teamup/internal/account"
)

const localIssuer = "teamup"

var _ account.IdentityProvider = (*LocalAuth)(nil)

// LocalAuth keeps bcrypt hashes in the users table and signs HS256 tokens.
type LocalAuth struct {
	secret []byte
	ttl    time.Duration
	cost   int
}

type LocalClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func NewLocalAuth(secret string, ttl time.Duration) (*LocalAuth, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required for local auth")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &LocalAuth{secret: []byte(secret), ttl: ttl, cost: bcrypt.DefaultCost}, nil
}

// WithCost lowers the bcrypt cost; tests use bcrypt.MinCost.
func (a *LocalAuth) WithCost(cost int) *LocalAuth {
	a.cost = cost
	return a
}

func (a *LocalAuth) Register(_ context.Context, _, password, _ string) (string, []byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", nil, err
	}
	return uuid.NewString(), hash, nil
}

// Unregister is a no-op; local credentials live only in the user row.
func (a *LocalAuth) Unregister(context.Context, string) error {
	return nil
}

func (a *LocalAuth) Token(_ context.Context, u *account.User, password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", err
	}
	return a.Issue(u.ID, u.Email)
}

func (a *LocalAuth) Issue(userID, email string) (string, error) {
	now := time.Now()
	claims := LocalClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    localIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *LocalAuth) Parse(token string) (*LocalClaims, error) {
	claims := &LocalClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithIssuer(localIssuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (a *LocalAuth) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := extractAccessToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized(err.Error()))
			return
		}

		claims, err := a.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized("Please authenticate."))
			return
		}

		c.Set(CtxToken, tokenStr)
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)
		c.Next()
	}
}
