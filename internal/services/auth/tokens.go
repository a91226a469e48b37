package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	// DefaultTokenTTL is the lifetime of an access token
	DefaultTokenTTL = 24 * time.Hour
	// DefaultIssuer is the iss claim of issued tokens
	DefaultIssuer = "smart-bookmarks"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or issuer checks
var ErrInvalidToken = models.NewDomainError(models.ErrUnauthorized, "Invalid or expired token")

// TokenManager issues and verifies HS256 access tokens
type TokenManager struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenManager creates a token manager. An empty secret is an error.
func NewTokenManager(secret string, ttl time.Duration, issuer string) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &TokenManager{key: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}, nil
}

// Issue signs an access token for user
func (m *TokenManager) Issue(user *models.User) (string, error) {
	now := m.now()
	tok, err := jwt.NewBuilder().
		Subject(user.ID.String()).
		Issuer(m.issuer).
		IssuedAt(now).
		Expiration(now.Add(m.ttl)).
		Claim("id", user.ID.String()).
		Claim("email", user.Email).
		Claim("name", user.DisplayName()).
		Claim("status", string(user.Status)).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, m.key))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

// Verify checks the signature, expiry and issuer of token and returns its claims
func (m *TokenManager) Verify(token string) (*models.AccessClaims, error) {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, m.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.issuer),
		jwt.WithClock(jwt.ClockFunc(m.now)),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if tok.Subject() == "" {
		return nil, ErrInvalidToken
	}

	return &models.AccessClaims{
		Subject:   tok.Subject(),
		ID:        stringClaim(tok, "id"),
		Email:     stringClaim(tok, "email"),
		Name:      stringClaim(tok, "name"),
		Status:    models.UserStatus(stringClaim(tok, "status")),
		Issuer:    tok.Issuer(),
		IssuedAt:  tok.IssuedAt(),
		ExpiresAt: tok.Expiration(),
	}, nil
}

func stringClaim(tok jwt.Token, name string) string {
	v, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
