package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// Claims is the claims section of a session token. The subject falls back
// to the "id" claim when "sub" is absent.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Derive parses the token's claims without verifying its signature and
// builds the session they describe. It fails with domain.ErrInvalidToken when
// the token is malformed or lacks subject, role or expiry. Expiry is not
// checked here.
func Derive(token string) (*domain.Session, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, invalidToken(err)
	}
	return fromClaims(token, &claims)
}

// DeriveVerified is Derive with an HS256 signature check against secret.
func DeriveVerified(token string, secret []byte) (*domain.Session, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, invalidToken(err)
	}
	return fromClaims(token, &claims)
}

func fromClaims(token string, c *Claims) (*domain.Session, error) {
	subject := c.Subject
	if subject == "" {
		subject = c.UserID
	}
	if strings.TrimSpace(subject) == "" {
		return nil, invalidToken(errors.New("missing subject claim"))
	}
	if c.Role == "" {
		return nil, invalidToken(errors.New("missing role claim"))
	}
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return nil, invalidToken(err)
	}
	if c.ExpiresAt == nil {
		return nil, invalidToken(errors.New("missing exp claim"))
	}

	return &domain.Session{
		Token: token,
		Identity: domain.Identity{
			SubjectID: subject,
			Email:     c.Email,
			Role:      role,
			FirstName: c.FirstName,
			LastName:  c.LastName,
			ExpiresAt: c.ExpiresAt.Time.UTC(),
		},
	}, nil
}

func invalidToken(cause error) error {
	return &domain.Error{Kind: domain.KindInvalidToken, Op: "derive session", Err: fmt.Errorf("%w: %v", domain.ErrInvalidToken, cause)}
}
