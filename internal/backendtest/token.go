package backendtest

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"libranexus/internal/membership"
)

type claims struct {
	Role membership.Role `json:"role"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (ti *tokenIssuer) issue(userID string, role membership.Role) (string, error) {
	now := ti.now().UTC()
	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "libranexus-backend",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(ti.secret)
}

func (ti *tokenIssuer) validate(raw string) (*claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(ti.now))
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || c.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return c, nil
}
