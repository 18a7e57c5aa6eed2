package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "usf-survey-web"

var ErrInvalidToken = errors.New("session: invalid or tampered token")

// Tokens signs browser session IDs so the cookie value cannot be forged.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Issue returns a signed token carrying the session ID.
func (t *Tokens) Issue(id string) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:   issuer,
		Subject:  id,
		IssuedAt: jwt.NewNumericDate(t.now()),
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return s, nil
}

// Parse validates the token and returns the session ID it carries.
func (t *Tokens) Parse(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
