package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Claims is what can be read from a token without the server's key.
type Claims struct {
	// JWT is false for opaque tokens; the other fields are then empty.
	JWT       bool
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseClaims decodes sub and exp from a JWT without verifying its
// signature. The server remains the authority on validity.
func ParseClaims(token string) Claims {
	parsed, _, err := new(jwt.Parser).ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}
	}

	c := Claims{JWT: true}
	if sub, ok := mc["sub"].(string); ok {
		c.Subject = sub
	}
	switch exp := mc["exp"].(type) {
	case float64:
		c.ExpiresAt = time.Unix(int64(exp), 0)
	case int64:
		c.ExpiresAt = time.Unix(exp, 0)
	}
	return c
}
