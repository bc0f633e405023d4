// Package session holds the places a session token can live: a cookie on
// the browser behind the gateway, or process memory for the terminal client.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/edumarket/storefront/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token fields the gateway reads. The marketplace API
// is the only party that verifies the signature.
type Claims struct {
	Subject   string
	Role      domain.Role
	ExpiresAt time.Time
}

// ParseClaims decodes token without verifying it. Tokens that are not JWTs
// yield an error; callers fall back to a session cookie.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	var c Claims
	c.Subject, _ = mc.GetSubject()
	if role, ok := mc["role"].(string); ok {
		c.Role = domain.Role(role)
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// OwnerKey is the gin context key RequireSession stores Owner under.
const OwnerKey = "session_owner"

// Owner names the user behind token: the sub claim when the token carries
// one, otherwise a digest of the token itself.
func Owner(token string) string {
	if c, err := ParseClaims(token); err == nil && c.Subject != "" {
		return "sub:" + c.Subject
	}
	sum := sha256.Sum256([]byte(token))
	return "tok:" + hex.EncodeToString(sum[:])
}
