package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims represents the token claims the client reads for display and
// expiry bookkeeping
type IdentityClaims interface {
	Subject() string
	Username() string
	Email() string
	Verified() bool
	Attributes() map[string]any
	Expires() time.Time
	IssuedAt() time.Time
}

// SessionClaims is the concrete implementation of IdentityClaims
type SessionClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string         `json:"username,omitempty"`
	EmailAddress      string         `json:"email,omitempty"`
	EmailVerified     bool           `json:"email_verified,omitempty"`
	Extra             map[string]any `json:"attributes,omitempty"`
}

// Verify interface compliance
var _ IdentityClaims = (*SessionClaims)(nil)

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Username returns the preferred username, falling back to the subject
func (c *SessionClaims) Username() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Subject()
}

// Email returns the email claim
func (c *SessionClaims) Email() string {
	return c.EmailAddress
}

// Verified returns the email verification flag
func (c *SessionClaims) Verified() bool {
	return c.EmailVerified
}

// Attributes exposes custom claim extensions
func (c *SessionClaims) Attributes() map[string]any {
	return c.Extra
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
