package session

import (
	"fmt"

	"github.com/google/uuid"
)

// UserIdentity describes the authenticated user. It is derived wholesale from
// the id token claims (plus profile attributes on bootstrap) and is immutable
// once constructed: refresh and login re-derive it, never patch it in place.
type UserIdentity struct {
	Subject    string         `json:"subject"`
	Username   string         `json:"username"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// UUID parses the subject as a UUID for backends that issue UUID subjects.
func (u *UserIdentity) UUID() (uuid.UUID, error) {
	return uuid.Parse(u.Subject)
}

// Attribute returns a single attribute value
func (u *UserIdentity) Attribute(key string) (any, bool) {
	if u == nil || u.Attributes == nil {
		return nil, false
	}
	val, ok := u.Attributes[key]
	return val, ok
}

// Email returns the email attribute if present
func (u *UserIdentity) Email() string {
	if val, ok := u.Attribute("email"); ok {
		if email, ok := val.(string); ok {
			return email
		}
	}
	return ""
}

func (u UserIdentity) String() string {
	return fmt.Sprintf("sub=%s username=%s attrs=%d", u.Subject, u.Username, len(u.Attributes))
}

// identityFromClaims derives a fresh identity from decoded token claims.
func identityFromClaims(claims IdentityClaims) *UserIdentity {
	if claims == nil {
		return nil
	}

	attrs := make(map[string]any)
	for k, v := range claims.Attributes() {
		attrs[k] = v
	}

	if email := claims.Email(); email != "" {
		attrs["email"] = email
	}

	return &UserIdentity{
		Subject:    claims.Subject(),
		Username:   claims.Username(),
		Attributes: attrs,
	}
}

// withProfile returns a new identity enriched with profile attributes. The
// receiver is left untouched.
func (u *UserIdentity) withProfile(profile *UserProfile) *UserIdentity {
	if u == nil || profile == nil {
		return u
	}

	merged := &UserIdentity{
		Subject:    u.Subject,
		Username:   u.Username,
		Attributes: make(map[string]any, len(u.Attributes)+len(profile.Attributes)),
	}

	for k, v := range u.Attributes {
		merged.Attributes[k] = v
	}
	for k, v := range profile.Attributes {
		merged.Attributes[k] = v
	}

	if profile.Username != "" {
		merged.Username = profile.Username
	}

	return merged
}
