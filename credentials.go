package session

import "time"

// CredentialSet is the bundle of tokens persisted for a session. All four
// fields are present together or the set is treated as absent; there is no
// partial credential state.
type CredentialSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	IDToken      string    `json:"id_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Complete reports whether every field of the set is populated. Stores use it
// to collapse partial reads into "no session".
func (c *CredentialSet) Complete() bool {
	if c == nil {
		return false
	}
	return c.AccessToken != "" &&
		c.RefreshToken != "" &&
		c.IDToken != "" &&
		!c.ExpiresAt.IsZero()
}

// ExpiresWithin reports whether the credential set expires before now+margin.
// The stored expiry is the sole authority for proactive refresh decisions.
func (c *CredentialSet) ExpiresWithin(now time.Time, margin time.Duration) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return true
	}
	return !now.Add(margin).Before(c.ExpiresAt)
}

// credentialsFromTokenResponse builds a credential set from a gateway token
// response. prev supplies the refresh token when the backend does not rotate
// it on refresh.
func credentialsFromTokenResponse(res *TokenResponse, prev *CredentialSet, now time.Time) *CredentialSet {
	if res == nil {
		return nil
	}

	refreshToken := res.RefreshToken
	if refreshToken == "" && prev != nil {
		refreshToken = prev.RefreshToken
	}

	return &CredentialSet{
		AccessToken:  res.AccessToken,
		RefreshToken: refreshToken,
		IDToken:      res.IDToken,
		ExpiresAt:    now.Add(time.Duration(res.ExpiresIn) * time.Second),
	}
}
