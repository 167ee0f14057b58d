package session

// TokenResponse is the token payload returned by the auth backend on login
// and refresh. Refresh responses may omit the refresh token when the backend
// does not rotate it.
type TokenResponse struct {
	TokenType    string `json:"token_type,omitempty"`
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserProfile is the profile payload returned by the user-info endpoint.
type UserProfile struct {
	Username   string         `json:"username"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
