package session

import "github.com/goliatone/go-errors"

const (
	TextCodeInvalidCredentials = "session_invalid_credentials"
	TextCodeSessionExpired     = "session_expired"
	TextCodeUnauthorized       = "session_unauthorized"
	TextCodeNetworkFailure     = "session_network_failure"
	TextCodeServerFailure      = "session_server_failure"
	TextCodeTokenMalformed     = "session_token_malformed"
)

// ErrInvalidCredentials is returned by Login when the backend rejects the
// username/password pair. Expected, user-facing outcome: never logged as an error.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrSessionExpired is returned when no usable refresh token remains. It routes
// the caller back to the anonymous entry point.
var ErrSessionExpired = errors.New("session expired", errors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is the gateway-level rejection (401-class response). The
// Manager maps it to ErrInvalidCredentials or ErrSessionExpired before it
// reaches callers.
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrNetwork is returned for transport failures and timeouts. Retryable by the
// caller; the Manager performs no automatic retries.
var ErrNetwork = errors.New("network failure", errors.CategoryOperation).
	WithTextCode(TextCodeNetworkFailure).
	WithCode(errors.CodeInternal)

// ErrServer is returned for 5xx responses from the auth backend.
var ErrServer = errors.New("auth server failure", errors.CategoryOperation).
	WithTextCode(TextCodeServerFailure).
	WithCode(errors.CodeInternal)

// ErrTokenMalformed is returned when a stored token is not a well-formed
// claims structure. Fail-closed: treated the same as an expired session.
var ErrTokenMalformed = errors.New("malformed token", errors.CategoryBadInput).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeBadRequest)

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsInvalidCredentialsError will check for rejected logins
func IsInvalidCredentialsError(err error) bool {
	return hasTextCode(err, TextCodeInvalidCredentials)
}

// IsSessionExpiredError will check for aged-out sessions
func IsSessionExpiredError(err error) bool {
	return hasTextCode(err, TextCodeSessionExpired)
}

// IsUnauthorizedError will check for gateway-level 401 rejections
func IsUnauthorizedError(err error) bool {
	return hasTextCode(err, TextCodeUnauthorized)
}

// IsNetworkError will check for transport failures
func IsNetworkError(err error) bool {
	return hasTextCode(err, TextCodeNetworkFailure)
}

// IsServerError will check for upstream 5xx failures
func IsServerError(err error) bool {
	return hasTextCode(err, TextCodeServerFailure)
}

// IsTokenMalformedError will check for undecodable tokens
func IsTokenMalformedError(err error) bool {
	return hasTextCode(err, TextCodeTokenMalformed)
}
