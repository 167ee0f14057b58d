package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// State is the observable session state. Exactly one variant holds at any
// time; transitions are driven only by Manager operations, never by views.
type State string

const (
	// StateUnknown means the session has not been checked yet
	StateUnknown State = "unknown"
	// StateAnonymous means no valid credential set exists
	StateAnonymous State = "anonymous"
	// StateAuthenticated means a valid credential set and identity exist
	StateAuthenticated State = "authenticated"
)

// TokenStore persists the current credential set. Implementations must be
// all-or-nothing: a partial read resolves to no session (nil, nil).
type TokenStore interface {
	Save(ctx context.Context, creds *CredentialSet) error
	Load(ctx context.Context) (*CredentialSet, error)
	Clear(ctx context.Context) error
}

// AuthGateway is the set of network operations the Manager depends on,
// implemented by a client of the remote auth backend.
type AuthGateway interface {
	Login(ctx context.Context, username, password string) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	FetchProfile(ctx context.Context, accessToken string) (*UserProfile, error)
	Revoke(ctx context.Context, accessToken string) error
}

// SessionManager holds methods to drive the session lifecycle
type SessionManager interface {
	Bootstrap(ctx context.Context) error
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context)
	Refresh(ctx context.Context) error
	EnsureFresh(ctx context.Context) error
	State() State
	Identity() *UserIdentity
}

// Config holds session options
type Config interface {
	GetContextKey() string
	GetSkewMargin() int
	GetEntryRoute() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
