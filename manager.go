package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultSkewMargin = 30 * time.Second

const (
	flightKeyBootstrap = "bootstrap"
	flightKeyRefresh   = "refresh"
)

// Manager owns the session lifecycle: login, logout, silent refresh, and
// expiry checks. It is the single source of truth for whether a valid session
// exists. One Manager serves one logical session per client instance.
type Manager struct {
	store   TokenStore
	gateway AuthGateway
	decoder TokenDecoder
	logger  Logger
	sink    EventSink
	skew    time.Duration

	flight singleflight.Group

	mu        sync.RWMutex
	state     State
	identity  *UserIdentity
	epoch     uint64
	listeners []StateListener
}

// Verify interface compliance
var _ SessionManager = (*Manager)(nil)

// NewManager returns a new session Manager in StateUnknown
func NewManager(store TokenStore, gateway AuthGateway, cfg Config) *Manager {
	skew := defaultSkewMargin
	if cfg != nil && cfg.GetSkewMargin() > 0 {
		skew = time.Duration(cfg.GetSkewMargin()) * time.Second
	}

	return &Manager{
		store:   store,
		gateway: gateway,
		decoder: NewTokenCodec(defLogger{}),
		logger:  defLogger{},
		sink:    noopEventSink{},
		skew:    skew,
		state:   StateUnknown,
	}
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	m.logger = logger
	return m
}

// WithDecoder sets a custom token decoder for backends with bespoke claim shapes.
func (m *Manager) WithDecoder(decoder TokenDecoder) *Manager {
	m.decoder = decoder
	return m
}

// WithEventSink configures an EventSink for emitting session lifecycle events.
func (m *Manager) WithEventSink(sink EventSink) *Manager {
	m.sink = normalizeEventSink(sink)
	return m
}

// OnStateChange registers a listener invoked after every state transition.
// Listeners observe transitions; they must never mutate session state.
func (m *Manager) OnStateChange(listener StateListener) {
	if listener == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, listener)
	m.mu.Unlock()
}

// State returns the current session state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Identity returns the current user identity, nil unless authenticated
func (m *Manager) Identity() *UserIdentity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// Bootstrap resolves StateUnknown exactly once: it restores a persisted
// session when one exists and is still usable, otherwise settles on
// StateAnonymous. Concurrent calls await the same in-flight resolution.
func (m *Manager) Bootstrap(ctx context.Context) error {
	if m.State() != StateUnknown {
		return nil
	}

	_, err, _ := m.flight.Do(flightKeyBootstrap, func() (any, error) {
		return nil, m.bootstrap(context.WithoutCancel(ctx))
	})
	return err
}

func (m *Manager) bootstrap(ctx context.Context) error {
	// a second caller may land here after the first already resolved
	if m.State() != StateUnknown {
		return nil
	}

	creds, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error("bootstrap failed to load credentials", "error", err)
		m.transition(ctx, StateAnonymous, nil, EventExpired, nil)
		return err
	}

	if creds == nil {
		m.logger.Debug("bootstrap found no stored session")
		m.transition(ctx, StateAnonymous, nil, EventBootstrap, nil)
		return nil
	}

	if !creds.ExpiresWithin(time.Now(), 0) {
		return m.restoreSession(ctx, creds)
	}

	// aged-out credentials get exactly one silent refresh attempt
	if err := m.Refresh(ctx); err != nil {
		if m.State() == StateUnknown {
			m.transition(ctx, StateAnonymous, nil, EventExpired, nil)
		}
		return err
	}
	return nil
}

// restoreSession rebuilds the authenticated state from stored credentials
// that have not yet expired.
func (m *Manager) restoreSession(ctx context.Context, creds *CredentialSet) error {
	claims, err := m.decoder.Decode(creds.IDToken)
	if err != nil {
		m.logger.Warn("bootstrap stored id token is malformed", "error", err)
		return m.settleExpired(ctx, m.currentEpoch())
	}

	identity := identityFromClaims(claims)

	profile, err := m.gateway.FetchProfile(ctx, creds.AccessToken)
	switch {
	case err == nil:
		identity = identity.withProfile(profile)
	case IsUnauthorizedError(err):
		// the backend no longer honors the access token; try the refresh token
		m.logger.Info("bootstrap access token rejected, attempting refresh")
		if err := m.Refresh(ctx); err != nil {
			if m.State() == StateUnknown {
				m.transition(ctx, StateAnonymous, nil, EventExpired, nil)
			}
			return err
		}
		return nil
	default:
		// transport failure: the locally decoded identity stands until the
		// next authenticated call reconciles with the backend
		m.logger.Warn("bootstrap profile fetch failed, using offline identity", "error", err)
	}

	m.transition(ctx, StateAuthenticated, identity, EventBootstrap, map[string]any{
		"subject": identity.Subject,
	})
	return nil
}

// Login exchanges credentials for a session. A backend rejection surfaces as
// ErrInvalidCredentials, an expected user-facing outcome; transport failures
// surface as ErrNetwork/ErrServer for the caller's own retry handling.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	res, err := m.gateway.Login(ctx, username, password)
	if err != nil {
		if IsUnauthorizedError(err) {
			m.logger.Info("login rejected", "username", username)
			m.emit(ctx, EventLoginFailure, "", map[string]any{"username": username})
			return ErrInvalidCredentials
		}
		m.logger.Error("login transport failure", "error", err)
		m.emit(ctx, EventLoginFailure, "", map[string]any{
			"username": username,
			"error":    err.Error(),
		})
		return err
	}

	creds := credentialsFromTokenResponse(res, nil, time.Now())
	if !creds.Complete() {
		m.logger.Error("login token response is incomplete")
		m.emit(ctx, EventLoginFailure, "", map[string]any{"username": username})
		return ErrServer
	}

	claims, err := m.decoder.Decode(creds.IDToken)
	if err != nil {
		m.logger.Error("login id token is malformed", "error", err)
		m.emit(ctx, EventLoginFailure, "", map[string]any{"username": username})
		return err
	}

	identity := identityFromClaims(claims)

	m.mu.Lock()
	m.epoch++
	if err := m.store.Save(ctx, creds); err != nil {
		m.mu.Unlock()
		m.logger.Error("login failed to persist credentials", "error", err)
		return err
	}
	listeners := m.apply(StateAuthenticated, identity)
	m.mu.Unlock()

	m.notify(listeners, StateAuthenticated, identity)
	m.emit(ctx, EventLoginSuccess, identity.Subject, map[string]any{"username": username})

	return nil
}

// Logout terminates the session. The server-side revoke is best-effort: a
// network failure never blocks local termination. A refresh in flight while
// Logout runs is discarded at apply time.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.epoch++
	m.mu.Unlock()

	creds, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn("logout failed to load credentials", "error", err)
	}

	if creds != nil {
		if err := m.gateway.Revoke(ctx, creds.AccessToken); err != nil {
			m.logger.Warn("logout revoke failed", "error", err)
		}
	}

	m.mu.Lock()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("logout failed to clear credentials", "error", err)
	}
	listeners := m.apply(StateAnonymous, nil)
	m.mu.Unlock()

	m.notify(listeners, StateAnonymous, nil)
	m.emit(ctx, EventLogout, "", nil)
}

// Refresh exchanges the stored refresh token for a new credential set. At
// most one refresh is in flight at a time: concurrent callers await the same
// outstanding attempt instead of issuing duplicate network calls, because
// refresh tokens are rotated server-side and duplicates would race.
func (m *Manager) Refresh(ctx context.Context) error {
	// detached context: session state is process-wide, so a caller navigating
	// away must not cancel a refresh other callers are waiting on
	_, err, _ := m.flight.Do(flightKeyRefresh, func() (any, error) {
		return nil, m.refresh(context.WithoutCancel(ctx))
	})
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	epoch := m.currentEpoch()

	creds, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error("refresh failed to load credentials", "error", err)
		return err
	}

	if creds == nil || creds.RefreshToken == "" {
		m.logger.Debug("refresh has no usable refresh token")
		return m.settleExpired(ctx, epoch)
	}

	res, err := m.gateway.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if IsUnauthorizedError(err) {
			m.logger.Info("refresh token rejected by backend")
			m.emit(ctx, EventRefreshFailure, "", nil)
			return m.settleExpired(ctx, epoch)
		}
		// recoverable transport failure: keep the credential set so the
		// caller's retry can try again
		m.logger.Warn("refresh transport failure", "error", err)
		m.emit(ctx, EventRefreshFailure, "", map[string]any{"error": err.Error()})
		return err
	}

	next := credentialsFromTokenResponse(res, creds, time.Now())
	if !next.Complete() {
		m.logger.Error("refresh token response is incomplete")
		m.emit(ctx, EventRefreshFailure, "", nil)
		return m.settleExpired(ctx, epoch)
	}

	claims, err := m.decoder.Decode(next.IDToken)
	if err != nil {
		m.logger.Warn("refreshed id token is malformed", "error", err)
		m.emit(ctx, EventRefreshFailure, "", nil)
		return m.settleExpired(ctx, epoch)
	}

	identity := identityFromClaims(claims)

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		m.logger.Info("discarding stale refresh result after logout/login")
		return m.resolveSuperseded()
	}
	if err := m.store.Save(ctx, next); err != nil {
		m.mu.Unlock()
		m.logger.Error("refresh failed to persist credentials", "error", err)
		return err
	}
	listeners := m.apply(StateAuthenticated, identity)
	m.mu.Unlock()

	m.notify(listeners, StateAuthenticated, identity)
	m.emit(ctx, EventRefreshSuccess, identity.Subject, nil)

	return nil
}

// EnsureFresh is called before any authenticated network call. When the
// stored expiry is within the skew margin of now it triggers a refresh and
// awaits it; otherwise it returns immediately with no network traffic.
func (m *Manager) EnsureFresh(ctx context.Context) error {
	creds, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error("ensure fresh failed to load credentials", "error", err)
		return err
	}

	if creds != nil && !creds.ExpiresWithin(time.Now(), m.skew) {
		return nil
	}

	return m.Refresh(ctx)
}

func (m *Manager) currentEpoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// settleExpired clears the credential set and transitions to StateAnonymous,
// unless a login advanced the epoch while this attempt was in flight.
func (m *Manager) settleExpired(ctx context.Context, epoch uint64) error {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return m.resolveSuperseded()
	}
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear expired credentials", "error", err)
	}
	listeners := m.apply(StateAnonymous, nil)
	m.mu.Unlock()

	m.notify(listeners, StateAnonymous, nil)
	m.emit(ctx, EventExpired, "", nil)

	return ErrSessionExpired
}

// resolveSuperseded decides the outcome for a refresh attempt that lost to a
// concurrent login or logout: the winner's state stands.
func (m *Manager) resolveSuperseded() error {
	if m.State() == StateAuthenticated {
		return nil
	}
	return ErrSessionExpired
}

// apply sets the state under the caller-held lock and returns the listener
// snapshot to notify after unlocking.
func (m *Manager) apply(state State, identity *UserIdentity) []StateListener {
	m.state = state
	m.identity = identity
	listeners := make([]StateListener, len(m.listeners))
	copy(listeners, m.listeners)
	return listeners
}

// transition is the unlocked variant of apply+notify for callers that hold no lock.
func (m *Manager) transition(ctx context.Context, state State, identity *UserIdentity, event EventType, metadata map[string]any) {
	m.mu.Lock()
	listeners := m.apply(state, identity)
	m.mu.Unlock()

	m.notify(listeners, state, identity)

	subject := ""
	if identity != nil {
		subject = identity.Subject
	}
	m.emit(ctx, event, subject, metadata)
}

func (m *Manager) notify(listeners []StateListener, state State, identity *UserIdentity) {
	for _, listener := range listeners {
		listener(state, identity)
	}
}

func (m *Manager) emit(ctx context.Context, eventType EventType, subject string, metadata map[string]any) {
	event := Event{
		EventType:  eventType,
		State:      m.State(),
		Subject:    subject,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := m.sink.Record(ctx, event); err != nil {
		m.logger.Warn("event sink record error: %v", err)
	}
}
