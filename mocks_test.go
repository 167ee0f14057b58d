package session_test

import (
	"context"
	"io"
	"mime/multipart"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const fixtureSigningKey = "test-signing-key"

// fixtureToken builds a signed HS256 id token for tests. The codec never
// checks the signature, but a well-formed token keeps fixtures realistic.
func fixtureToken(t *testing.T, sub, username string, exp time.Time) string {
	t.Helper()

	claims := &session.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		PreferredUsername: username,
		EmailAddress:      username + "@example.com",
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(fixtureSigningKey))
	require.NoError(t, err)
	return signed
}

// MockConfig implements session.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetContextKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetSkewMargin() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetEntryRoute() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetRejectedRouteKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetRejectedRouteDefault() string {
	args := m.Called()
	return args.String(0)
}

func newMockConfig() *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetContextKey").Return("identity")
	cfg.On("GetSkewMargin").Return(30)
	cfg.On("GetEntryRoute").Return("/login")
	cfg.On("GetRejectedRouteKey").Return("rejected_route")
	cfg.On("GetRejectedRouteDefault").Return("/")
	return cfg
}

// MockTokenStore implements session.TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Save(ctx context.Context, creds *session.CredentialSet) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

func (m *MockTokenStore) Load(ctx context.Context) (*session.CredentialSet, error) {
	args := m.Called(ctx)
	if creds, ok := args.Get(0).(*session.CredentialSet); ok {
		return creds, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// stubGateway is a hand-rolled AuthGateway double for concurrency-sensitive
// tests where testify's mock bookkeeping would get in the way. Function
// fields default to rejecting the call; counters are atomic.
type stubGateway struct {
	loginFn   func(ctx context.Context, username, password string) (*session.TokenResponse, error)
	refreshFn func(ctx context.Context, refreshToken string) (*session.TokenResponse, error)
	profileFn func(ctx context.Context, accessToken string) (*session.UserProfile, error)
	revokeFn  func(ctx context.Context, accessToken string) error

	loginCalls   atomic.Int64
	refreshCalls atomic.Int64
	profileCalls atomic.Int64
	revokeCalls  atomic.Int64
}

func (s *stubGateway) Login(ctx context.Context, username, password string) (*session.TokenResponse, error) {
	s.loginCalls.Add(1)
	if s.loginFn == nil {
		return nil, session.ErrUnauthorized
	}
	return s.loginFn(ctx, username, password)
}

func (s *stubGateway) Refresh(ctx context.Context, refreshToken string) (*session.TokenResponse, error) {
	s.refreshCalls.Add(1)
	if s.refreshFn == nil {
		return nil, session.ErrUnauthorized
	}
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubGateway) FetchProfile(ctx context.Context, accessToken string) (*session.UserProfile, error) {
	s.profileCalls.Add(1)
	if s.profileFn == nil {
		return nil, session.ErrUnauthorized
	}
	return s.profileFn(ctx, accessToken)
}

func (s *stubGateway) Revoke(ctx context.Context, accessToken string) error {
	s.revokeCalls.Add(1)
	if s.revokeFn == nil {
		return nil
	}
	return s.revokeFn(ctx, accessToken)
}

// fakeManager is a canned SessionManager for gate and controller tests
type fakeManager struct {
	mu       sync.Mutex
	state    session.State
	identity *session.UserIdentity

	loginErr     error
	bootstrapped bool
	loggedOut    bool
	ensureErr    error
}

func (f *fakeManager) Bootstrap(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bootstrapped = true
	if f.state == session.StateUnknown {
		f.state = session.StateAnonymous
	}
	return nil
}

func (f *fakeManager) Login(ctx context.Context, username, password string) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = session.StateAuthenticated
	return nil
}

func (f *fakeManager) Logout(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = true
	f.state = session.StateAnonymous
	f.identity = nil
}

func (f *fakeManager) Refresh(ctx context.Context) error {
	return nil
}

func (f *fakeManager) EnsureFresh(ctx context.Context) error {
	return f.ensureErr
}

func (f *fakeManager) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeManager) Identity() *session.UserIdentity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity
}

// MockContext mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) QueryValues(key string) []string {
	args := m.Called(key)
	return args.Get(0).([]string)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) LocalsMerge(key any, value map[string]any) map[string]any {
	args := m.Called(key, value)
	return args.Get(0).(map[string]any)
}

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	fh, _ := args.Get(0).(*multipart.FileHeader)
	return fh, args.Error(1)
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) IP() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) SendStatus(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) SendStream(r io.Reader) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *MockContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteParams() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}
