package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

const defaultGatewayTimeout = 10 * time.Second

const (
	loginPath    = "/auth/login"
	refreshPath  = "/auth/refresh-token"
	userInfoPath = "/auth/user-info"
	logoutPath   = "/auth/logout"
)

// GatewayConfig configures the HTTP auth gateway
type GatewayConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// Validate will run validation rules
func (c GatewayConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.BaseURL,
			validation.Required,
			is.URL,
		),
	)
}

// HTTPGateway implements AuthGateway against the backend's REST wire contract.
// It maps transport-level failures to the session error taxonomy so callers
// never see raw HTTP error shapes.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	logger  Logger
}

// Verify interface compliance
var _ AuthGateway = (*HTTPGateway)(nil)

// NewHTTPGateway returns a gateway for the backend at cfg.BaseURL
func NewHTTPGateway(cfg GatewayConfig) (*HTTPGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid gateway config").
			WithCode(errors.CodeBadRequest)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  defLogger{},
	}, nil
}

func (g *HTTPGateway) WithLogger(logger Logger) *HTTPGateway {
	g.logger = logger
	return g
}

// WithHTTPClient overrides the underlying HTTP client, e.g. to add transport
// instrumentation. The client should carry its own timeout.
func (g *HTTPGateway) WithHTTPClient(client *http.Client) *HTTPGateway {
	if client != nil {
		g.client = client
	}
	return g
}

type loginRequestBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequestBody struct {
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges a username/password pair for a token response
func (g *HTTPGateway) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	res := &TokenResponse{}
	err := g.postJSON(ctx, loginPath, "", loginRequestBody{
		Username: username,
		Password: password,
	}, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Refresh exchanges a refresh token for a new token response
func (g *HTTPGateway) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	res := &TokenResponse{}
	err := g.postJSON(ctx, refreshPath, "", refreshRequestBody{
		RefreshToken: refreshToken,
	}, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// FetchProfile retrieves the profile of the user the access token belongs to
func (g *HTTPGateway) FetchProfile(ctx context.Context, accessToken string) (*UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+userInfoPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, ErrNetwork.Category, ErrNetwork.Message).
			WithTextCode(ErrNetwork.TextCode)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	profile := &UserProfile{}
	if err := g.do(req, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Revoke terminates the session server side. Callers treat failure as
// best-effort; the gateway still reports it so it can be logged.
func (g *HTTPGateway) Revoke(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+logoutPath, nil)
	if err != nil {
		return errors.Wrap(err, ErrNetwork.Category, ErrNetwork.Message).
			WithTextCode(ErrNetwork.TextCode)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	return g.do(req, nil)
}

func (g *HTTPGateway) postJSON(ctx context.Context, path, bearer string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode request body").
			WithCode(errors.CodeInternal)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, ErrNetwork.Category, ErrNetwork.Message).
			WithTextCode(ErrNetwork.TextCode)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return g.do(req, out)
}

func (g *HTTPGateway) do(req *http.Request, out any) error {
	res, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("gateway transport failure", "path", req.URL.Path, "error", err)
		return errors.Wrap(err, ErrNetwork.Category, ErrNetwork.Message).
			WithTextCode(ErrNetwork.TextCode)
	}
	defer res.Body.Close()

	if err := statusError(res.StatusCode); err != nil {
		g.logger.Debug("gateway rejected request", "path", req.URL.Path, "status", res.StatusCode)
		return err
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrap(err, ErrServer.Category, "failed to decode response body").
			WithTextCode(ErrServer.TextCode)
	}

	return nil
}

// statusError maps an HTTP status to the session error taxonomy. 400-class
// auth rejections collapse to ErrUnauthorized; the Manager refines those per
// operation.
func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized,
		status == http.StatusForbidden,
		status == http.StatusBadRequest:
		return ErrUnauthorized
	case status >= 500:
		return errors.New(fmt.Sprintf("auth server responded %d", status), ErrServer.Category).
			WithTextCode(ErrServer.TextCode).
			WithCode(errors.CodeInternal)
	default:
		return errors.New(fmt.Sprintf("unexpected auth server response %d", status), ErrServer.Category).
			WithTextCode(ErrServer.TextCode).
			WithCode(errors.CodeInternal)
	}
}
