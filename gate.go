package session

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteGate guards routes on session state: authenticated requests proceed
// with the identity attached, anonymous requests are redirected to the entry
// route, and an unresolved session is bootstrapped before the decision. The
// gate never mutates session state beyond triggering the idempotent bootstrap.
type RouteGate struct {
	manager          SessionManager
	cfg              Config
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

// NewRouteGate returns a gate over the given session manager
func NewRouteGate(manager SessionManager, cfg Config) (*RouteGate, error) {
	if manager == nil {
		return nil, errors.New("session manager is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	g := &RouteGate{
		manager: manager,
		cfg:     cfg,
		Logger:  defLogger{},
	}

	g.ErrorHandler = g.defaultErrHandler
	g.AuthErrorHandler = g.defaultAuthErrHandler

	return g, nil
}

// Protected returns the guarding middleware
func (g *RouteGate) Protected() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if g.manager.State() == StateUnknown {
				if err := g.manager.Bootstrap(ctx.Context()); err != nil {
					g.Logger.Debug("gate bootstrap did not restore a session", "error", err)
				}
			}

			if g.manager.State() != StateAuthenticated {
				return g.AuthErrorHandler(ctx, ErrSessionExpired)
			}

			identity := g.manager.Identity()
			ctx.Locals(g.contextKey(), identity)
			ctx.SetContext(WithIdentityContext(ctx.Context(), identity))

			return hf(ctx)
		}
	}
}

// EnsureFresh returns a middleware that proactively refreshes the session
// before handlers make authenticated backend calls.
func (g *RouteGate) EnsureFresh() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if err := g.manager.EnsureFresh(ctx.Context()); err != nil {
				if IsSessionExpiredError(err) {
					return g.AuthErrorHandler(ctx, err)
				}
				return g.ErrorHandler(ctx, err)
			}
			return hf(ctx)
		}
	}
}

func (g *RouteGate) contextKey() string {
	if g.cfg != nil && g.cfg.GetContextKey() != "" {
		return g.cfg.GetContextKey()
	}
	return "identity"
}

func (g *RouteGate) entryRoute() string {
	if g.cfg != nil && g.cfg.GetEntryRoute() != "" {
		return g.cfg.GetEntryRoute()
	}
	return "/login"
}

func (g *RouteGate) rejectedRouteKey() string {
	if g.cfg != nil && g.cfg.GetRejectedRouteKey() != "" {
		return g.cfg.GetRejectedRouteKey()
	}
	return "rejected_route"
}

func (g *RouteGate) rejectedRouteDefault() string {
	if g.cfg != nil && g.cfg.GetRejectedRouteDefault() != "" {
		return g.cfg.GetRejectedRouteDefault()
	}
	return "/"
}

// SetRedirect remembers the rejected route so a later login can return to it
func (g *RouteGate) SetRedirect(ctx router.Context) {
	rejectedRoute := g.rejectedRouteKey()

	g.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetRedirect returns the remembered rejected route, or def when none is set
func (g *RouteGate) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := g.rejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" && len(def) > 0 {
		return def[0]
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

// GetRedirectOrDefault returns the remembered rejected route, the referer, or
// the configured default, in that order
func (g *RouteGate) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := g.rejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = g.rejectedRouteDefault()
	}
	g.cookieDel(ctx, rejectedRoute)
	return r
}

func (g *RouteGate) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (g *RouteGate) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	g.Logger.Info(
		"Anonymous request, redirecting to entry route",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	g.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(g.entryRoute(), statusCode)
}

func (g *RouteGate) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	g.Logger.Info(
		"Gate error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return g.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}
