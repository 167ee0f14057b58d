package session

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterSessionRoutes mounts the login/logout flow on the given router
func RegisterSessionRoutes[T any](app router.Router[T], opts ...ControllerOption) {
	controller := NewController(opts...)

	app.
		Get(controller.Routes.Login, controller.LoginShow).
		SetName("sign-in.get")

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")
}

type ControllerRoutes struct {
	Login  string
	Logout string
}

type ControllerViews struct {
	Login string
}

// Controller drives the portal's login form flow over a session Manager.
type Controller struct {
	Debug        bool
	Logger       Logger
	Manager      SessionManager
	Gate         *RouteGate
	Routes       *ControllerRoutes
	Views        *ControllerViews
	ErrorHandler router.ErrorHandler
}

type ControllerOption func(*Controller) *Controller

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:       defLogger{},
		ErrorHandler: defaultControllerErrHandler,
		Routes: &ControllerRoutes{
			Login:  "/login",
			Logout: "/logout",
		},
		Views: &ControllerViews{
			Login: "login",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing SessionManager in session controller...")
	}

	return c
}

func WithControllerManager(manager SessionManager) ControllerOption {
	return func(c *Controller) *Controller {
		c.Manager = manager
		return c
	}
}

func WithControllerGate(gate *RouteGate) ControllerOption {
	return func(c *Controller) *Controller {
		c.Gate = gate
		return c
	}
}

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		c.Logger = logger
		return c
	}
}

func (a *Controller) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Username,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *Controller) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("Login post bind error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := a.Manager.Login(ctx.Context(), payload.Username, payload.Password); err != nil {
		if IsInvalidCredentialsError(err) {
			return ctx.Render(a.Views.Login, router.ViewContext{
				"errors": map[string]string{
					"authentication": "Invalid username or password",
				},
				"record": payload,
			})
		}

		a.Logger.Error("Login post error", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	redirect := "/"
	if a.Gate != nil {
		redirect = a.Gate.GetRedirectOrDefault(ctx)
	}

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *Controller) LogOut(ctx router.Context) error {
	a.Manager.Logout(ctx.Context())
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func defaultControllerErrHandler(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	return ctx.Status(richErr.Code).Render("errors/500", router.ViewContext{
		"error": richErr,
	})
}
