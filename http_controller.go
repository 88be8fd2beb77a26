package authclient

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterRoutes mounts the auth screens: login and registration (inverse
// guarded), logout, and the protected dashboard with session management.
func RegisterRoutes[T any](app router.Router[T], opts ...ControllerOption) {

	controller := NewController(opts...)

	public := NewGuard(WithoutAuthRequirement()).Middleware(controller.Manager)
	protected := NewGuard().Middleware(controller.Manager)

	app.
		Get(controller.Routes.Login, controller.LoginShow, public).
		SetName("sign-in.get")

	app.
		Post(controller.Routes.Login, controller.LoginPost, public).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow, public).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate, public).
		SetName("register.post")

	app.Get(controller.Routes.Dashboard, controller.DashboardShow, protected).
		SetName("dashboard.get")

	app.Post(controller.Routes.RefreshSessions, controller.SessionsRefresh, protected).
		SetName("sessions-refresh.post")
	app.Post(controller.Routes.TerminateSession, controller.SessionTerminate, protected).
		SetName("sessions-terminate.post")
	app.Post(controller.Routes.TerminateAllSessions, controller.SessionTerminateAll, protected).
		SetName("sessions-terminate-all.post")
}

type ControllerRoutes struct {
	Login                string
	Logout               string
	Register             string
	Dashboard            string
	RefreshSessions      string
	TerminateSession     string
	TerminateAllSessions string
}

type ControllerViews struct {
	Login     string
	Register  string
	Dashboard string
	Loading   string
}

type Controller struct {
	Debug        bool
	Logger       Logger
	Manager      *Manager
	Routes       *ControllerRoutes
	Views        *ControllerViews
	ErrorHandler router.ErrorHandler
}

type ControllerOption func(*Controller) *Controller

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &ControllerRoutes{
			Login:                "/login",
			Logout:               "/logout",
			Register:             "/register",
			Dashboard:            "/dashboard",
			RefreshSessions:      "/sessions/refresh",
			TerminateSession:     "/sessions/terminate",
			TerminateAllSessions: "/sessions/terminate-all",
		},
		Views: &ControllerViews{
			Login:     "login",
			Register:  "register",
			Dashboard: "dashboard",
			Loading:   "loading",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing Manager in auth controller...")
	}

	return c
}

// WithControllerManager wires the state container the controller drives.
func WithControllerManager(m *Manager) ControllerOption {
	return func(c *Controller) *Controller {
		c.Manager = m
		return c
	}
}

// WithControllerDebug toggles payload dumps on authentication posts.
func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
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
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required.Error("Email is required"),
			is.Email.Error("Please enter a valid email address"),
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password is required"),
		),
	)
}

func (a *Controller) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	creds := LoginCredentials{
		Email:    payload.Email,
		Password: payload.Password,
	}

	if err := a.Manager.Login(ctx.Context(), creds); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{
				"authentication": messageFromError(err),
			},
			"record": payload,
		})
	}

	return ctx.Redirect(a.Routes.Dashboard, router.StatusSeeOther)
}

func (a *Controller) LogOut(ctx router.Context) error {
	if err := a.Manager.Logout(ctx.Context()); err != nil {
		a.Logger.Warn("logout error: ", "error", err)
	}
	return ctx.Redirect(a.Routes.Login, router.StatusTemporaryRedirect)
}

func (a *Controller) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterRequest{},
	})
}

// RegisterRequest is the registration form payload.
type RegisterRequest struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload. The rules mirror the pure validators
// so form errors and state machine errors use identical wording.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.FirstName,
			validation.By(ValidateNameRule("First name")),
		),
		validation.Field(
			&r.LastName,
			validation.By(ValidateNameRule("Last name")),
		),
		validation.Field(
			&r.Email,
			validation.Required.Error("Email is required"),
			is.Email.Error("Please enter a valid email address"),
		),
		validation.Field(
			&r.Password,
			validation.By(ValidatePasswordRule),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.By(ValidateConfirmationRule(r.Password)),
		),
	)
}

func (a *Controller) RegistrationCreate(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	creds := RegisterCredentials{
		FirstName:       payload.FirstName,
		LastName:        payload.LastName,
		Email:           payload.Email,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
	}

	if err := a.Manager.Register(ctx.Context(), creds); err != nil {
		a.Logger.Error("register error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  messageFromError(err),
			"system_message": "Registration failed",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"registration": messageFromError(err)},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Successful user registration",
	}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
}

// sessionView decorates a session record for display.
type sessionView struct {
	Session
	Expired bool
}

func (a *Controller) DashboardShow(ctx router.Context) error {
	state := a.Manager.State()

	now := time.Now()
	sessions := make([]sessionView, 0, len(state.Sessions))
	for _, s := range state.Sessions {
		sessions = append(sessions, sessionView{
			Session: s,
			Expired: !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt),
		})
	}

	data := router.ViewContext{
		"user":     state.User,
		"sessions": sessions,
		"error":    state.Error,
	}

	if exp, ok := TokenExpiry(state.Token); ok {
		data["token_expires_at"] = exp
	}

	return ctx.Render(a.Views.Dashboard, data)
}

func (a *Controller) SessionsRefresh(ctx router.Context) error {
	if err := a.Manager.RefreshSessions(ctx.Context()); err != nil {
		a.Logger.Error("session refresh error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  messageFromError(err),
			"system_message": "Failed to refresh sessions",
		}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
	}

	return ctx.Redirect(a.Routes.Dashboard, router.StatusSeeOther)
}

// TerminateSessionRequest identifies the session to terminate.
type TerminateSessionRequest struct {
	SessionID string `form:"session_id" json:"session_id"`
}

// Validate will run validation rules
func (r TerminateSessionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SessionID, validation.Required),
	)
}

func (a *Controller) SessionTerminate(ctx router.Context) error {
	payload := new(TerminateSessionRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("terminate session parse payload: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Missing session identifier",
		}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
	}

	if err := a.Manager.TerminateSession(ctx.Context(), payload.SessionID); err != nil {
		a.Logger.Error("terminate session error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  messageFromError(err),
			"system_message": "Failed to terminate session",
		}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Session terminated",
	}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
}

func (a *Controller) SessionTerminateAll(ctx router.Context) error {
	if err := a.Manager.TerminateAllSessions(ctx.Context()); err != nil {
		a.Logger.Error("terminate all sessions error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  messageFromError(err),
			"system_message": "Failed to terminate sessions",
		}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "All sessions terminated",
	}).Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
}

// ValidateNameRule adapts ValidateName to an ozzo rule.
func ValidateNameRule(fieldLabel string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if result := ValidateName(s, fieldLabel); !result.IsValid {
			return errors.New(result.Message)
		}
		return nil
	}
}

// ValidatePasswordRule adapts ValidatePassword to an ozzo rule.
func ValidatePasswordRule(value any) error {
	s, _ := value.(string)
	if result := ValidatePassword(s); !result.IsValid {
		return errors.New(result.Message)
	}
	return nil
}

// ValidateConfirmationRule adapts ValidatePasswordConfirmation to an ozzo
// rule bound to the password being confirmed.
func ValidateConfirmationRule(password string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if result := ValidatePasswordConfirmation(password, s); !result.IsValid {
			return errors.New(result.Message)
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map for templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	if err != nil {
		out["form"] = err.Error()
	}

	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
