package authclient

import (
	"net/http"
	"sync"

	"github.com/goliatone/go-router"
)

// GuardAction is what the guard tells the view layer to do.
type GuardAction int

const (
	// GuardRender means the wrapped content may be shown.
	GuardRender GuardAction = iota
	// GuardLoading means the state is still being determined; show a
	// transitional view and never redirect.
	GuardLoading
	// GuardRedirect means navigation to Decision.Target is required.
	GuardRedirect
)

// Decision is the outcome of evaluating the guard against a state snapshot.
type Decision struct {
	Action GuardAction
	Target string
}

// Guard gates rendering based on authentication state. RequireAuth guards
// protected screens; the inverse configuration keeps authenticated users off
// login and registration screens.
type Guard struct {
	RedirectTo  string
	HomeRoute   string
	RequireAuth bool
	LoadingView string
}

type GuardOption func(*Guard)

// WithRedirectTo overrides the path unauthenticated users are sent to.
func WithRedirectTo(path string) GuardOption {
	return func(g *Guard) {
		if path != "" {
			g.RedirectTo = path
		}
	}
}

// WithHomeRoute overrides the authenticated-home path used by inverse guards.
func WithHomeRoute(path string) GuardOption {
	return func(g *Guard) {
		if path != "" {
			g.HomeRoute = path
		}
	}
}

// WithoutAuthRequirement flips the guard: content renders only for
// unauthenticated visitors.
func WithoutAuthRequirement() GuardOption {
	return func(g *Guard) {
		g.RequireAuth = false
	}
}

// WithLoadingView sets the template rendered by Middleware while loading.
func WithLoadingView(view string) GuardOption {
	return func(g *Guard) {
		if view != "" {
			g.LoadingView = view
		}
	}
}

// NewGuard returns a guard requiring authentication, redirecting to /login,
// with /dashboard as the authenticated home.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{
		RedirectTo:  "/login",
		HomeRoute:   "/dashboard",
		RequireAuth: true,
		LoadingView: "loading",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Evaluate is a pure decision function over the state snapshot. It never
// performs navigation itself.
func (g *Guard) Evaluate(s State) Decision {
	if s.IsLoading {
		return Decision{Action: GuardLoading}
	}

	if g.RequireAuth && !s.IsAuthenticated {
		return Decision{Action: GuardRedirect, Target: g.RedirectTo}
	}

	if !g.RequireAuth && s.IsAuthenticated {
		return Decision{Action: GuardRedirect, Target: g.HomeRoute}
	}

	return Decision{Action: GuardRender}
}

// Navigator performs the actual route change when a watched guard decides to
// redirect.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(path string) {
	if f != nil {
		f(path)
	}
}

// Watch evaluates the guard against the manager's current state and on every
// subsequent change. Navigation fires once per transition into a redirect
// decision; repeated notifications with the same decision do not re-trigger
// it. The returned function cancels the watch.
func (g *Guard) Watch(m *Manager, nav Navigator) func() {
	var mu sync.Mutex
	var last Decision
	var primed bool

	react := func(s State) {
		d := g.Evaluate(s)

		mu.Lock()
		changed := !primed || d != last
		last = d
		primed = true
		mu.Unlock()

		if changed && d.Action == GuardRedirect {
			nav.Navigate(d.Target)
		}
	}

	react(m.State())
	return m.Subscribe(react)
}

// Middleware applies the guard per request for server-rendered screens:
// loading states render the transitional view, redirect decisions redirect,
// anything else falls through to the handler.
func (g *Guard) Middleware(m *Manager) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			switch d := g.Evaluate(m.State()); d.Action {
			case GuardLoading:
				return ctx.Render(g.LoadingView, router.ViewContext{})
			case GuardRedirect:
				return ctx.Redirect(d.Target, http.StatusSeeOther)
			default:
				return next(ctx)
			}
		}
	}
}
