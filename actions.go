package authclient

// State is the authentication snapshot owned by the Manager. Values handed to
// subscribers and returned from Manager.State are copies; mutating them has
// no effect on the container.
type State struct {
	User            *User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
	Token           string
	Sessions        []Session
}

// action is the closed set of state transitions. Adding a variant without
// extending reduce is a compile-time visible change because every variant is
// listed in the switch below.
type action interface {
	actionType() string
}

type loginRequest struct{}

type loginSuccess struct {
	user  *User
	token string
}

type loginFailure struct {
	message string
}

type registerRequest struct{}

type registerFailure struct {
	message string
}

type logoutReset struct{}

type errorCleared struct{}

type sessionsLoaded struct {
	sessions []Session
}

func (loginRequest) actionType() string    { return "auth.login.request" }
func (loginSuccess) actionType() string    { return "auth.login.success" }
func (loginFailure) actionType() string    { return "auth.login.failure" }
func (registerRequest) actionType() string { return "auth.register.request" }
func (registerFailure) actionType() string { return "auth.register.failure" }
func (logoutReset) actionType() string     { return "auth.logout" }
func (errorCleared) actionType() string    { return "auth.error.cleared" }
func (sessionsLoaded) actionType() string  { return "auth.sessions.loaded" }

// reduce applies an action to the current state and returns the next one. It
// is pure; all side effects live in the Manager's action methods.
func reduce(state State, act action) State {
	switch a := act.(type) {
	case loginRequest, registerRequest:
		state.IsLoading = true
		state.Error = ""
		return state

	case loginSuccess:
		state.IsLoading = false
		state.IsAuthenticated = true
		state.User = a.user
		state.Token = a.token
		state.Error = ""
		return state

	case loginFailure:
		state.IsLoading = false
		state.IsAuthenticated = false
		state.User = nil
		state.Token = ""
		state.Sessions = nil
		state.Error = a.message
		return state

	case registerFailure:
		state.IsLoading = false
		state.IsAuthenticated = false
		state.User = nil
		state.Token = ""
		state.Sessions = nil
		state.Error = a.message
		return state

	case logoutReset:
		return State{}

	case errorCleared:
		state.Error = ""
		return state

	case sessionsLoaded:
		state.Sessions = a.sessions
		return state
	}

	return state
}
