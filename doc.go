// Package authclient implements the client half of a token-based
// authentication flow: credential validation, an HTTP client for the remote
// auth API, a reducer-driven state container, and route guarding for UI
// layers.
//
// State container:
//   - Manager owns a single State value (user, token, loading flag, last
//     error, session list) and is the only writer. Actions (Login, Register,
//     Logout, session operations) call the remote Service, persist the bearer
//     token through a TokenStore, and commit state through an exhaustive
//     reducer over a closed action set.
//   - Consumers observe state through Subscribe; every committed change
//     delivers a snapshot, never a partially updated view.
//
// Route guarding:
//   - Guard turns (IsAuthenticated, IsLoading, RequireAuth) into a render /
//     loading / redirect decision. Watch fires navigation once per decision
//     change; Middleware applies the same decision per request for
//     server-rendered screens.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing login,
//     registration, and logout outcomes. Sinks run best-effort (errors are
//     logged) so forwarding to telemetry never blocks an action.
package authclient
