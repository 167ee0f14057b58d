// Package session manages the client side of a token-based auth lifecycle:
// token acquisition, durable persistence, silent refresh, and the gating of
// protected routes on session state.
//
// Lifecycle:
//   - Manager is the single source of truth for session state. It owns the
//     Unknown -> Anonymous/Authenticated transitions and exposes Bootstrap,
//     Login, Logout, Refresh, and EnsureFresh with an explicit error taxonomy
//     (invalid credentials and expiry are expected outcomes, transport
//     failures are retryable by the caller).
//   - Refresh is single-flight: concurrent callers await one outstanding
//     network attempt, and a logout issued mid-refresh wins via an epoch
//     counter checked at apply time.
//
// Persistence:
//   - TokenStore implementations persist the credential set all-or-nothing.
//     MemoryTokenStore is process-local, BunTokenStore is durable over
//     bun/sqlite, RedisTokenStore shares a session across replicas. A partial
//     read always resolves to "no session".
//
// Route gating:
//   - RouteGate renders protected routes only for authenticated sessions,
//     remembers the rejected route in a cookie, and redirects anonymous
//     requests to the entry route. Controller wires the login form flow on
//     top of the same Manager.
package session
