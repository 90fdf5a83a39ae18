// Package session coordinates one operator session against the tunnel backend.
//
// The Coordinator composes four independent state machines and routes every
// backend notification to exactly one of them:
//
//   - Proxy lifecycle: start/stop with an action lock that only terminal
//     status notifications (ready, stopped, error) release
//   - Route negotiation: one live route proposal at a time, answered with
//     accept, cancel or reroute to a requested hop count
//   - Reinit confirmation: a yes/no gate raised when the tunnel stalls
//   - Pool configuration: a draft of the tunnel settings edited by the
//     operator and written back only on save
//
// # Concurrency
//
// All state is owned by the goroutine running Run. Operations called from
// other goroutines are executed on that loop and return their validation
// result synchronously. Backend commands run on a dispatcher goroutine in the
// order they were issued, and at most one command per lane (lifecycle,
// negotiation, reinit, config) is outstanding at a time. A second command on
// a busy lane is rejected with ErrCommandInFlight.
//
// Command delivery and completion are distinct. A delivered start only means
// the backend received it; the lifecycle advances when the backend reports a
// terminal status.
//
// # Reading state
//
// Snapshot returns an immutable copy of the aggregate State. Updates
// subscribes to StateEvent, NoticeEvent and the route and flow events on the
// reporting bus. Route events carry the proposal ID as correlation ID.
//
// # Surfaces
//
// Only one decision surface is presented at a time. A live route proposal
// wins over a pending reinit question, which wins over an open pool
// configuration flow. The others stay pending in their own machines.
package session
