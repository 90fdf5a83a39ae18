package session

import "errors"

var (
	// ErrActionInFlight is returned by start/stop while the proxy action lock is held.
	ErrActionInFlight = errors.New("proxy action already in flight")

	// ErrInvalidState is returned when an operation does not apply to the current state.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrNoProposal is returned by route decisions when no proposal awaits a decision.
	ErrNoProposal = errors.New("no route proposal awaiting a decision")

	// ErrDecisionInFlight is returned while a previous decision has not been delivered yet.
	ErrDecisionInFlight = errors.New("decision already in flight")

	// ErrHopCountOutOfRange is returned for hop counts outside [1, maxNodes].
	ErrHopCountOutOfRange = errors.New("hop count out of range")

	// ErrFlowOpen is returned when a configuration flow is already open.
	ErrFlowOpen = errors.New("configuration flow already open")

	// ErrNoFlow is returned by flow edits when no configuration flow is open.
	ErrNoFlow = errors.New("no configuration flow open")

	// ErrFlowNotReady is returned while the flow is still loading its seed values.
	ErrFlowNotReady = errors.New("configuration flow still loading")

	// ErrCommandInFlight is returned when the command's channel is busy.
	ErrCommandInFlight = errors.New("command already in flight on this channel")

	// ErrProxyActive is returned by tunnel edits while the proxy is connected or connecting.
	ErrProxyActive = errors.New("stop the proxy to edit the tunnel")

	// ErrStopped is returned once the coordinator has shut down.
	ErrStopped = errors.New("coordinator stopped")
)
