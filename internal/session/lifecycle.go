package session

import (
	"tunnelctl/internal/backend"
	"tunnelctl/pkg/logging"
)

// Status phases sent by the backend.
const (
	phaseLoading = "loading"
	phaseError   = "error"
	phaseReady   = "ready"
	phaseStopped = "stopped"
)

const (
	detailConnecting    = "connecting"
	detailDisconnecting = "disconnecting"
	// the backend marks a disconnect in progress with this loading text
	loadingTextStopping = "stopping"
)

// proxyAction is a lifecycle command.
type proxyAction int

const (
	actionStart proxyAction = iota
	actionStop
)

func (a proxyAction) String() string {
	if a == actionStop {
		return backend.CmdStopProxy
	}
	return backend.CmdStartProxy
}

// lifecycle tracks proxy connectivity. Only status notifications move the
// status; commands only take and release the action lock.
type lifecycle struct {
	status     ProxyStatus
	detail     string
	progress   string
	tunnelAddr string
	paid       string
	listenAddr string

	// loadingSeen is set while the latest status notification was "loading".
	loadingSeen bool
	// commandIssued is set from a start/stop until the next terminal status
	// or a delivery failure.
	commandIssued bool
}

func (l *lifecycle) locked() bool {
	return l.loadingSeen || l.commandIssued
}

// begin takes the action lock for a start or stop.
func (l *lifecycle) begin(action proxyAction) error {
	if l.locked() {
		return ErrActionInFlight
	}
	l.commandIssued = true
	logging.Debug("Lifecycle", "%s issued, action lock taken", action)
	return nil
}

// deliveryFailed drops the lock the failed command took. A loading
// notification received in the meantime keeps it held.
func (l *lifecycle) deliveryFailed(action proxyAction) {
	l.commandIssued = false
	logging.Debug("Lifecycle", "%s not delivered, lock now %t", action, l.locked())
}

// actionFor picks stop while ready and start otherwise.
func (l *lifecycle) actionFor() proxyAction {
	if l.status == StatusReady {
		return actionStop
	}
	return actionStart
}

// applyStatus reports whether the notification was understood.
func (l *lifecycle) applyStatus(n backend.StatusUpdate) bool {
	switch n.Phase {
	case phaseLoading:
		l.status = StatusLoading
		if n.Detail == loadingTextStopping {
			l.detail = detailDisconnecting
		} else {
			l.detail = detailConnecting
		}
		l.progress = n.Detail
		l.loadingSeen = true
	case phaseError:
		l.status = StatusError
		l.detail = n.Detail
		l.progress = ""
		l.tunnelAddr = ""
		l.paid = ""
		l.release()
	case phaseReady:
		l.status = StatusReady
		l.detail = ""
		l.progress = ""
		l.release()
	case phaseStopped:
		l.status = StatusStopped
		l.detail = ""
		l.progress = ""
		l.tunnelAddr = ""
		l.paid = ""
		l.release()
	default:
		logging.Warn("Lifecycle", "Ignoring unknown status phase %q (detail %q)", n.Phase, n.Detail)
		return false
	}
	logging.Debug("Lifecycle", "Status %s (%s), locked=%t", l.status, n.Detail, l.locked())
	return true
}

func (l *lifecycle) release() {
	l.loadingSeen = false
	l.commandIssued = false
}

// active is true while the proxy is connected or connecting.
func (l *lifecycle) active() bool {
	return l.status == StatusReady || l.status == StatusLoading
}

func (l *lifecycle) view(tunnelEnabled bool) ProxyView {
	v := ProxyView{
		Status:     l.status,
		Detail:     l.detail,
		Progress:   l.progress,
		Locked:     l.locked(),
		ListenAddr: l.listenAddr,
	}
	if l.status == StatusReady && tunnelEnabled {
		v.TunnelAddr = l.tunnelAddr
		v.Paid = l.paid
	}
	return v
}
