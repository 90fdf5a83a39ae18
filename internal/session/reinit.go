package session

import "tunnelctl/pkg/logging"

// ReinitPhase is the state of the reinit confirmation gate.
type ReinitPhase int

const (
	ReinitIdle ReinitPhase = iota
	ReinitAwaitingConfirmation
)

func (p ReinitPhase) String() string {
	if p == ReinitAwaitingConfirmation {
		return "awaiting-confirmation"
	}
	return "idle"
}

// reinit gates the backend's "tunnel stalled, reinitialize?" question.
type reinit struct {
	phase      ReinitPhase
	pending    bool
	lastAnswer *bool
	// reasked is set when the backend asks again while an answer is being
	// written; the gate then stays open once that answer lands.
	reasked bool
}

// onRequested reports whether the gate opened. Repeated requests while it
// is open change nothing.
func (r *reinit) onRequested() bool {
	if r.phase == ReinitAwaitingConfirmation {
		if r.pending {
			r.reasked = true
			logging.Debug("Reinit", "Reinit asked again while an answer is in flight")
			return false
		}
		logging.Debug("Reinit", "Reinit already awaiting confirmation")
		return false
	}
	r.phase = ReinitAwaitingConfirmation
	logging.Info("Reinit", "Backend asks to reinitialize the tunnel")
	return true
}

func (r *reinit) check() error {
	if r.phase != ReinitAwaitingConfirmation {
		return ErrInvalidState
	}
	if r.pending {
		return ErrDecisionInFlight
	}
	return nil
}

func (r *reinit) beginAnswer() error {
	if err := r.check(); err != nil {
		return err
	}
	r.pending = true
	return nil
}

// answerDelivered reports whether the gate stays open because the backend
// asked again while the answer was in flight.
func (r *reinit) answerDelivered(agreed bool) bool {
	r.pending = false
	r.lastAnswer = &agreed
	logging.Info("Reinit", "Reinit answered: %t", agreed)
	if r.reasked {
		r.reasked = false
		logging.Info("Reinit", "Backend asks to reinitialize the tunnel")
		return true
	}
	r.phase = ReinitIdle
	return false
}

func (r *reinit) answerFailed() {
	r.pending = false
	r.reasked = false
}

// dismiss closes the gate without answering.
func (r *reinit) dismiss() error {
	if err := r.check(); err != nil {
		return err
	}
	r.phase = ReinitIdle
	logging.Info("Reinit", "Reinit question dismissed without an answer")
	return nil
}

func (r *reinit) view() ReinitView {
	v := ReinitView{Phase: r.phase, AnswerPending: r.pending}
	if r.lastAnswer != nil {
		a := *r.lastAnswer
		v.LastAnswer = &a
	}
	return v
}
