package session

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"tunnelctl/internal/backend"
	"tunnelctl/pkg/logging"
)

// NegotiationPhase is the state of the route negotiation.
type NegotiationPhase int

const (
	NegotiationIdle NegotiationPhase = iota
	NegotiationAwaitingDecision
	NegotiationRerouting
)

func (p NegotiationPhase) String() string {
	switch p {
	case NegotiationAwaitingDecision:
		return "awaiting-decision"
	case NegotiationRerouting:
		return "rerouting"
	default:
		return "idle"
	}
}

// Outcomes recorded when a proposal resolves.
const (
	OutcomeAccepted   = "accepted"
	OutcomeCancelled  = "cancelled"
	OutcomeRerouted   = "rerouted"
	OutcomeSuperseded = "superseded"
)

// pendingDecision is a decision emitted but not yet acknowledged.
type pendingDecision struct {
	proposalID string
	decision   backend.RouteDecision
	hops       int
}

// negotiation mediates the single live route proposal.
type negotiation struct {
	phase     NegotiationPhase
	proposal  *RouteProposal
	previous  *RouteProposal
	requested int
	pending   *pendingDecision
	maxNodes  int

	resolved    int
	lastOutcome string
}

// newProposal builds a proposal from a route-check notification.
func newProposal(n backend.RouteCheck, now time.Time) RouteProposal {
	p := RouteProposal{
		ID:            uuid.NewString(),
		Sections:      make([]Section, 0, len(n.Sections)),
		PriceInPerMB:  n.PriceInPerMB,
		PriceOutPerMB: n.PriceOutPerMB,
		ReceivedAt:    now,
	}
	for _, s := range n.Sections {
		p.Sections = append(p.Sections, Section{Name: s.Name, IsExitHop: s.Outer})
	}
	for _, price := range []string{n.PriceInPerMB, n.PriceOutPerMB} {
		if !isDecimal(price) {
			p.PriceWarning = fmt.Sprintf("price %q is not a decimal number", price)
			break
		}
	}
	return p
}

// isDecimal accepts plain decimal strings without going through floating point.
func isDecimal(s string) bool {
	if s == "" || strings.Contains(s, "/") {
		return false
	}
	_, ok := new(big.Rat).SetString(s)
	return ok
}

// onRouteCheck makes p the live proposal. Any proposal awaiting a decision
// is superseded and returned; a decision in flight for it becomes stale.
func (n *negotiation) onRouteCheck(p RouteProposal) *RouteProposal {
	var superseded *RouteProposal
	switch n.phase {
	case NegotiationAwaitingDecision:
		superseded = n.proposal
		n.lastOutcome = OutcomeSuperseded
		logging.Info("Negotiation", "Proposal %s superseded by %s", superseded.ID, p.ID)
	case NegotiationRerouting:
		logging.Info("Negotiation", "Reroute to %d hops answered with %d-hop proposal %s", n.requested, p.HopCount(), p.ID)
	}
	if p.PriceWarning != "" {
		logging.Warn("Negotiation", "Proposal %s: %s", p.ID, p.PriceWarning)
	}

	n.phase = NegotiationAwaitingDecision
	n.proposal = p.clone()
	n.previous = nil
	n.requested = 0
	n.pending = nil
	return superseded
}

// check validates a decision without changing anything.
func (n *negotiation) check(decision backend.RouteDecision, hops int) error {
	if n.phase != NegotiationAwaitingDecision {
		return ErrNoProposal
	}
	if n.pending != nil {
		return ErrDecisionInFlight
	}
	if decision == backend.DecisionReroute && (hops < 1 || hops > n.maxNodes) {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrHopCountOutOfRange, hops, n.maxNodes)
	}
	return nil
}

// beginDecision validates a decision and marks it in flight.
func (n *negotiation) beginDecision(decision backend.RouteDecision, hops int) (pendingDecision, error) {
	if err := n.check(decision, hops); err != nil {
		return pendingDecision{}, err
	}
	d := pendingDecision{proposalID: n.proposal.ID, decision: decision, hops: hops}
	n.pending = &d
	return d, nil
}

func (n *negotiation) isCurrent(d pendingDecision) bool {
	return n.pending != nil && *n.pending == d
}

// decisionDelivered resolves the proposal d was made for. It reports false
// when d is stale.
func (n *negotiation) decisionDelivered(d pendingDecision) bool {
	if !n.isCurrent(d) {
		logging.Debug("Negotiation", "Ignoring stale %s delivery for proposal %s", d.decision, d.proposalID)
		return false
	}
	n.pending = nil
	n.resolved++
	switch d.decision {
	case backend.DecisionAccept:
		n.phase = NegotiationIdle
		n.proposal = nil
		n.lastOutcome = OutcomeAccepted
	case backend.DecisionReroute:
		n.phase = NegotiationRerouting
		n.previous = n.proposal
		n.proposal = nil
		n.requested = d.hops
		n.lastOutcome = OutcomeRerouted
	default:
		n.phase = NegotiationIdle
		n.proposal = nil
		n.lastOutcome = OutcomeCancelled
	}
	logging.Info("Negotiation", "Proposal %s %s", d.proposalID, n.lastOutcome)
	return true
}

// decisionFailed leaves the proposal awaiting a decision. It reports false
// when d is stale.
func (n *negotiation) decisionFailed(d pendingDecision) bool {
	if !n.isCurrent(d) {
		return false
	}
	n.pending = nil
	return true
}

func (n *negotiation) view() NegotiationView {
	v := NegotiationView{
		Phase:           n.phase,
		RequestedHops:   n.requested,
		DecisionPending: n.pending != nil,
		MaxNodes:        n.maxNodes,
		Resolved:        n.resolved,
		LastOutcome:     n.lastOutcome,
	}
	if n.proposal != nil {
		v.Proposal = n.proposal.clone()
	}
	if n.previous != nil {
		v.Previous = n.previous.clone()
	}
	return v
}
