package session

import (
	"fmt"

	"tunnelctl/pkg/logging"
)

// FlowPhase is the state of the pool configuration flow.
type FlowPhase int

const (
	FlowClosed FlowPhase = iota
	// FlowOpening waits for the seed reads.
	FlowOpening
	FlowEditing
	FlowSaving
)

func (p FlowPhase) String() string {
	switch p {
	case FlowOpening:
		return "opening"
	case FlowEditing:
		return "editing"
	case FlowSaving:
		return "saving"
	default:
		return "closed"
	}
}

// FlowOrigin says what opened the flow.
type FlowOrigin int

const (
	OriginPoolAttached FlowOrigin = iota
	OriginOperator
)

func (o FlowOrigin) String() string {
	if o == OriginOperator {
		return "operator"
	}
	return "pool-attached"
}

// poolFlow is the pool configuration flow. It owns the single draft.
type poolFlow struct {
	phase  FlowPhase
	origin FlowOrigin
	// gen changes every time a flow opens so late reads for an earlier flow
	// can be told apart.
	gen uint64

	poolPath string
	maxNodes int
	draft    TunnelSettings

	wallet          string
	walletRequested bool
	walletLoaded    bool
}

func (f *poolFlow) open() bool {
	return f.phase != FlowClosed
}

// openForPool opens a flow for an attached pool. It reports whether the
// caller must seed the new flow.
func (f *poolFlow) openForPool(offer PoolOffer) bool {
	if !offer.Attached() {
		logging.Debug("PoolConfig", "Ignoring detached pool offer (%q, %d)", offer.PoolPath, offer.MaxNodes)
		return false
	}
	if f.open() {
		if offer.PoolPath == f.poolPath {
			logging.Debug("PoolConfig", "Pool %s already being configured", offer.PoolPath)
		} else {
			logging.Warn("PoolConfig", "Ignoring pool %s while configuring %s", offer.PoolPath, f.poolPath)
		}
		return false
	}
	f.reset(OriginPoolAttached)
	f.poolPath = offer.PoolPath
	f.maxNodes = offer.MaxNodes
	logging.Info("PoolConfig", "Pool %s attached with up to %d nodes", offer.PoolPath, offer.MaxNodes)
	return true
}

// openForOperator opens a flow on the committed pool.
func (f *poolFlow) openForOperator() error {
	if f.open() {
		return ErrFlowOpen
	}
	f.reset(OriginOperator)
	logging.Info("PoolConfig", "Tunnel configuration opened")
	return nil
}

func (f *poolFlow) reset(origin FlowOrigin) {
	gen := f.gen + 1
	*f = poolFlow{phase: FlowOpening, origin: origin, gen: gen}
}

// seeded completes the opening reads. maxNodes is only used on the
// operator path; an attached pool brings its own.
func (f *poolFlow) seeded(gen uint64, committed TunnelSettings, maxNodes int) error {
	if gen != f.gen || f.phase != FlowOpening {
		return nil
	}
	if f.origin == OriginOperator {
		f.maxNodes = maxNodes
		f.poolPath = committed.PoolPath
	}
	if f.maxNodes < 1 || f.poolPath == "" {
		f.close()
		return fmt.Errorf("no node pool attached")
	}
	f.draft = TunnelSettings{
		SectionCount:    clamp(committed.SectionCount, 1, f.maxNodes),
		PaymentsEnabled: committed.PaymentsEnabled,
		PoolPath:        f.poolPath,
	}
	f.phase = FlowEditing
	logging.Debug("PoolConfig", "Draft seeded: %d hops (max %d), payments %t", f.draft.SectionCount, f.maxNodes, f.draft.PaymentsEnabled)
	return nil
}

// seedFailed closes a flow that could not be seeded.
func (f *poolFlow) seedFailed(gen uint64) bool {
	if gen != f.gen || f.phase != FlowOpening {
		return false
	}
	f.close()
	return true
}

func (f *poolFlow) editable() error {
	switch f.phase {
	case FlowClosed:
		return ErrNoFlow
	case FlowOpening:
		return ErrFlowNotReady
	case FlowSaving:
		return ErrCommandInFlight
	}
	return nil
}

func (f *poolFlow) setHops(n int) error {
	if err := f.editable(); err != nil {
		return err
	}
	f.draft.SectionCount = clamp(n, 1, f.maxNodes)
	return nil
}

func (f *poolFlow) incrementHops() error {
	return f.setHops(f.draft.SectionCount + 1)
}

func (f *poolFlow) decrementHops() error {
	return f.setHops(f.draft.SectionCount - 1)
}

// togglePayments reports whether the wallet address must be fetched.
func (f *poolFlow) togglePayments(enabled bool) (bool, error) {
	if err := f.editable(); err != nil {
		return false, err
	}
	f.draft.PaymentsEnabled = enabled
	if enabled && !f.walletRequested {
		f.walletRequested = true
		return true, nil
	}
	return false, nil
}

func (f *poolFlow) walletFetched(gen uint64, addr string, err error) bool {
	if gen != f.gen || !f.open() {
		return false
	}
	if err != nil {
		// allow another attempt on the next toggle
		f.walletRequested = false
		return true
	}
	f.wallet = addr
	f.walletLoaded = true
	return true
}

// beginSave validates the draft and returns what to persist.
func (f *poolFlow) beginSave() (TunnelSettings, error) {
	if err := f.editable(); err != nil {
		return TunnelSettings{}, err
	}
	if f.draft.SectionCount < 1 || f.draft.SectionCount > f.maxNodes {
		return TunnelSettings{}, fmt.Errorf("%w: %d not in [1, %d]", ErrHopCountOutOfRange, f.draft.SectionCount, f.maxNodes)
	}
	f.phase = FlowSaving
	return f.draft, nil
}

// saveDone closes the flow on success and returns to editing otherwise.
func (f *poolFlow) saveDone(err error) {
	if f.phase != FlowSaving {
		return
	}
	if err != nil {
		f.phase = FlowEditing
		return
	}
	logging.Info("PoolConfig", "Tunnel configuration saved: %d hops, payments %t", f.draft.SectionCount, f.draft.PaymentsEnabled)
	f.close()
}

func (f *poolFlow) cancel() error {
	switch f.phase {
	case FlowClosed:
		return ErrNoFlow
	case FlowSaving:
		return ErrCommandInFlight
	}
	logging.Info("PoolConfig", "Tunnel configuration cancelled")
	f.close()
	return nil
}

func (f *poolFlow) close() {
	gen := f.gen
	*f = poolFlow{gen: gen}
}

func (f *poolFlow) view() PoolFlowView {
	if !f.open() {
		return PoolFlowView{}
	}
	return PoolFlowView{
		Phase:         f.phase,
		Origin:        f.origin,
		PoolPath:      f.poolPath,
		MaxNodes:      f.maxNodes,
		Draft:         f.draft,
		WalletAddr:    f.wallet,
		WalletLoading: f.walletRequested && !f.walletLoaded,
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
