package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"tunnelctl/internal/backend"
	"tunnelctl/internal/channel"
	"tunnelctl/internal/reporting"
	"tunnelctl/pkg/logging"
)

const (
	defaultCommandTimeout = 10 * time.Second
	defaultNoticeLimit    = 20
	defaultUpdateBuffer   = 32

	eventSource = "Coordinator"
)

// Options tune the coordinator. Zero values select the defaults.
type Options struct {
	// CommandTimeout bounds each outbound backend command. Expiry counts as
	// a delivery failure of that command.
	CommandTimeout time.Duration
	// NoticeLimit is how many recent notices the aggregate state keeps.
	NoticeLimit int
	// Bus receives state and notice events. A private bus is created when nil.
	Bus reporting.EventBus
	// Now is the clock used for proposal and notice timestamps.
	Now func() time.Time
}

// job is one outbound backend interaction. run executes on the dispatcher
// goroutine, done on the coordinator loop.
type job struct {
	lane Lane
	name string
	run  func(ctx context.Context) error
	done func(err error)
}

type completion struct {
	job job
	err error
}

type operation struct {
	fn    func() error
	reply chan error
}

// Coordinator composes the proxy lifecycle, route negotiation, reinit
// confirmation and pool configuration state machines.
//
// All state is owned by a single loop goroutine started by Run. Backend
// notifications, operator operations and command completions are processed
// there one at a time in arrival order. Backend commands are executed by a
// dispatcher goroutine strictly in the order they were issued, and their
// results come back to the loop as completions, so the loop never waits on
// the backend.
type Coordinator struct {
	backend backend.Backend
	opts    Options
	bus     reporting.EventBus

	ops         chan operation
	completions chan completion
	jobs        chan job

	started  atomic.Bool
	stopped  chan struct{}
	snapshot atomic.Pointer[State]

	// Everything below is owned by the loop.
	handlers    map[string]func(backend.Notification)
	queue       []job
	dispatching bool
	busy        [laneCount]bool
	connected   bool

	lifecycle   lifecycle
	negotiation negotiation
	reinit      reinit
	flow        poolFlow

	tunnelEnabled bool
	committed     TunnelSettings
	notices       []Notice
	published     *State
}

// New creates a coordinator for b. Call Run to start it.
func New(b backend.Backend, opts Options) *Coordinator {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	if opts.NoticeLimit <= 0 {
		opts.NoticeLimit = defaultNoticeLimit
	}
	if opts.Bus == nil {
		opts.Bus = reporting.NewEventBus()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Coordinator{
		backend:     b,
		opts:        opts,
		bus:         opts.Bus,
		ops:         make(chan operation),
		completions: make(chan completion),
		jobs:        make(chan job, 1),
		stopped:     make(chan struct{}),
	}
	initial := c.buildState()
	c.snapshot.Store(&initial)
	return c
}

// Run processes notifications and operations until ctx is cancelled.
//
// On start it:
// 1. Registers the notification subscription table
// 2. Starts the outbound command dispatcher
// 3. Reads the listen address, tunnel flag, committed settings and max hops
//
// On return the dispatcher has stopped, operations fail with ErrStopped and
// the update bus is closed. Run returns nil on cancellation.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return errors.New("coordinator already started")
	}

	dispatchCtx, cancelDispatch := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.dispatch(dispatchCtx)
	}()

	c.subscribe()
	c.connected = true
	c.publishEvent(reporting.NewBaseEvent(reporting.EventTypeSystemStartup, eventSource, reporting.SeverityInfo, "coordinator started"))
	c.loadStartupState()
	c.commit()

	defer func() {
		cancelDispatch()
		wg.Wait()
		c.handlers = nil
		c.publishEvent(reporting.NewBaseEvent(reporting.EventTypeSystemShutdown, eventSource, reporting.SeverityInfo, "coordinator stopped"))
		close(c.stopped)
		c.bus.Close()
		logging.Info("Coordinator", "Coordinator stopped")
	}()

	events := c.backend.Notifications()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				c.onDisconnected()
			} else {
				c.route(ev)
			}
		case op := <-c.ops:
			op.reply <- op.fn()
		case comp := <-c.completions:
			c.complete(comp)
		}
		c.commit()
	}
}

// Snapshot returns a copy of the current aggregate state.
func (c *Coordinator) Snapshot() State {
	return c.snapshot.Load().clone()
}

// Updates subscribes to coordinator events. With no types given every
// event is delivered. The subscription is closed when the coordinator stops.
func (c *Coordinator) Updates(types ...reporting.EventType) *reporting.EventSubscription {
	var filter reporting.EventFilter
	if len(types) > 0 {
		filter = reporting.FilterByType(types...)
	}
	return c.bus.Subscribe(filter, defaultUpdateBuffer)
}

// Unsubscribe releases a subscription returned by Updates.
func (c *Coordinator) Unsubscribe(sub *reporting.EventSubscription) {
	c.bus.Unsubscribe(sub)
}

// Done is closed once Run has returned.
func (c *Coordinator) Done() <-chan struct{} {
	return c.stopped
}

// do runs fn on the loop and returns its validation result.
func (c *Coordinator) do(ctx context.Context, fn func() error) error {
	op := operation{fn: fn, reply: make(chan error, 1)}
	select {
	case c.ops <- op:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-op.reply:
		return err
	case <-c.stopped:
		return ErrStopped
	}
}

// dispatch executes jobs one at a time in the order the loop hands them over.
func (c *Coordinator) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-c.jobs:
			jobCtx, cancel := context.WithTimeout(ctx, c.opts.CommandTimeout)
			err := j.run(jobCtx)
			cancel()
			select {
			case c.completions <- completion{job: j, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// laneFree reports ErrCommandInFlight when lane already has a command out.
func (c *Coordinator) laneFree(lane Lane) error {
	if lane != laneNone && c.busy[lane] {
		return fmt.Errorf("%w: %s", ErrCommandInFlight, lane)
	}
	return nil
}

// issue queues j behind every earlier command. Callers check laneFree first.
func (c *Coordinator) issue(j job) {
	if j.lane != laneNone {
		c.busy[j.lane] = true
	}
	logging.Debug("Coordinator", "Queued %s on %s lane", j.name, j.lane)
	c.queue = append(c.queue, j)
	c.pump()
}

func (c *Coordinator) pump() {
	if c.dispatching || len(c.queue) == 0 {
		return
	}
	next := c.queue[0]
	c.queue[0] = job{}
	c.queue = c.queue[1:]
	c.dispatching = true
	// never blocks: at most one job is handed over at a time
	c.jobs <- next
}

func (c *Coordinator) complete(comp completion) {
	c.dispatching = false
	if comp.job.lane != laneNone {
		c.busy[comp.job.lane] = false
	}
	if comp.err != nil {
		logging.Debug("Coordinator", "%s failed: %v", comp.job.name, comp.err)
	}
	if comp.job.done != nil {
		comp.job.done(comp.err)
	}
	c.pump()
}

// subscribe registers exactly one handler per notification tag.
func (c *Coordinator) subscribe() {
	c.handlers = map[string]func(backend.Notification){
		backend.EventStatus:          c.onStatus,
		backend.EventTunnelUpdated:   c.onTunnelUpdated,
		backend.EventRouteCheck:      c.onRouteCheck,
		backend.EventReinitRequested: c.onReinitRequested,
		backend.EventTunnelPaid:      c.onTunnelPaid,
		backend.EventPoolAdded:       c.onPoolAdded,
		backend.EventConfigSaved:     c.onConfigSaved,
	}
}

func (c *Coordinator) route(ev channel.Event) {
	handler, ok := c.handlers[ev.Name]
	if !ok {
		logging.Warn("Coordinator", "Dropping notification with unknown tag %q", ev.Name)
		return
	}
	n, err := backend.Decode(ev)
	if err != nil {
		logging.Warn("Coordinator", "Dropping malformed %s notification: %v", ev.Name, err)
		if ev.Name == backend.EventRouteCheck {
			// The backend waits for a decision nobody can make.
			c.notify(LaneNegotiation, fmt.Errorf("unreadable route proposal: %w", err), false)
		}
		return
	}
	handler(n)
}

func (c *Coordinator) onDisconnected() {
	c.connected = false
	logging.Error("Coordinator", channel.ErrClosed, "Backend event stream ended")
	c.notify(laneNone, errors.New("backend disconnected"), false)
	c.publishEvent(reporting.NewBaseEvent(reporting.EventTypeBackendDisconnected, eventSource, reporting.SeverityError, "backend disconnected"))
}

func (c *Coordinator) onStatus(n backend.Notification) {
	c.lifecycle.applyStatus(n.(backend.StatusUpdate))
}

func (c *Coordinator) onTunnelUpdated(n backend.Notification) {
	c.lifecycle.tunnelAddr = n.(backend.TunnelUpdated).Addr
}

func (c *Coordinator) onTunnelPaid(n backend.Notification) {
	c.lifecycle.paid = n.(backend.TunnelPaid).Amount
}

func (c *Coordinator) onRouteCheck(n backend.Notification) {
	p := newProposal(n.(backend.RouteCheck), c.opts.Now())
	if superseded := c.negotiation.onRouteCheck(p); superseded != nil {
		ev := reporting.NewBaseEvent(reporting.EventTypeRouteResolved, eventSource, reporting.SeverityInfo, OutcomeSuperseded)
		ev.WithCorrelation(superseded.ID)
		c.publishEvent(ev)
	}
	ev := reporting.NewBaseEvent(reporting.EventTypeRouteProposed, eventSource, reporting.SeverityInfo,
		fmt.Sprintf("%d-hop route, in %s / out %s per MB", p.HopCount(), p.PriceInPerMB, p.PriceOutPerMB))
	ev.WithCorrelation(p.ID).WithMetadata("hops", p.HopCount())
	c.publishEvent(ev)
}

func (c *Coordinator) onReinitRequested(backend.Notification) {
	if c.reinit.onRequested() {
		c.publishReinitRequested()
	}
}

func (c *Coordinator) publishReinitRequested() {
	c.publishEvent(reporting.NewBaseEvent(reporting.EventTypeReinitRequested, eventSource, reporting.SeverityWarn, "tunnel stalled, reinitialize?"))
}

func (c *Coordinator) onPoolAdded(n backend.Notification) {
	added := n.(backend.PoolAdded)
	if c.flow.openForPool(PoolOffer{PoolPath: added.Path, MaxNodes: added.MaxNodes}) {
		c.flowOpened()
	}
}

func (c *Coordinator) onConfigSaved(backend.Notification) {
	logging.Debug("Coordinator", "Tunnel config saved, refreshing committed settings")
	c.refreshCommitted()
}

// loadStartupState reads the values the surfaces need before the first
// notification arrives. Failures become notices.
func (c *Coordinator) loadStartupState() {
	var (
		listenAddr string
		listenErr  error
	)
	c.issue(job{
		lane: laneNone,
		name: backend.CmdGetProxyAddr,
		run: func(ctx context.Context) error {
			listenAddr, listenErr = c.backend.GetProxyAddr(ctx)
			return nil
		},
		done: func(error) {
			if listenErr != nil {
				c.notify(laneNone, listenErr, true)
				return
			}
			c.lifecycle.listenAddr = listenAddr
		},
	})
	c.refreshCommitted()
}

// refreshCommitted re-reads the tunnel flag, committed settings and max hops.
func (c *Coordinator) refreshCommitted() {
	var (
		enabled    bool
		settings   TunnelSettings
		maxHops    int
		enabledErr error
		configErr  error
		hopsErr    error
	)
	c.issue(job{
		lane: laneNone,
		name: backend.CmdGetConfig,
		run: func(ctx context.Context) error {
			enabled, enabledErr = c.backend.GetTunnelEnabled(ctx)
			settings, configErr = c.backend.GetConfig(ctx)
			maxHops, hopsErr = c.backend.GetMaxHops(ctx)
			return nil
		},
		done: func(error) {
			if enabledErr != nil {
				c.notify(LaneConfig, enabledErr, true)
			} else {
				c.tunnelEnabled = enabled
			}
			if configErr != nil {
				c.notify(LaneConfig, configErr, true)
			} else {
				c.committed = settings
			}
			if hopsErr != nil {
				c.notify(LaneNegotiation, hopsErr, true)
			} else {
				c.negotiation.maxNodes = maxHops
			}
		},
	})
}

// flowOpened seeds the draft of a newly opened flow.
func (c *Coordinator) flowOpened() {
	gen, origin := c.flow.gen, c.flow.origin
	ev := reporting.NewBaseEvent(reporting.EventTypeFlowOpened, eventSource, reporting.SeverityInfo, origin.String())
	c.publishEvent(ev)

	var (
		settings TunnelSettings
		maxHops  int
	)
	c.issue(job{
		lane: laneNone,
		name: backend.CmdGetConfig,
		run: func(ctx context.Context) error {
			var err error
			if settings, err = c.backend.GetConfig(ctx); err != nil {
				return err
			}
			if origin == OriginOperator {
				maxHops, err = c.backend.GetMaxHops(ctx)
			}
			return err
		},
		done: func(err error) {
			if err != nil {
				if c.flow.seedFailed(gen) {
					c.notify(LaneConfig, err, true)
					c.flowClosed("seed failed")
				}
				return
			}
			if gen != c.flow.gen {
				return
			}
			c.committed = settings
			if origin == OriginOperator {
				c.negotiation.maxNodes = maxHops
			}
			if err := c.flow.seeded(gen, settings, maxHops); err != nil {
				c.notify(LaneConfig, err, false)
				c.flowClosed(err.Error())
			}
		},
	})
}

func (c *Coordinator) flowClosed(reason string) {
	c.publishEvent(reporting.NewBaseEvent(reporting.EventTypeFlowClosed, eventSource, reporting.SeverityInfo, reason))
}

// notify records a user-visible failure.
func (c *Coordinator) notify(lane Lane, err error, retryable bool) {
	n := Notice{Lane: lane, Message: err.Error(), Retryable: retryable, At: c.opts.Now()}
	logging.Warn("Coordinator", "%s", n)

	c.notices = append(c.notices, n)
	if over := len(c.notices) - c.opts.NoticeLimit; over > 0 {
		c.notices = append([]Notice(nil), c.notices[over:]...)
	}

	severity := reporting.SeverityError
	if retryable {
		severity = reporting.SeverityWarn
	}
	c.publishEvent(NoticeEvent{
		BaseEvent: reporting.NewBaseEvent(reporting.EventTypeNotice, eventSource, severity, n.Message),
		Notice:    n,
	})
}

func (c *Coordinator) publishEvent(ev reporting.Event) {
	c.bus.Publish(ev)
}

func (c *Coordinator) surface() Surface {
	switch {
	case c.negotiation.phase == NegotiationAwaitingDecision:
		return SurfaceNegotiating
	case c.reinit.phase == ReinitAwaitingConfirmation:
		return SurfaceReinitializing
	case c.negotiation.phase == NegotiationRerouting:
		return SurfaceNegotiating
	case c.flow.open():
		return SurfaceConfiguringPool
	default:
		return SurfaceNone
	}
}

func (c *Coordinator) buildState() State {
	busy := make(map[Lane]bool, laneCount)
	for l := Lane(0); l < laneCount; l++ {
		if c.busy[l] {
			busy[l] = true
		}
	}
	return State{
		Connected:     c.connected,
		Proxy:         c.lifecycle.view(c.tunnelEnabled),
		TunnelEnabled: c.tunnelEnabled,
		Committed:     c.committed,
		MaxNodes:      c.negotiation.maxNodes,
		Negotiation:   c.negotiation.view(),
		Reinit:        c.reinit.view(),
		PoolFlow:      c.flow.view(),
		Surface:       c.surface(),
		Notices:       append([]Notice(nil), c.notices...),
		Busy:          busy,
	}
}

// commit stores a fresh snapshot and publishes it when it changed.
func (c *Coordinator) commit() {
	s := c.buildState()
	if c.published != nil && reflect.DeepEqual(*c.published, s) {
		return
	}
	c.published = &s
	c.snapshot.Store(&s)
	c.publishEvent(StateEvent{
		BaseEvent: reporting.NewBaseEvent(reporting.EventTypeStateChanged, eventSource, reporting.SeverityDebug, s.Surface.String()),
		State:     s.clone(),
	})
}

func (s State) clone() State {
	c := s
	c.Notices = append([]Notice(nil), s.Notices...)
	c.Busy = make(map[Lane]bool, len(s.Busy))
	for k, v := range s.Busy {
		c.Busy[k] = v
	}
	if s.Negotiation.Proposal != nil {
		c.Negotiation.Proposal = s.Negotiation.Proposal.clone()
	}
	if s.Negotiation.Previous != nil {
		c.Negotiation.Previous = s.Negotiation.Previous.clone()
	}
	if s.Reinit.LastAnswer != nil {
		a := *s.Reinit.LastAnswer
		c.Reinit.LastAnswer = &a
	}
	return c
}
