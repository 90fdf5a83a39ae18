package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tunnelctl/internal/backend"
	"tunnelctl/internal/channel"
)

// recordedCall is one command or emitted response seen by the fake.
type recordedCall struct {
	Name string
	Args []any
}

// fakeBackend is an in-memory backend.Backend.
type fakeBackend struct {
	mu sync.Mutex

	events chan channel.Event
	calls  []recordedCall

	config        TunnelSettings
	maxHops       int
	wallet        string
	proxyAddr     string
	tunnelEnabled bool

	// failures makes the named command fail until cleared.
	failures map[string]error
	// gates hold the named command until the gate is released or the
	// command context ends.
	gates map[string]chan struct{}
	// entered is signalled when a gated command starts waiting.
	entered chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		events:        make(chan channel.Event, 64),
		config:        TunnelSettings{SectionCount: 3, PaymentsEnabled: false, PoolPath: "/pools/a.json"},
		maxHops:       5,
		wallet:        "EQdepositwallet",
		proxyAddr:     "127.0.0.1:8080",
		tunnelEnabled: true,
		failures:      make(map[string]error),
		gates:         make(map[string]chan struct{}),
		entered:       make(chan string, 16),
	}
}

var _ backend.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) fail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, name)
		return
	}
	f.failures[name] = err
}

// gate holds name until the returned func is called.
func (f *fakeBackend) gate(name string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[name] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, name)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *fakeBackend) record(ctx context.Context, name string, args ...any) error {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Name: name, Args: args})
	gate := f.gates[name]
	f.mu.Unlock()

	if gate != nil {
		f.entered <- name
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[name]; err != nil {
		return &backend.CommandError{Command: name, Err: err}
	}
	return nil
}

func (f *fakeBackend) callsTo(name string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Name)
	}
	return out
}

func (f *fakeBackend) StartProxy(ctx context.Context) error {
	return f.record(ctx, backend.CmdStartProxy)
}

func (f *fakeBackend) StopProxy(ctx context.Context) error {
	return f.record(ctx, backend.CmdStopProxy)
}

func (f *fakeBackend) AddTunnel(ctx context.Context) error {
	return f.record(ctx, backend.CmdAddTunnel)
}

func (f *fakeBackend) GetConfig(ctx context.Context) (TunnelSettings, error) {
	if err := f.record(ctx, backend.CmdGetConfig); err != nil {
		return TunnelSettings{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config, nil
}

func (f *fakeBackend) SaveTunnelConfig(ctx context.Context, s TunnelSettings) error {
	if err := f.record(ctx, backend.CmdSaveTunnelConfig, s); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config = s
	f.tunnelEnabled = s.PoolPath != ""
	return nil
}

func (f *fakeBackend) GetMaxHops(ctx context.Context) (int, error) {
	if err := f.record(ctx, backend.CmdGetMaxHops); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxHops, nil
}

func (f *fakeBackend) GetPaymentNetworkWalletAddr(ctx context.Context) (string, error) {
	if err := f.record(ctx, backend.CmdGetWalletAddr); err != nil {
		return "", err
	}
	return f.wallet, nil
}

func (f *fakeBackend) GetProxyAddr(ctx context.Context) (string, error) {
	if err := f.record(ctx, backend.CmdGetProxyAddr); err != nil {
		return "", err
	}
	return f.proxyAddr, nil
}

func (f *fakeBackend) GetTunnelEnabled(ctx context.Context) (bool, error) {
	if err := f.record(ctx, backend.CmdGetTunnelEnabled); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tunnelEnabled, nil
}

func (f *fakeBackend) SendRouteDecision(ctx context.Context, d backend.RouteDecision) error {
	switch d {
	case backend.DecisionAccept:
		return f.record(ctx, backend.RespRouteDecision, true)
	case backend.DecisionReroute:
		return f.record(ctx, backend.RespRouteDecision, false)
	default:
		return f.record(ctx, backend.RespRouteDecision)
	}
}

func (f *fakeBackend) RequestRouteSize(ctx context.Context, hops int) error {
	return f.record(ctx, backend.RespRouteRequest, hops)
}

func (f *fakeBackend) SendReinitDecision(ctx context.Context, agreed bool) error {
	return f.record(ctx, backend.RespReinitDecision, agreed)
}

func (f *fakeBackend) Notifications() <-chan channel.Event {
	return f.events
}

// push delivers a notification to the coordinator.
func (f *fakeBackend) push(t *testing.T, name string, args ...any) {
	t.Helper()
	ev := channel.Event{Name: name}
	for _, a := range args {
		raw, err := json.Marshal(a)
		require.NoError(t, err)
		ev.Args = append(ev.Args, raw)
	}
	select {
	case f.events <- ev:
	case <-time.After(time.Second):
		t.Fatalf("notification %s not consumed", name)
	}
}

func sections(names ...string) []backend.Section {
	out := make([]backend.Section, len(names))
	for i, n := range names {
		out[i] = backend.Section{Name: n, Outer: i == len(names)-1}
	}
	return out
}

// startCoordinator runs a coordinator until the test ends and waits for the
// startup reads to land.
func startCoordinator(t *testing.T, fb *fakeBackend, opts Options) *Coordinator {
	t.Helper()
	c := New(fb, opts)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-c.Done()
	})
	waitFor(t, c, func(s State) bool {
		return s.Connected && s.MaxNodes == fb.maxHops && s.Proxy.ListenAddr != ""
	})
	return c
}

func waitFor(t *testing.T, c *Coordinator, cond func(State) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(c.Snapshot()) }, 2*time.Second, 2*time.Millisecond)
}

func waitEntered(t *testing.T, fb *fakeBackend, name string) {
	t.Helper()
	select {
	case got := <-fb.entered:
		require.Equal(t, name, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("%s never reached the backend", name)
	}
}

// settle waits until every notification pushed so far has been processed.
// Once the loop has taken the last queued event, a no-op operation can only
// run after that event is done.
func settle(t *testing.T, c *Coordinator, fb *fakeBackend) {
	t.Helper()
	require.Eventually(t, func() bool { return len(fb.events) == 0 }, 2*time.Second, time.Millisecond)
	require.NoError(t, c.do(ctxT(t), func() error { return nil }))
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}
