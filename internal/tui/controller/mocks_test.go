package controller

import (
	"context"
	"fmt"
	"sync"

	"tunnelctl/internal/reporting"
	"tunnelctl/internal/session"
)

// fakeCoordinator records the operations the TUI invokes.
type fakeCoordinator struct {
	mu           sync.Mutex
	state        session.State
	err          error
	calls        []string
	sub          *reporting.EventSubscription
	unsubscribed bool
}

func (f *fakeCoordinator) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeCoordinator) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCoordinator) Snapshot() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeCoordinator) Updates(types ...reporting.EventType) *reporting.EventSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sub = &reporting.EventSubscription{ID: "tui", Channel: make(chan reporting.Event, 8)}
	return f.sub
}

func (f *fakeCoordinator) Unsubscribe(sub *reporting.EventSubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = true
	sub.Close()
}

func (f *fakeCoordinator) ToggleProxy(ctx context.Context) error { return f.record("ToggleProxy") }
func (f *fakeCoordinator) AcceptRoute(ctx context.Context) error { return f.record("AcceptRoute") }
func (f *fakeCoordinator) CancelRoute(ctx context.Context) error { return f.record("CancelRoute") }
func (f *fakeCoordinator) RerouteRoute(ctx context.Context, hops int) error {
	return f.record(fmt.Sprintf("RerouteRoute(%d)", hops))
}
func (f *fakeCoordinator) AnswerReinit(ctx context.Context, agreed bool) error {
	return f.record(fmt.Sprintf("AnswerReinit(%t)", agreed))
}
func (f *fakeCoordinator) DismissReinit(ctx context.Context) error   { return f.record("DismissReinit") }
func (f *fakeCoordinator) AttachPool(ctx context.Context) error      { return f.record("AttachPool") }
func (f *fakeCoordinator) ConfigureTunnel(ctx context.Context) error { return f.record("ConfigureTunnel") }
func (f *fakeCoordinator) ResetPool(ctx context.Context) error       { return f.record("ResetPool") }
func (f *fakeCoordinator) IncrementHops(ctx context.Context) error   { return f.record("IncrementHops") }
func (f *fakeCoordinator) DecrementHops(ctx context.Context) error   { return f.record("DecrementHops") }
func (f *fakeCoordinator) TogglePayments(ctx context.Context, enabled bool) error {
	return f.record(fmt.Sprintf("TogglePayments(%t)", enabled))
}
func (f *fakeCoordinator) SaveConfig(ctx context.Context) error   { return f.record("SaveConfig") }
func (f *fakeCoordinator) CancelConfig(ctx context.Context) error { return f.record("CancelConfig") }
