package mcpserver

import (
	"context"
	"fmt"
	"sync"

	"tunnelctl/internal/session"
)

// mockController records calls and returns the configured error.
type mockController struct {
	mu    sync.Mutex
	state session.State
	err   error
	calls []string
}

var _ Controller = (*mockController)(nil)

func (m *mockController) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.err
}

func (m *mockController) Snapshot() session.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockController) StartProxy(ctx context.Context) error { return m.record("StartProxy") }
func (m *mockController) StopProxy(ctx context.Context) error  { return m.record("StopProxy") }
func (m *mockController) AcceptRoute(ctx context.Context) error {
	return m.record("AcceptRoute")
}
func (m *mockController) CancelRoute(ctx context.Context) error {
	return m.record("CancelRoute")
}

func (m *mockController) RerouteRoute(ctx context.Context, hops int) error {
	return m.record(fmt.Sprintf("RerouteRoute(%d)", hops))
}

func (m *mockController) AnswerReinit(ctx context.Context, agreed bool) error {
	return m.record(fmt.Sprintf("AnswerReinit(%t)", agreed))
}

func (m *mockController) DismissReinit(ctx context.Context) error {
	return m.record("DismissReinit")
}
func (m *mockController) AttachPool(ctx context.Context) error { return m.record("AttachPool") }
func (m *mockController) ConfigureTunnel(ctx context.Context) error {
	return m.record("ConfigureTunnel")
}
func (m *mockController) ResetPool(ctx context.Context) error { return m.record("ResetPool") }

func (m *mockController) SetHops(ctx context.Context, n int) error {
	if err := m.record(fmt.Sprintf("SetHops(%d)", n)); err != nil {
		return err
	}
	m.mu.Lock()
	m.state.PoolFlow.Draft.SectionCount = n
	m.mu.Unlock()
	return nil
}

func (m *mockController) TogglePayments(ctx context.Context, enabled bool) error {
	return m.record(fmt.Sprintf("TogglePayments(%t)", enabled))
}
func (m *mockController) SaveConfig(ctx context.Context) error   { return m.record("SaveConfig") }
func (m *mockController) CancelConfig(ctx context.Context) error { return m.record("CancelConfig") }

func (m *mockController) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
