package app

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tunnelctl/internal/reporting"
	"tunnelctl/internal/session"
	"tunnelctl/pkg/logging"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), s)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	logging.InitForCLI(logging.LevelDebug, buf)
	t.Cleanup(func() { logging.InitForCLI(logging.LevelInfo, os.Stderr) })
	return buf
}

func TestCLIReporter_StateChanges(t *testing.T) {
	logs := captureLogs(t)
	r := &cliReporter{}

	r.report(session.State{Proxy: session.ProxyView{Status: session.StatusStopped}})
	assert.True(t, logs.contains("Proxy stopped"))

	r.report(session.State{Proxy: session.ProxyView{Status: session.StatusLoading, Detail: "connecting"}})
	assert.True(t, logs.contains("Proxy loading (connecting)"))

	proposal := &session.RouteProposal{
		ID:            "p-7",
		Sections:      []session.Section{{Name: "alpha"}, {Name: "omega", IsExitHop: true}},
		PriceInPerMB:  "0.1",
		PriceOutPerMB: "abc",
		PriceWarning:  "outbound price is not a number",
	}
	r.report(session.State{
		Proxy:   session.ProxyView{Status: session.StatusReady, TunnelAddr: "10.0.0.1:443", Paid: "1.5"},
		Surface: session.SurfaceNegotiating,
		Negotiation: session.NegotiationView{
			Phase:    session.NegotiationAwaitingDecision,
			Proposal: proposal,
		},
	})
	out := logs.String()
	assert.Contains(t, out, "Proxy ready")
	assert.Contains(t, out, "Tunnel 10.0.0.1:443, paid 1.5 TON")
	assert.Contains(t, out, "p-7: 2 hops [alpha -> omega (exit)], in 0.1 TON/MB, out abc TON/MB")
	assert.Contains(t, out, "outbound price is not a number")

	r.report(session.State{
		Proxy:       session.ProxyView{Status: session.StatusReady, TunnelAddr: "10.0.0.1:443", Paid: "1.5"},
		Surface:     session.SurfaceReinitializing,
		Negotiation: session.NegotiationView{Resolved: 1, LastOutcome: session.OutcomeAccepted},
		Committed:   session.TunnelSettings{SectionCount: 2},
	})
	out = logs.String()
	assert.Contains(t, out, "Route accepted")
	assert.Contains(t, out, "backend asks to reinitialize")
	assert.Contains(t, out, "Tunnel settings: 2 hops")
}

func TestCLIReporter_RepeatedStateIsQuiet(t *testing.T) {
	logs := captureLogs(t)
	r := &cliReporter{}

	s := session.State{Proxy: session.ProxyView{Status: session.StatusReady}}
	r.report(s)
	before := strings.Count(logs.String(), "Proxy ready")
	r.report(s)
	assert.Equal(t, before, strings.Count(logs.String(), "Proxy ready"))
}

func TestCLIReporter_NoticesAndDisconnect(t *testing.T) {
	logs := captureLogs(t)
	r := &cliReporter{}

	r.handle(session.NoticeEvent{
		BaseEvent: reporting.NewBaseEvent(reporting.EventTypeNotice, "test", reporting.SeverityWarn, ""),
		Notice:    session.Notice{Lane: session.LaneConfig, Message: "save failed", Retryable: true, At: time.Now()},
	})
	r.handle(reporting.NewBaseEvent(reporting.EventTypeBackendDisconnected, "test", reporting.SeverityError, ""))

	out := logs.String()
	assert.Contains(t, out, "config: save failed (retry possible)")
	assert.Contains(t, out, "Backend disconnected")
}
