package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunnelctl/internal/reporting"
	"tunnelctl/internal/session"
)

func TestAddRawLineToActivityLog(t *testing.T) {
	m := &Model{}
	for i := 0; i < MaxActivityLogLines+10; i++ {
		m.AddRawLineToActivityLog(fmt.Sprintf("line %d", i))
	}
	require.Len(t, m.ActivityLog, MaxActivityLogLines)
	assert.Equal(t, "line 10", m.ActivityLog[0])
	assert.Equal(t, fmt.Sprintf("line %d", MaxActivityLogLines+9), m.ActivityLog[MaxActivityLogLines-1])
}

func TestListenUpdatesCmd(t *testing.T) {
	sub := &reporting.EventSubscription{Channel: make(chan reporting.Event, 4)}
	cmd := ListenUpdatesCmd(sub)
	require.NotNil(t, cmd)

	state := session.State{Connected: true, Surface: session.SurfaceReinitializing}
	sub.Channel <- session.StateEvent{
		BaseEvent: reporting.NewBaseEvent(reporting.EventTypeStateChanged, "test", reporting.SeverityDebug, ""),
		State:     state,
	}
	msg := cmd()
	update, ok := msg.(StateUpdateMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, session.SurfaceReinitializing, update.State.Surface)

	sub.Channel <- session.NoticeEvent{
		BaseEvent: reporting.NewBaseEvent(reporting.EventTypeNotice, "test", reporting.SeverityWarn, "boom"),
		Notice:    session.Notice{Lane: session.LaneConfig, Message: "boom"},
	}
	notice, ok := cmd().(NoticeMsg)
	require.True(t, ok)
	assert.Equal(t, "boom", notice.Notice.Message)

	// Unrelated events are skipped.
	sub.Channel <- reporting.NewBaseEvent(reporting.EventTypeSystemStartup, "test", reporting.SeverityInfo, "")
	sub.Channel <- reporting.NewBaseEvent(reporting.EventTypeBackendDisconnected, "test", reporting.SeverityError, "")
	assert.IsType(t, BackendDisconnectedMsg{}, cmd())

	sub.Close()
	assert.IsType(t, UpdatesClosedMsg{}, cmd())

	assert.Nil(t, ListenUpdatesCmd(nil))
}

func TestRunOperation(t *testing.T) {
	m := &Model{OperationTimeout: time.Second}
	wantErr := errors.New("rejected")

	var hadDeadline bool
	msg := m.RunOperation("accept", func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return wantErr
	})()

	res, ok := msg.(OperationResultMsg)
	require.True(t, ok)
	assert.Equal(t, "accept", res.Op)
	assert.Equal(t, wantErr, res.Err)
	assert.True(t, hadDeadline)
}

func TestSetStatusMessage(t *testing.T) {
	m := &Model{}
	cmd := m.SetStatusMessage("first", StatusBarInfo, time.Millisecond)
	require.NotNil(t, cmd)
	m.SetStatusMessage("second", StatusBarError, time.Millisecond)

	assert.Equal(t, "second", m.StatusBarMessage)
	assert.Equal(t, StatusBarError, m.StatusBarMessageType)
	assert.Equal(t, 2, m.StatusBarSeq)

	// The first tick carries a stale sequence number.
	assert.Equal(t, ClearStatusBarMsg{Seq: 1}, cmd())
}

func TestContextHelp(t *testing.T) {
	keys := DefaultKeyMap()

	tests := []struct {
		name  string
		model Model
		want  []string
	}{
		{
			name:  "dashboard",
			model: Model{},
			want:  []string{"s", "t", "p", "x", "L", "?", "q"},
		},
		{
			name:  "route proposal",
			model: Model{State: session.State{Surface: session.SurfaceNegotiating}},
			want:  []string{"a", "r", "c"},
		},
		{
			name:  "reroute picker",
			model: Model{PickingReroute: true, State: session.State{Surface: session.SurfaceNegotiating}},
			want:  []string{"-", "+", "enter", "esc"},
		},
		{
			name:  "reinit",
			model: Model{State: session.State{Surface: session.SurfaceReinitializing}},
			want:  []string{"y", "n", "esc"},
		},
		{
			name:  "pool flow without wallet",
			model: Model{CopyWallet: true, State: session.State{Surface: session.SurfaceConfiguringPool}},
			want:  []string{"-", " ", "enter", "esc"},
		},
		{
			name: "pool flow with wallet",
			model: Model{CopyWallet: true, State: session.State{
				Surface:  session.SurfaceConfiguringPool,
				PoolFlow: session.PoolFlowView{WalletAddr: "EQabc"},
			}},
			want: []string{"w"},
		},
		{
			name:  "reset confirmation",
			model: Model{ConfirmingReset: true},
			want:  []string{"y", "n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var keysSeen []string
			for _, b := range keys.ContextHelp(&tt.model) {
				keysSeen = append(keysSeen, b.Keys()...)
			}
			for _, k := range tt.want {
				assert.Contains(t, keysSeen, k)
			}
		})
	}
}

func TestAppModeString(t *testing.T) {
	assert.Equal(t, "Main", ModeMain.String())
	assert.Equal(t, "LogOverlay", ModeLogOverlay.String())
	assert.Equal(t, "Unknown", AppMode(99).String())
}
