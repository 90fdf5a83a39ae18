package model

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"tunnelctl/internal/reporting"
	"tunnelctl/internal/session"
)

// ListenUpdatesCmd waits for the next coordinator event and turns it into a
// tea message. The listener must be re-armed after each message.
func ListenUpdatesCmd(sub *reporting.EventSubscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		for ev := range sub.Channel {
			switch e := ev.(type) {
			case session.StateEvent:
				return StateUpdateMsg{State: e.State}
			case session.NoticeEvent:
				return NoticeMsg{Notice: e.Notice}
			default:
				if ev.Type() == reporting.EventTypeBackendDisconnected {
					return BackendDisconnectedMsg{}
				}
			}
		}
		return UpdatesClosedMsg{}
	}
}

// ListenLogsCmd forwards the next log entry from the logging channel.
func (m *Model) ListenLogsCmd() tea.Cmd {
	if m.LogChannel == nil {
		return nil
	}
	ch := m.LogChannel
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return LogChannelClosedMsg{}
		}
		return NewLogEntryMsg{Entry: entry}
	}
}

// RunOperation invokes a coordinator operation off the UI goroutine. The
// result only reports whether the coordinator accepted the request; its
// effects arrive as state updates.
func (m *Model) RunOperation(op string, fn func(ctx context.Context) error) tea.Cmd {
	timeout := m.OperationTimeout
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return OperationResultMsg{Op: op, Err: fn(ctx)}
	}
}

// SetStatusMessage shows msg in the status bar and schedules its removal.
func (m *Model) SetStatusMessage(msg string, msgType MessageType, duration time.Duration) tea.Cmd {
	m.StatusBarSeq++
	m.StatusBarMessage = msg
	m.StatusBarMessageType = msgType
	seq := m.StatusBarSeq
	return tea.Tick(duration, func(time.Time) tea.Msg {
		return ClearStatusBarMsg{Seq: seq}
	})
}

// CopyToClipboardCmd copies text to the system clipboard.
func CopyToClipboardCmd(what, text string) tea.Cmd {
	return func() tea.Msg {
		return ClipboardResultMsg{What: what, Err: clipboard.WriteAll(text)}
	}
}
