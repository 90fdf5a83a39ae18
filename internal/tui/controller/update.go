package controller

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"tunnelctl/internal/session"
	"tunnelctl/internal/tui/model"
	"tunnelctl/internal/tui/view"
	"tunnelctl/pkg/logging"
)

const (
	controllerSubsystem = "TUI"

	statusMessageDuration = 5 * time.Second
)

// Update is the central message routing function for the TUI. It applies
// msg to m and returns the commands to run next.
func Update(msg tea.Msg, m *model.Model) (*model.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyMsg(m, msg)

	case tea.WindowSizeMsg:
		return handleWindowSizeMsg(m, msg)

	case model.StateUpdateMsg:
		applyState(m, msg.State)
		return m, model.ListenUpdatesCmd(m.Updates)

	case model.NoticeMsg:
		msgType := model.StatusBarError
		if msg.Notice.Retryable {
			msgType = model.StatusBarWarning
		}
		return m, tea.Batch(
			m.SetStatusMessage(msg.Notice.String(), msgType, statusMessageDuration),
			model.ListenUpdatesCmd(m.Updates),
		)

	case model.BackendDisconnectedMsg:
		return m, tea.Batch(
			m.SetStatusMessage("Backend disconnected", model.StatusBarError, statusMessageDuration),
			model.ListenUpdatesCmd(m.Updates),
		)

	case model.UpdatesClosedMsg:
		logging.Debug(controllerSubsystem, "coordinator update stream closed")
		m.Updates = nil
		return m, nil

	case model.NewLogEntryMsg:
		m.AddRawLineToActivityLog(msg.Entry.String())
		refreshLogViewport(m)
		return m, m.ListenLogsCmd()

	case model.LogChannelClosedMsg:
		m.LogChannel = nil
		return m, nil

	case model.OperationResultMsg:
		if msg.Err != nil {
			logging.Debug(controllerSubsystem, "%s rejected: %v", msg.Op, msg.Err)
			return m, m.SetStatusMessage(fmt.Sprintf("%s: %v", msg.Op, msg.Err), model.StatusBarError, statusMessageDuration)
		}
		return m, nil

	case model.ClipboardResultMsg:
		if msg.Err != nil {
			return m, m.SetStatusMessage(fmt.Sprintf("Failed to copy %s: %v", msg.What, msg.Err), model.StatusBarError, statusMessageDuration)
		}
		return m, m.SetStatusMessage(fmt.Sprintf("Copied %s to clipboard", msg.What), model.StatusBarSuccess, statusMessageDuration)

	case model.ClearStatusBarMsg:
		if msg.Seq == m.StatusBarSeq {
			m.StatusBarMessage = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// applyState installs a new snapshot and drops local UI state that no
// longer matches it.
func applyState(m *model.Model, s session.State) {
	prev := m.State
	m.State = s

	if m.PickingReroute {
		neg := s.Negotiation
		if s.Surface != session.SurfaceNegotiating || neg.Phase != session.NegotiationAwaitingDecision ||
			neg.Proposal == nil || prev.Negotiation.Proposal == nil || neg.Proposal.ID != prev.Negotiation.Proposal.ID {
			m.PickingReroute = false
		}
	}
	if s.Surface != session.SurfaceNone {
		m.ConfirmingReset = false
	}
	if s.Surface != session.SurfaceConfiguringPool || s.PoolFlow.WalletAddr == "" || !s.PoolFlow.Draft.PaymentsEnabled {
		m.ShowWalletQR = false
	}
}

func handleWindowSizeMsg(m *model.Model, msg tea.WindowSizeMsg) (*model.Model, tea.Cmd) {
	m.Width = msg.Width
	m.Height = msg.Height
	m.Help.Width = msg.Width
	resizeLogViewport(m)
	return m, nil
}

func resizeLogViewport(m *model.Model) {
	w, h := view.LogViewportSize(m.CurrentAppMode, m.Width, m.Height)
	m.LogViewport.Width = w
	m.LogViewport.Height = h
	refreshLogViewport(m)
}

func refreshLogViewport(m *model.Model) {
	atBottom := m.LogViewport.AtBottom()
	m.LogViewport.SetContent(view.PrepareLogContent(m.ActivityLog, m.LogViewport.Width))
	if atBottom {
		m.LogViewport.GotoBottom()
	}
}
