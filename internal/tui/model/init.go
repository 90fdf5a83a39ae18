package model

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tunnelctl/internal/reporting"
	"tunnelctl/internal/tui/design"
	"tunnelctl/pkg/logging"
)

// InitialModel builds the TUI model around a running coordinator.
func InitialModel(cfg TUIConfig, logChan <-chan logging.LogEntry) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(design.ColorPrimary)

	h := help.New()
	h.ShowAll = false

	m := &Model{
		Coordinator:      cfg.Coordinator,
		OperationTimeout: cfg.OperationTimeout,
		BackendURL:       cfg.BackendURL,
		DebugMode:        cfg.DebugMode,
		CopyWallet:       cfg.CopyWallet,
		CurrentAppMode:   ModeMain,
		Keys:             DefaultKeyMap(),
		Help:             h,
		Spinner:          s,
		LogViewport:      viewport.New(0, 0),
		ActivityLog:      []string{},
		LogChannel:       logChan,
	}

	if cfg.Coordinator != nil {
		m.Updates = cfg.Coordinator.Updates(
			reporting.EventTypeStateChanged,
			reporting.EventTypeNotice,
			reporting.EventTypeBackendDisconnected,
		)
		m.State = cfg.Coordinator.Snapshot()
	}
	return m
}

// Init starts the listeners and the spinner.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.Spinner.Tick}
	if cmd := ListenUpdatesCmd(m.Updates); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if cmd := m.ListenLogsCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Close releases the coordinator subscription.
func (m *Model) Close() {
	if m.Coordinator != nil && m.Updates != nil {
		m.Coordinator.Unsubscribe(m.Updates)
		m.Updates = nil
	}
}
