package controller

import (
	tea "github.com/charmbracelet/bubbletea"

	"tunnelctl/internal/tui/model"
	"tunnelctl/pkg/logging"
)

// NewProgram creates the Bubble Tea program driving the given coordinator.
func NewProgram(cfg model.TUIConfig, logChannel <-chan logging.LogEntry) *tea.Program {
	m := model.InitialModel(cfg, logChannel)
	return tea.NewProgram(NewAppModel(m), tea.WithAltScreen())
}
