package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tunnelctl/internal/tui/design"
)

// PrepareLogContent styles the activity log lines and wraps them to width
// for display in a viewport.
func PrepareLogContent(lines []string, width int) string {
	if len(lines) == 0 {
		return design.DimStyle.Render("No activity yet.")
	}
	styled := make([]string, 0, len(lines))
	wrap := lipgloss.NewStyle()
	if width > 0 {
		wrap = wrap.Width(width)
	}
	for _, line := range lines {
		styled = append(styled, wrap.Render(styleLogLine(line)))
	}
	return strings.Join(styled, "\n")
}

// styleLogLine colors a line by the level field that follows its timestamp.
func styleLogLine(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return design.LogInfoStyle.Render(line)
	}
	switch fields[1] {
	case "ERROR":
		return design.LogErrorStyle.Render(line)
	case "WARN":
		return design.LogWarnStyle.Render(line)
	case "DEBUG":
		return design.LogDebugStyle.Render(line)
	default:
		return design.LogInfoStyle.Render(line)
	}
}
