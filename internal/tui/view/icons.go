package view

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Icon constants
const (
	IconCheck     = "✔" // U+2714
	IconCross     = "✖" // U+2716
	IconWarning   = "⚠" // U+26A0 without VS16
	IconHourglass = "⏳" // U+23F3
	IconPlay      = "▶" // U+25B6 without VS16
	IconStop      = "⏹" // U+23F9 without VS16
	IconLink      = "🔗" // U+1F517
	IconGear      = "⚙" // U+2699 without VS16
	IconScroll    = "📜" // U+1F4DC
	IconQuestion  = "❓" // U+2753
	IconExit      = "⇥" // U+21E5
	IconWallet    = "👛" // U+1F45B
)

// SafeIcon pads an icon so that wide glyphs do not swallow the following
// character: one trailing space for single-cell icons, two for wide ones.
func SafeIcon(icon string) string {
	spaces := 1
	if runewidth.StringWidth(icon) >= 2 {
		spaces = 2
	}
	return fmt.Sprintf("%s%s", icon, strings.Repeat(" ", spaces))
}

// IconText formats an icon with text, handling spacing properly
func IconText(icon string, text string) string {
	return SafeIcon(icon) + text
}

// Truncate shortens s to at most width display cells, ending with an
// ellipsis when something was cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
