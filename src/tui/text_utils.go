package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// CleanLine strips ANSI escape sequences and carriage returns from one line
// of Jenkins console output so it renders predictably inside the viewport.
func CleanLine(s string) string {
	return strings.ReplaceAll(ansi.Strip(s), "\r", "")
}

// VisualWidth returns the display width of text, accounting for wide runes.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Clip truncates text to width visual cells, appending an ellipsis when
// something was cut.
func Clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if VisualWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width-3, "") + "..."
}

// Pad clips text to exactly width cells and right-pads with spaces, keeping
// status columns aligned.
func Pad(s string, width int) string {
	s = Clip(s, width)
	if gap := width - VisualWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
