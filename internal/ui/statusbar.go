package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/devtreehq/devtree/internal/hierarchy"
)

// statusBar shows the session state, the staged-edit count and the last
// failure, pinned to the bottom of the view.
type statusBar struct {
	width   int
	state   hierarchy.State
	pending int
	lastErr string
	spinner spinner.Model
}

func newStatusBar() statusBar {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		FPS:    time.Second / 10,
	}
	s.Style = SpinnerStyle
	return statusBar{spinner: s}
}

func (s statusBar) view() string {
	left := "state: " + StateBadge(s.state.String())
	if s.state == hierarchy.StateApplying {
		left = s.spinner.View() + " " + left
	}
	if s.pending > 0 {
		left += SubtleStyle.Render(fmt.Sprintf("  %d staged", s.pending))
	}

	right := ""
	if s.lastErr != "" {
		right = ErrorStyle.Render(truncate(s.lastErr, s.width/2))
	}

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return StatusBarStyle.Width(s.width).Render(left + strings.Repeat(" ", gap) + right)
}

func truncate(s string, max int) string {
	if max < 4 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
