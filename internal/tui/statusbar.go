package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const (
	hintsTasks       = " enter entries  e all entries  s search  o open  r refresh  ? help  q quit "
	hintsEntries     = " / filter  f sources  a 废止  [ ] limit  o open  s search  esc tasks  q quit "
	hintsSearch      = " / query  + - topk  o open  esc tasks  q quit "
	hintsInput       = " esc cancel  enter apply "
	hintsSourcePick  = " ←/→ move  space toggle  0 all  esc done "
	hintsHelpOverlay = " ? close  q quit "
)

func renderStatusBar(left, right string, width int, busy string) string {
	if busy != "" {
		left = busy + " " + left
	}
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	bar := left + fmt.Sprintf("%*s", gap, "") + right
	return statusBarStyle.Width(width).Render(bar)
}
