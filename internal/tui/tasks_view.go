package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/dashboard"
)

func renderCards(tasks []api.TaskSummary, width int) string {
	cards := dashboard.Summarize(tasks).Cards()
	rendered := make([]string, 0, len(cards))
	for _, c := range cards {
		rendered = append(rendered, cardStyle.Render(
			cardLabelStyle.Render(c.Label)+"\n"+cardValueStyle.Render(fmt.Sprint(c.Value)),
		))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	if lipgloss.Width(row) > width {
		// Narrow terminals get a single line instead of boxes
		var line string
		for i, c := range cards {
			if i > 0 {
				line += tabSeparatorStyle.Render(" · ")
			}
			line += cardLabelStyle.Render(c.Label+" ") + cardValueStyle.Render(fmt.Sprint(c.Value))
		}
		return " " + line
	}
	return row
}

func (a *App) tasksContent(width, height int) (list, preview string) {
	list = renderList(len(a.tasks), a.taskCursor, height, width, a.emptyTasksText(), func(i int, selected bool) string {
		return taskItem(a.tasks[i], selected, width)
	})
	if a.taskCursor < len(a.tasks) {
		preview = a.preview.render(taskMarkdown(a.tasks[a.taskCursor]))
	}
	return list, preview
}

func (a *App) emptyTasksText() string {
	switch {
	case a.tasksLoaded:
		return "No tasks found"
	case a.cfg.StaticSnapshot:
		return "No data available"
	default:
		return "Loading…"
	}
}
