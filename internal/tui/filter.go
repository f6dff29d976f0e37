package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/filter"
)

// filterBar renders the source tabs. Selection itself lives in filter.State.
type filterBar struct {
	sources      []string
	labels       map[string]string
	filterMode   bool
	filterCursor int
}

func newFilterBar() filterBar {
	return filterBar{labels: make(map[string]string)}
}

func (f *filterBar) setTasks(tasks []api.TaskSummary) {
	f.sources = f.sources[:0]
	for _, t := range tasks {
		slug := strings.TrimSpace(t.Slug)
		if slug == "" {
			continue
		}
		f.sources = append(f.sources, slug)
		if name := strings.TrimSpace(t.Name); name != "" {
			f.labels[slug] = name
		}
	}
	if f.filterCursor >= len(f.sources) {
		f.filterCursor = max(0, len(f.sources)-1)
	}
}

// addSource keeps sources the task list does not know, such as a deep link.
func (f *filterBar) addSource(slug string) {
	for _, s := range f.sources {
		if s == slug {
			return
		}
	}
	f.sources = append(f.sources, slug)
}

func (f *filterBar) label(slug string) string {
	if l, ok := f.labels[slug]; ok {
		return l
	}
	return slug
}

func (f *filterBar) current() (string, bool) {
	if f.filterCursor < len(f.sources) {
		return f.sources[f.filterCursor], true
	}
	return "", false
}

func (f *filterBar) render(state filter.State, width int) string {
	sep := tabSeparatorStyle.Render(" · ")
	var parts []string

	if len(state.Selected()) == 0 {
		parts = append(parts, tabActiveStyle.Render("All"))
	} else {
		parts = append(parts, tabInactiveStyle.Render("All"))
	}

	for i, s := range f.sources {
		style := tabInactiveStyle
		if state.IsSelected(s) {
			style = tabActiveStyle
		}
		label := f.label(s)
		if f.filterMode && i == f.filterCursor {
			label = "[" + label + "]"
		}
		parts = append(parts, style.Render(label))
	}

	if state.CategoryOnly() {
		parts = append(parts, abolishTagStyle.Render("仅废止"))
	}

	// Build row with · separators, stopping when we'd exceed width
	var row string
	for i, part := range parts {
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}
