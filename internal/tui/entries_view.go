package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/cache"
	"github.com/angelala00/pbcdash/internal/dashboard"
)

func (a *App) entriesTop() []string {
	bar := a.filterBar.render(a.state, a.width)
	if a.mode == modeQuery {
		bar = a.queryInput.View()
	}
	title, subtitle := a.entriesHeading()
	heading := " " + itemTitleStyle.Render(title)
	if subtitle != "" {
		heading += "  " + itemTimeStyle.Render(subtitle)
	}
	return []string{bar, lipgloss.NewStyle().MaxWidth(a.width).Render(heading)}
}

// entriesHeading describes the current selection. A single source gets the
// task's header and meta line.
func (a *App) entriesHeading() (title, subtitle string) {
	sources := a.result.Sources
	if len(sources) != 1 {
		labels := make([]string, len(sources))
		for i, s := range sources {
			labels[i] = a.filterBar.label(s)
		}
		title = "全部任务"
		if len(a.state.Selected()) > 0 {
			title = fmt.Sprintf("%d 个任务", len(sources))
		}
		return title, strings.Join(labels, " · ")
	}

	source := sources[0]
	lookup := a.cache.Get(source)
	task := lookup.Task
	if task == nil {
		if t, ok := a.cache.Task(source); ok {
			task = &t
		}
	}
	count := -1
	if lookup.State == cache.Loaded {
		count = len(lookup.Entries)
	}
	title, subtitle = dashboard.EntriesHeader(task, source, a.filterBar.label(source), count)
	if meta := dashboard.MetaLine(task, count); meta != dashboard.Placeholder {
		subtitle += " · " + meta
	}
	return title, subtitle
}

func (a *App) entriesContent(width, height int) (list, preview string) {
	shown := a.result.Displayed
	list = renderList(len(shown), a.entryCursor, height, width, a.emptyEntriesText(), func(i int, selected bool) string {
		return entryItem(shown[i], selected, width)
	})
	if a.entryCursor < len(shown) {
		preview = a.preview.render(entryMarkdown(shown[a.entryCursor]))
	}
	return list, preview
}

func (a *App) emptyEntriesText() string {
	switch {
	case len(a.loading) > 0:
		return "Loading entries…"
	case len(a.result.Sources) == 0:
		return "No tasks selected"
	case a.result.TotalBeforeFilters == 0 && len(a.failedSources()) > 0:
		return "Failed to load entries, press r to retry"
	case a.state.Searching():
		return "No matching entries"
	case a.state.CategoryOnly():
		return "No " + cache.AbolishKeyword + " entries"
	default:
		return "No entries"
	}
}

// failedSources lists the pipeline's sources whose last load failed.
func (a *App) failedSources() []string {
	var out []string
	for _, s := range a.result.Sources {
		if a.failed[s] != nil {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func (a *App) entriesStatus() string {
	parts := []string{a.result.Summary()}
	if q := strings.TrimSpace(a.state.Query()); q != "" && a.mode != modeQuery {
		parts = append(parts, fmt.Sprintf("%q", q))
	}
	if a.result.Limited {
		parts = append(parts, fmt.Sprintf("limit %d", a.state.Limit()))
	}
	if n := len(a.loading); n > 0 {
		parts = append(parts, fmt.Sprintf("loading %d", n))
	}
	if failed := a.failedSources(); len(failed) > 0 {
		parts = append(parts, "failed: "+strings.Join(failed, ", "))
		if len(failed) == 1 {
			if code := api.StatusCode(a.failed[failed[0]]); code != 0 {
				parts[len(parts)-1] += fmt.Sprintf(" (%d)", code)
			}
		}
	}
	return strings.Join(parts, " · ")
}
