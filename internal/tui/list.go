package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/cache"
	"github.com/angelala00/pbcdash/internal/dashboard"
)

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return dashboard.Placeholder
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func renderItem(title, meta string, selected bool, width int) string {
	if width < 10 {
		width = 30
	}
	if selected {
		title = itemSelectedStyle.Render("> " + truncateStr(title, width-4))
	} else {
		title = itemTitleStyle.Render("  " + truncateStr(title, width-4))
	}
	return title + "\n  " + meta
}

func entryItem(e cache.Entry, selected bool, width int) string {
	title := fmt.Sprintf("#%d %s", e.Serial, e.DisplayTitle())
	source := e.SourceName
	if source == "" {
		source = e.Source
	}
	meta := itemSourceStyle.Render(truncateStr(source, width/2)) +
		itemTimeStyle.Render(fmt.Sprintf(" · %d 文档", len(e.Documents)))
	if e.Abolish {
		meta += " " + abolishTagStyle.Render(cache.AbolishKeyword)
	}
	return renderItem(title, meta, selected, width)
}

func taskItem(t api.TaskSummary, selected bool, width int) string {
	name := t.Name
	if strings.TrimSpace(name) == "" {
		name = t.Slug
	}
	class, reason := dashboard.Status(t)
	updated := ""
	if t.StateLastUpdated != nil {
		updated = relativeTime(t.StateLastUpdated.Time)
	}
	meta := statusStyle(class).Render(truncateStr(reason, width/2)) +
		itemTimeStyle.Render(fmt.Sprintf(" · %d 条目 · %s", t.EntriesTotal, updated))
	return renderItem(name, meta, selected, width)
}

func searchItem(r api.SearchResult, selected bool, width int) string {
	title := r.Title.String()
	if strings.TrimSpace(title) == "" {
		title = cache.UntitledEntry
	}
	meta := itemSourceStyle.Render(fmt.Sprintf("%.3f", r.Score))
	if r.DocNo != "" {
		meta += itemTimeStyle.Render(" · " + truncateStr(r.DocNo.String(), width/2))
	}
	return renderItem(title, meta, selected, width)
}

// renderList lays out n two-line items, scrolling to keep cursor visible.
func renderList(n, cursor, height, width int, empty string, item func(i int, selected bool) string) string {
	if n == 0 {
		return lipglossCenter(empty, width, height)
	}

	// Each item is 2 lines + 1 blank line = 3 lines
	itemHeight := 3
	visible := height / itemHeight
	if visible < 1 {
		visible = 1
	}

	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > n {
		end = n
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(item(i, i == cursor))
		if i < end-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func lipglossCenter(s string, width, height int) string {
	pad := (width - len([]rune(s))) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", pad) + s
}
