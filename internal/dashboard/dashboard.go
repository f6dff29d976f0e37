// Package dashboard formats task summaries for display: summary cards,
// status classes, dates, URLs and the entry viewer's header lines.
package dashboard

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelala00/pbcdash/internal/api"
)

// Placeholder is shown for missing values.
const Placeholder = "—"

const maxURLDisplay = 60

type Totals struct {
	Tasks     int
	Entries   int
	Documents int
	Pending   int
	Tracked   int
}

func Summarize(tasks []api.TaskSummary) Totals {
	t := Totals{Tasks: len(tasks)}
	for _, task := range tasks {
		t.Entries += task.EntriesTotal
		t.Documents += task.DocumentsTotal
		t.Pending += task.PendingTotal
		t.Tracked += task.TrackedFiles
	}
	return t
}

type Card struct {
	Label string
	Value int
}

func (t Totals) Cards() []Card {
	return []Card{
		{"Tasks", t.Tasks},
		{"Entries", t.Entries},
		{"Documents", t.Documents},
		{"Pending", t.Pending},
		{"Tracked files", t.Tracked},
	}
}

// Status classes reported by the backend.
const (
	StatusOK        = "ok"
	StatusAttention = "attention"
	StatusWaiting   = "waiting"
	StatusStale     = "stale"
)

// StatusClass maps a backend status to a known class; unknown values are
// treated as waiting.
func StatusClass(status string) string {
	switch status {
	case StatusOK, StatusAttention, StatusWaiting, StatusStale:
		return status
	default:
		return StatusWaiting
	}
}

// DeriveStatus computes status and reason from the task counters, for
// backends that leave them empty.
func DeriveStatus(t api.TaskSummary) (string, string) {
	switch {
	case t.EntriesTotal == 0:
		return StatusWaiting, "No entries recorded yet"
	case t.PendingTotal > 0:
		return StatusAttention, fmt.Sprintf("%d document(s) pending download", t.PendingTotal)
	case !t.PageCacheFresh && t.PagesCached > 0:
		return StatusStale, "Listing cache is older than today"
	default:
		return StatusOK, "Up to date"
	}
}

// Status returns the task's status class and reason, deriving both when the
// backend sent no status.
func Status(t api.TaskSummary) (string, string) {
	if strings.TrimSpace(t.Status) == "" {
		return DeriveStatus(t)
	}
	reason := t.StatusReason
	if strings.TrimSpace(reason) == "" {
		reason = Placeholder
	}
	return StatusClass(t.Status), reason
}

// FormatDate renders t in local time as "2006-01-02 15:04:05".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func FormatTimestamp(ts *api.Timestamp) string {
	if ts == nil {
		return Placeholder
	}
	return FormatDate(ts.Time)
}

// SummarizeURL returns host+path+query+fragment, truncated to 60 characters,
// and the full URL. Unparseable input is returned as-is for both.
func SummarizeURL(raw string) (display, full string) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw, raw
	}
	display = u.Host + u.EscapedPath()
	if u.RawQuery != "" {
		display += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		display += "#" + u.EscapedFragment()
	}
	if display == "" {
		display = raw
	}
	return Truncate(display, maxURLDisplay), u.String()
}

// Truncate shortens s to at most n runes, ending with an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// NextWindow renders "earliest ↔ latest", or the placeholder unless both
// ends are known.
func NextWindow(t api.TaskSummary) string {
	if t.NextRunEarliest == nil || t.NextRunLatest == nil ||
		t.NextRunEarliest.IsZero() || t.NextRunLatest.IsZero() {
		return Placeholder
	}
	return FormatTimestamp(t.NextRunEarliest) + " ↔ " + FormatTimestamp(t.NextRunLatest)
}

func CacheInfo(t api.TaskSummary) string {
	s := fmt.Sprintf("%d pages", t.PagesCached)
	if t.PageCacheFresh {
		s += " (fresh today)"
	}
	return s
}

func OutputInfo(t api.TaskSummary) string {
	return fmt.Sprintf("%d files / %d bytes", t.OutputFiles, t.OutputSizeBytes)
}

// DocumentTypes lists "type:count" pairs sorted by type.
func DocumentTypes(t api.TaskSummary) string {
	if len(t.DocumentTypeCounts) == 0 {
		return Placeholder
	}
	keys := make([]string, 0, len(t.DocumentTypeCounts))
	for k := range t.DocumentTypeCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, t.DocumentTypeCounts[k])
	}
	return strings.Join(parts, ", ")
}
