package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/angelala00/pbcdash/internal/api"
)

func ts(s string) *api.Timestamp {
	return &api.Timestamp{Time: api.ParseTimestamp(s)}
}

func TestSummarize(t *testing.T) {
	tasks := []api.TaskSummary{
		{EntriesTotal: 3, DocumentsTotal: 5, PendingTotal: 1, TrackedFiles: 4},
		{EntriesTotal: 2, DocumentsTotal: 2, TrackedFiles: 2},
	}
	got := Summarize(tasks).Cards()
	want := []Card{{"Tasks", 2}, {"Entries", 5}, {"Documents", 7}, {"Pending", 1}, {"Tracked files", 6}}
	if len(got) != len(want) {
		t.Fatalf("got %d cards, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("card %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[string]string{
		"ok":        "ok",
		"attention": "attention",
		"stale":     "stale",
		"waiting":   "waiting",
		"broken":    "waiting",
		"":          "waiting",
	}
	for in, want := range tests {
		if got := StatusClass(in); got != want {
			t.Errorf("StatusClass(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name       string
		task       api.TaskSummary
		wantStatus string
		wantReason string
	}{
		{"no entries", api.TaskSummary{}, "waiting", "No entries recorded yet"},
		{"pending", api.TaskSummary{EntriesTotal: 4, PendingTotal: 2}, "attention", "2 document(s) pending download"},
		{"stale", api.TaskSummary{EntriesTotal: 4, PagesCached: 3}, "stale", "Listing cache is older than today"},
		{"fresh", api.TaskSummary{EntriesTotal: 4, PagesCached: 3, PageCacheFresh: true}, "ok", "Up to date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, reason := DeriveStatus(tt.task)
			if status != tt.wantStatus || reason != tt.wantReason {
				t.Errorf("DeriveStatus = (%q, %q), want (%q, %q)", status, reason, tt.wantStatus, tt.wantReason)
			}
		})
	}
}

func TestStatusPrefersBackend(t *testing.T) {
	status, reason := Status(api.TaskSummary{Status: "stale", StatusReason: "old"})
	if status != "stale" || reason != "old" {
		t.Errorf("Status = (%q, %q)", status, reason)
	}
	_, reason = Status(api.TaskSummary{Status: "ok"})
	if reason != Placeholder {
		t.Errorf("missing reason = %q, want placeholder", reason)
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Time{}); got != Placeholder {
		t.Errorf("zero time = %q", got)
	}
	local := time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)
	if got := FormatDate(local); got != "2024-03-09 07:05:01" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatTimestamp(nil); got != Placeholder {
		t.Errorf("nil timestamp = %q", got)
	}
	if got := FormatTimestamp(ts("not a date")); got != Placeholder {
		t.Errorf("invalid timestamp = %q", got)
	}
	if got := FormatTimestamp(ts("2024-03-09T07:05:01")); got != "2024-03-09 07:05:01" {
		t.Errorf("zone-less timestamp = %q", got)
	}
}

func TestSummarizeURL(t *testing.T) {
	display, full := SummarizeURL("http://www.pbc.gov.cn/tiaofasi/144941/index.html?page=2#top")
	if display != "www.pbc.gov.cn/tiaofasi/144941/index.html?page=2#top" {
		t.Errorf("display = %q", display)
	}
	if full != "http://www.pbc.gov.cn/tiaofasi/144941/index.html?page=2#top" {
		t.Errorf("full = %q", full)
	}

	long := "https://example.com/" + strings.Repeat("a", 100)
	display, _ = SummarizeURL(long)
	if n := len([]rune(display)); n != 60 {
		t.Errorf("display has %d runes, want 60", n)
	}
	if !strings.HasSuffix(display, "…") {
		t.Errorf("display %q not ellipsized", display)
	}

	display, full = SummarizeURL("not a url")
	if display != "not a url" || full != "not a url" {
		t.Errorf("relative input = (%q, %q)", display, full)
	}
}

func TestNextWindow(t *testing.T) {
	task := api.TaskSummary{NextRunEarliest: ts("2024-01-01T08:00:00")}
	if got := NextWindow(task); got != Placeholder {
		t.Errorf("half window = %q", got)
	}
	task.NextRunLatest = ts("2024-01-01T09:30:00")
	if got := NextWindow(task); got != "2024-01-01 08:00:00 ↔ 2024-01-01 09:30:00" {
		t.Errorf("window = %q", got)
	}
}

func TestTaskColumns(t *testing.T) {
	task := api.TaskSummary{
		PagesCached:        4,
		PageCacheFresh:     true,
		OutputFiles:        2,
		OutputSizeBytes:    1024,
		DocumentTypeCounts: map[string]int{"pdf": 3, "doc": 1},
	}
	if got := CacheInfo(task); got != "4 pages (fresh today)" {
		t.Errorf("CacheInfo = %q", got)
	}
	if got := OutputInfo(task); got != "2 files / 1024 bytes" {
		t.Errorf("OutputInfo = %q", got)
	}
	if got := DocumentTypes(task); got != "doc:1, pdf:3" {
		t.Errorf("DocumentTypes = %q", got)
	}
	if got := DocumentTypes(api.TaskSummary{}); got != Placeholder {
		t.Errorf("empty DocumentTypes = %q", got)
	}
}

func TestEntriesHeader(t *testing.T) {
	title, sub := EntriesHeader(&api.TaskSummary{Slug: "task-a", Name: "条法司", EntriesTotal: 9}, "", "", -1)
	if title != "条法司" || sub != "任务标识 task-a · 条目数 9" {
		t.Errorf("header = (%q, %q)", title, sub)
	}
	title, sub = EntriesHeader(nil, "x", "", 3)
	if title != "条目详情" || sub != "任务标识 x · 条目数 3" {
		t.Errorf("fallback header = (%q, %q)", title, sub)
	}
}

func TestMetaLine(t *testing.T) {
	task := &api.TaskSummary{
		DocumentsTotal:   10,
		DownloadedTotal:  7,
		PendingTotal:     3,
		StateLastUpdated: ts("2024-05-01T10:00:00"),
	}
	want := "条目 4 · 文档 10 · 已下载 7 · 待下载 3 · 更新 2024-05-01 10:00:00"
	if got := MetaLine(task, 4); got != want {
		t.Errorf("MetaLine = %q, want %q", got, want)
	}
	if got := MetaLine(nil, -1); got != Placeholder {
		t.Errorf("empty MetaLine = %q", got)
	}
}
