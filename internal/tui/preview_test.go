package tui

import (
	"strings"
	"testing"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/cache"
)

func TestMarkdownEscapesBackendText(t *testing.T) {
	got := md("  *重要* [链接] #1_a ")
	want := `\*重要\* \[链接\] \#1\_a`
	if got != want {
		t.Errorf("md() = %q, want %q", got, want)
	}
}

func TestEntryMarkdown(t *testing.T) {
	e := cache.Entry{
		Source:     "tiaofasi",
		SourceName: "条法司",
		Serial:     7,
		Title:      "关于废止部分规章的决定",
		Remark:     "2024年公告",
		Abolish:    true,
		Documents: []cache.Document{
			{Title: "正文", URL: "https://example.com/a.pdf", Type: "pdf", Downloaded: true},
			{URL: "/files/b.doc"},
		},
	}
	out := entryMarkdown(e)
	for _, want := range []string{
		"# 关于废止部分规章的决定",
		"**#7** · 条法司 (tiaofasi) · **废止**",
		"> 2024年公告",
		"## 文档 2 · 已下载 1",
		"1. **正文** · pdf · 已下载",
		"2. **/files/b.doc** · 待下载",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("entryMarkdown missing %q:\n%s", want, out)
		}
	}

	empty := entryMarkdown(cache.Entry{Source: "x", Serial: 1})
	if !strings.Contains(empty, "# "+cache.UntitledEntry) || !strings.Contains(empty, "暂无文档") {
		t.Errorf("entryMarkdown(empty) = %q", empty)
	}
}

func TestSearchResultMarkdown(t *testing.T) {
	r := api.SearchResult{
		Title:    "反洗钱管理办法",
		DocNo:    "银发〔2024〕1号",
		Score:    0.5,
		BestPath: "第一章 > 第二条",
		Documents: []api.RawDocument{
			{Title: "全文", URL: "https://example.com/x.html", Downloaded: true},
		},
	}
	out := searchResultMarkdown(r)
	for _, want := range []string{
		"# 反洗钱管理办法",
		"score **0.5000** · 银发〔2024〕1号",
		"`第一章 > 第二条`",
		"## 文档 1",
		"1. **全文** · 已下载",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("searchResultMarkdown missing %q:\n%s", want, out)
		}
	}
}

func TestTaskMarkdown(t *testing.T) {
	out := taskMarkdown(api.TaskSummary{Slug: "zhengwugongkai", EntriesTotal: 12, PendingTotal: 3})
	for _, want := range []string{"# zhengwugongkai", "| 条目 | 12 |", "| 待下载 | 3 |"} {
		if !strings.Contains(out, want) {
			t.Errorf("taskMarkdown missing %q:\n%s", want, out)
		}
	}
}

func TestClip(t *testing.T) {
	content := "a\nb\nc\nd"
	tests := []struct {
		height, scroll int
		want           string
	}{
		{2, 0, "a\nb"},
		{2, 1, "b\nc"},
		{3, 3, "d\n\n"},
		{2, 10, "a\nb"},
	}
	for _, tt := range tests {
		if got := clip(content, tt.height, tt.scroll); got != tt.want {
			t.Errorf("clip(h=%d, s=%d) = %q, want %q", tt.height, tt.scroll, got, tt.want)
		}
	}
}

func TestPreviewRendererFallsBackToPlainText(t *testing.T) {
	var p previewRenderer
	if got := p.render("# title"); !strings.Contains(got, "# title") {
		t.Errorf("render without renderer = %q", got)
	}
}
