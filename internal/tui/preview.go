package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/cache"
	"github.com/angelala00/pbcdash/internal/dashboard"
)

// markdownEscaper keeps backend text from being read as markdown syntax.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
	"[", `\[`, "]", `\]`, "#", `\#`, "<", `\<`,
)

func md(s string) string {
	return markdownEscaper.Replace(strings.TrimSpace(s))
}

func documentLines(docs []cache.Document) []string {
	lines := make([]string, 0, len(docs))
	for i, d := range docs {
		state := "待下载"
		if d.Downloaded {
			state = "已下载"
		}
		line := fmt.Sprintf("%d. **%s**", i+1, md(d.DisplayTitle()))
		var meta []string
		if d.Type != "" {
			meta = append(meta, md(d.Type))
		}
		meta = append(meta, state)
		line += " · " + strings.Join(meta, " · ")
		if d.URL != "" {
			line += "\n   " + md(d.URL)
		}
		if d.LocalPath != "" {
			line += "\n   `" + strings.ReplaceAll(d.LocalPath, "`", "'") + "`"
		}
		lines = append(lines, line)
	}
	return lines
}

func entryMarkdown(e cache.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", md(e.DisplayTitle()))

	source := e.Source
	if e.SourceName != "" {
		source = md(e.SourceName) + " (" + md(e.Source) + ")"
	} else {
		source = md(source)
	}
	fmt.Fprintf(&b, "**#%d** · %s", e.Serial, source)
	if e.Abolish {
		b.WriteString(" · **" + cache.AbolishKeyword + "**")
	}
	b.WriteString("\n\n")

	if r := strings.TrimSpace(e.Remark); r != "" {
		fmt.Fprintf(&b, "> %s\n\n", md(r))
	}

	fmt.Fprintf(&b, "## 文档 %d · 已下载 %d\n\n", len(e.Documents), e.DownloadedCount())
	if len(e.Documents) == 0 {
		b.WriteString("暂无文档。\n")
	}
	for _, line := range documentLines(e.Documents) {
		b.WriteString(line + "\n")
	}
	return b.String()
}

func searchResultMarkdown(r api.SearchResult) string {
	var b strings.Builder
	title := r.Title.String()
	if strings.TrimSpace(title) == "" {
		title = cache.UntitledEntry
	}
	fmt.Fprintf(&b, "# %s\n\n", md(title))

	meta := []string{fmt.Sprintf("score **%.4f**", r.Score)}
	for _, v := range []api.Text{r.DocNo, r.Year, r.DocType, r.Agency} {
		if s := strings.TrimSpace(v.String()); s != "" {
			meta = append(meta, md(s))
		}
	}
	b.WriteString(strings.Join(meta, " · ") + "\n\n")

	if s := strings.TrimSpace(r.Remark.String()); s != "" {
		fmt.Fprintf(&b, "> %s\n\n", md(s))
	}
	if s := strings.TrimSpace(r.BestPath.String()); s != "" {
		fmt.Fprintf(&b, "`%s`\n\n", strings.ReplaceAll(s, "`", "'"))
	}

	if len(r.Documents) > 0 {
		docs := make([]cache.Document, len(r.Documents))
		for i, d := range r.Documents {
			docs[i] = cache.Document{
				Title: d.Title.String(), URL: d.URL.String(), Type: d.Type.String(),
				LocalPath: d.LocalPath.String(), Downloaded: bool(d.Downloaded),
			}
		}
		fmt.Fprintf(&b, "## 文档 %d\n\n", len(docs))
		for _, line := range documentLines(docs) {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func taskMarkdown(t api.TaskSummary) string {
	var b strings.Builder
	name := t.Name
	if strings.TrimSpace(name) == "" {
		name = t.Slug
	}
	class, reason := dashboard.Status(t)
	fmt.Fprintf(&b, "# %s\n\n", md(name))
	fmt.Fprintf(&b, "**%s** · %s\n\n", class, md(reason))
	if t.StartURL != "" {
		display, _ := dashboard.SummarizeURL(t.StartURL)
		fmt.Fprintf(&b, "%s\n\n", md(display))
	}
	rows := [][2]string{
		{"任务标识", md(t.Slug)},
		{"条目", fmt.Sprint(t.EntriesTotal)},
		{"文档", fmt.Sprint(t.DocumentsTotal)},
		{"已下载", fmt.Sprint(t.DownloadedTotal)},
		{"待下载", fmt.Sprint(t.PendingTotal)},
		{"跟踪文件", fmt.Sprint(t.TrackedFiles)},
		{"更新", dashboard.FormatTimestamp(t.StateLastUpdated)},
		{"下次运行", dashboard.NextWindow(t)},
		{"缓存", dashboard.CacheInfo(t)},
		{"输出", dashboard.OutputInfo(t)},
		{"文档类型", md(dashboard.DocumentTypes(t))},
	}
	b.WriteString("| | |\n|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", r[0], r[1])
	}
	return b.String()
}

// previewRenderer renders markdown with glamour, reusing the output while
// the source and width are unchanged.
type previewRenderer struct {
	width    int
	renderer *glamour.TermRenderer
	lastKey  string
	lastOut  string
}

func (p *previewRenderer) resize(width int) {
	if width == p.width && p.renderer != nil {
		return
	}
	p.width = width
	p.lastKey = ""
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		p.renderer = nil
		return
	}
	p.renderer = r
}

func (p *previewRenderer) render(markdown string) string {
	if p.renderer == nil {
		return previewBodyStyle.Render(markdown)
	}
	if markdown == p.lastKey {
		return p.lastOut
	}
	out, err := p.renderer.Render(markdown)
	if err != nil {
		out = previewBodyStyle.Render(markdown)
	}
	p.lastKey, p.lastOut = markdown, strings.Trim(out, "\n")
	return p.lastOut
}

// clip applies the scroll offset and pads or cuts content to height lines.
func clip(content string, height, scroll int) string {
	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}
	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}
