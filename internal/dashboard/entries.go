package dashboard

import (
	"fmt"
	"strings"

	"github.com/angelala00/pbcdash/internal/api"
)

// EntriesHeader returns the entry viewer's title and subtitle. fallbackName
// is used when task is nil or unnamed; count < 0 means unknown.
func EntriesHeader(task *api.TaskSummary, slug, fallbackName string, count int) (title, subtitle string) {
	name := strings.TrimSpace(fallbackName)
	if task != nil && strings.TrimSpace(task.Name) != "" {
		name = strings.TrimSpace(task.Name)
	}
	title = name
	if title == "" {
		title = "条目详情"
	}

	if slug == "" && task != nil {
		slug = task.Slug
	}
	var parts []string
	if slug != "" {
		parts = append(parts, "任务标识 "+slug)
	}
	if count < 0 && task != nil {
		count = task.EntriesTotal
	}
	if count >= 0 {
		parts = append(parts, fmt.Sprintf("条目数 %d", count))
	}
	return title, strings.Join(parts, " · ")
}

// MetaLine renders "条目 N · 文档 D · 已下载 X · 待下载 P · 更新 T". count < 0
// falls back to the task's entries total.
func MetaLine(task *api.TaskSummary, count int) string {
	var parts []string
	if count < 0 && task != nil {
		count = task.EntriesTotal
	}
	if count >= 0 {
		parts = append(parts, fmt.Sprintf("条目 %d", count))
	}
	if task != nil {
		parts = append(parts,
			fmt.Sprintf("文档 %d", task.DocumentsTotal),
			fmt.Sprintf("已下载 %d", task.DownloadedTotal),
			fmt.Sprintf("待下载 %d", task.PendingTotal),
		)
		if task.StateLastUpdated != nil && !task.StateLastUpdated.IsZero() {
			parts = append(parts, "更新 "+FormatTimestamp(task.StateLastUpdated))
		}
	}
	if len(parts) == 0 {
		return Placeholder
	}
	return strings.Join(parts, " · ")
}
