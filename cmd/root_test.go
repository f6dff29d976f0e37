package cmd

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelala00/pbcdash/internal/apitest"
)

// resetFlags restores every flag to its default so commands can run more
// than once per process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, b *apitest.Backend, extraConfig string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("PBCDASH_API_BASE", "")
	path := writeConfig(t, "api_base: "+b.URL()+"\nlog_level: error\ntimeout: 5s\n"+extraConfig)

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--config", path}, args...))
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func newBackend(t *testing.T) *apitest.Backend {
	b := apitest.New(t)
	b.SetTasks(apitest.Reply{JSON: []map[string]any{
		{"slug": "task-a", "name": "条法司", "entries_total": 2, "documents_total": 3, "status": "ok", "status_reason": "up to date"},
		{"slug": "task-b", "name": "支付结算司", "entries_total": 0},
	}})
	b.SetEntries("task-a", apitest.Reply{JSON: apitest.Entries(
		map[string]any{"slug": "task-a", "name": "条法司", "entries_total": 2},
		map[string]any{"serial": 1, "title": "关于废止部分规章的决定", "documents": []map[string]any{
			{"title": "正文", "url": "/files/1.pdf", "type": "pdf", "downloaded": true},
		}},
		map[string]any{"serial": 2, "title": "反洗钱管理办法", "remark": "现行有效"},
	)})
	return b
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "pbcdash 1.2.3 (commit: abc123, built: 2026-01-01)\n", out.String())
}

func TestTasksCommand(t *testing.T) {
	b := newBackend(t)
	out, _, err := execute(t, b, "", "tasks")
	require.NoError(t, err)

	assert.Contains(t, out, "Tasks 2 · Entries 2 · Documents 3")
	assert.Contains(t, out, "条法司 (task-a)")
	assert.Contains(t, out, "ok · up to date")
	assert.Contains(t, out, "支付结算司 (task-b)")
}

func TestTasksWatchNeedsInterval(t *testing.T) {
	b := newBackend(t)
	_, _, err := execute(t, b, "auto_refresh: 0\n", "tasks", "--watch")
	require.Error(t, err)
	assert.Equal(t, 0, b.Calls("/api/tasks"))
}

func TestEntriesCommand(t *testing.T) {
	b := newBackend(t)
	out, _, err := execute(t, b, "", "entries", "--slug", "task-a")
	require.NoError(t, err)

	assert.Contains(t, out, "任务标识 task-a · 条目数 2")
	assert.Contains(t, out, "Showing all 2 entries")
	assert.Contains(t, out, "#1    关于废止部分规章的决定 [废止]")
	assert.Contains(t, out, "      - 正文 (pdf) · 已下载 · /files/1.pdf")
	assert.Contains(t, out, "      现行有效")
}

func TestEntriesFilters(t *testing.T) {
	b := newBackend(t)
	out, _, err := execute(t, b, "", "entries", "-s", "task-a", "--abolish")
	require.NoError(t, err)
	assert.Contains(t, out, "Showing 1 of 2 entries · 废止")
	assert.NotContains(t, out, "反洗钱")

	out, _, err = execute(t, b, "", "entries", "-s", "task-a", "--query", "管理 有效")
	require.NoError(t, err)
	assert.Contains(t, out, `Showing 1 of 2 entries for "管理 有效"`)
	assert.Contains(t, out, "反洗钱管理办法")
	assert.NotContains(t, out, "关于废止")

	out, _, err = execute(t, b, "", "entries", "-s", "task-a", "--query", "task-a", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `Showing 1 of 2 matches (2 entries) for "task-a"`)
	assert.Contains(t, out, "… 1 more, raise --limit to see them")

	// Each run starts with an empty cache.
	assert.Equal(t, 3, b.Calls("/api/tasks/task-a/entries"))
}

func TestEntriesPartialFailure(t *testing.T) {
	b := newBackend(t)
	b.SetEntries("task-b", apitest.Reply{Status: http.StatusInternalServerError, JSON: map[string]any{"error": "db down"}})

	out, errOut, err := execute(t, b, "", "entries")
	require.NoError(t, err)
	assert.Contains(t, out, "Showing all 2 entries")
	assert.Contains(t, out, "· 条法司")
	assert.Contains(t, errOut, "warning: task-b: db down")
}

func TestEntriesAllFailed(t *testing.T) {
	b := newBackend(t)
	_, errOut, err := execute(t, b, "", "entries", "--slug", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no task could be loaded")
	assert.Contains(t, errOut, "warning: missing: not_found")
}

func TestSearchCommand(t *testing.T) {
	b := newBackend(t)
	b.SetSearch(apitest.Reply{JSON: map[string]any{
		"query": "反洗钱", "topk": 3, "result_count": 1,
		"results": []map[string]any{{
			"title": "反洗钱管理办法", "score": 0.875, "doc_no": "银发〔2024〕1号",
			"documents": []map[string]any{{"title": "全文", "url": "https://example.com/1.html"}},
		}},
	}})

	out, _, err := execute(t, b, "", "search", "反洗钱", "--topk", "3", "--no-documents")
	require.NoError(t, err)
	assert.Contains(t, out, `1 results for "反洗钱" (topk 3)`)
	assert.Contains(t, out, " 1. [0.875] 反洗钱管理办法")
	assert.Contains(t, out, "    银发〔2024〕1号")
	assert.Contains(t, out, "    - 全文 https://example.com/1.html")

	bodies := b.SearchBodies()
	require.Len(t, bodies, 1)
	assert.EqualValues(t, 3, bodies[0]["topk"])
	assert.Equal(t, false, bodies[0]["include_documents"])
}

func TestSearchCommandErrors(t *testing.T) {
	b := newBackend(t)

	_, _, err := execute(t, b, "", "search", "x", "--topk", "many")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --topk value")

	_, _, err = execute(t, b, "search:\n  enabled: false\n  reason: 索引构建中\n", "search", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "索引构建中")
	assert.Empty(t, b.SearchBodies())
}

func TestExploreList(t *testing.T) {
	b := newBackend(t)
	extra := "explorer:\n  endpoints:\n    - id: health\n      name: Health\n      path: /health\n"
	out, _, err := execute(t, b, extra, "explore", "list")
	require.NoError(t, err)
	for _, want := range []string{"tasks", "task-entries", "search", "health", "/api/search"} {
		assert.Contains(t, out, want)
	}
}

func TestExploreSend(t *testing.T) {
	b := newBackend(t)

	out, _, err := execute(t, b, "", "explore", "send", "tasks", "-H", `{"X-Debug": 1}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Success · 200 OK\n"), out)
	assert.Contains(t, out, `"slug": "task-a"`)
	headers := b.Headers()
	assert.Equal(t, "1", headers[len(headers)-1].Get("X-Debug"))

	out, _, err = execute(t, b, "", "explore", "send", "/nope")
	require.Error(t, err)
	assert.Contains(t, out, "Error · 404 Not Found")

	_, _, err = execute(t, b, "", "explore", "send", "tasks", "-H", "{bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to parse custom headers")
}
