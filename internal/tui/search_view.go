package tui

import (
	"fmt"

	"github.com/angelala00/pbcdash/internal/api"
)

func (a *App) searchTop() []string {
	if !a.cfg.SearchEnabled() {
		return []string{errorStyle.Render(" " + a.cfg.SearchDisabledReason())}
	}
	topk := itemTimeStyle.Render(fmt.Sprintf("  topk %d/%d", a.topK, a.cfg.MaxTopK()))
	return []string{a.searchInput.View() + topk}
}

func (a *App) searchResults() []api.SearchResult {
	if a.searchResp == nil {
		return nil
	}
	return a.searchResp.Results
}

func (a *App) searchContent(width, height int) (list, preview string) {
	results := a.searchResults()
	list = renderList(len(results), a.searchCursor, height, width, a.emptySearchText(), func(i int, selected bool) string {
		return searchItem(results[i], selected, width)
	})
	if a.searchCursor < len(results) {
		preview = a.preview.render(searchResultMarkdown(results[a.searchCursor]))
	}
	return list, preview
}

func (a *App) emptySearchText() string {
	switch {
	case !a.cfg.SearchEnabled():
		return "Search is unavailable"
	case a.searching:
		return "Searching…"
	case a.searchResp == nil:
		return "Type a query and press enter"
	default:
		return "No results"
	}
}

func (a *App) searchStatus() string {
	if a.searchResp == nil {
		return ""
	}
	return fmt.Sprintf("%d results for %q", a.searchResp.ResultCount, a.searchResp.Query)
}
