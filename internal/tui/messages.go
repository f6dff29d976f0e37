package tui

import (
	"time"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/cache"
)

type tasksLoadedMsg struct {
	tasks []api.TaskSummary
	at    time.Time
	err   error
}

type entriesLoadedMsg struct {
	result cache.Result
}

type searchDoneMsg struct {
	query string
	resp  *api.SearchResponse
	err   error
}

type refreshTickMsg struct{}

// errMsg is shown in the status bar until the next key press.
type errMsg struct {
	action string
	err    error
}
