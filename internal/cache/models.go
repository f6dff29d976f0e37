package cache

import (
	"strings"

	"github.com/angelala00/pbcdash/internal/api"
)

// AbolishKeyword marks entries that repeal or abolish a regulation.
const AbolishKeyword = "废止"

const (
	UntitledEntry    = "未命名条目"
	UntitledDocument = "未命名文档"
)

type Document struct {
	Title      string
	URL        string
	Type       string
	LocalPath  string
	Downloaded bool
}

// DisplayTitle falls back to the URL, then to a placeholder.
func (d Document) DisplayTitle() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	if u := strings.TrimSpace(d.URL); u != "" {
		return u
	}
	return UntitledDocument
}

// Entry is a normalized catalogue entry. Source is a back-reference by slug;
// the cache owns the entry list.
type Entry struct {
	Source     string
	SourceName string
	Serial     int
	Title      string
	Remark     string
	Documents  []Document
	Abolish    bool
}

func (e Entry) DisplayTitle() string {
	if t := strings.TrimSpace(e.Title); t != "" {
		return t
	}
	return UntitledEntry
}

func (e Entry) DownloadedCount() int {
	n := 0
	for _, d := range e.Documents {
		if d.Downloaded {
			n++
		}
	}
	return n
}

// State is where a source stands in the cache.
type State int

const (
	Absent State = iota
	Pending
	Loaded
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	default:
		return "absent"
	}
}

// Lookup is the result of Cache.Get. Entries and Task are set only when
// State is Loaded. Entries must not be modified.
type Lookup struct {
	State   State
	Entries []Entry
	Task    *api.TaskSummary
}

// Failure is one source that could not be loaded. Err is the error the
// client returned, unwrapped.
type Failure struct {
	Source string
	Err    error
}
