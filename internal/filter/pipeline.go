package filter

import (
	"fmt"
	"strings"

	"github.com/angelala00/pbcdash/internal/cache"
)

// CacheView is the read side of the entry cache. *cache.Cache implements it.
type CacheView interface {
	Sources() []string
	Get(source string) cache.Lookup
}

// Result is one pipeline run. Each total counts entries after the named
// stage; Displayed may be shorter than TotalAfterKeyword when a limit applied.
type Result struct {
	Displayed []cache.Entry
	Sources   []string
	// Missing lists selected sources that are pending, failed or unknown.
	Missing []string

	TotalBeforeFilters int
	TotalAfterCategory int
	TotalAfterKeyword  int
	Limited            bool
}

// Run filters the cached entries of the sources chosen by state. fallback
// is used when nothing is selected and no source is known. Run does no I/O
// and never fails: sources without data are skipped.
func Run(view CacheView, state State, fallback string) Result {
	var res Result
	res.Sources = selectSources(view, state, fallback)

	var all []cache.Entry
	for _, src := range res.Sources {
		lookup := view.Get(src)
		if lookup.State != cache.Loaded {
			res.Missing = append(res.Missing, src)
			continue
		}
		all = append(all, lookup.Entries...)
	}
	res.TotalBeforeFilters = len(all)

	kept := all
	if state.categoryOnly {
		kept = make([]cache.Entry, 0, len(all))
		for _, e := range all {
			if e.Abolish {
				kept = append(kept, e)
			}
		}
	}
	res.TotalAfterCategory = len(kept)

	if len(state.tokens) > 0 {
		matched := make([]cache.Entry, 0, len(kept))
		for _, e := range kept {
			if Matches(e, state.tokens) {
				matched = append(matched, e)
			}
		}
		kept = matched
	}
	res.TotalAfterKeyword = len(kept)

	if len(state.tokens) > 0 && state.limit > 0 && len(kept) > state.limit {
		kept = kept[:state.limit]
		res.Limited = true
	}
	res.Displayed = kept
	return res
}

func selectSources(view CacheView, state State, fallback string) []string {
	if len(state.selected) > 0 {
		return state.Selected()
	}
	if known := view.Sources(); len(known) > 0 {
		return known
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return []string{fallback}
	}
	return nil
}

// Matches reports whether every token is a substring of the entry's
// searchable text. Tokens match inside words: "a" matches "cat".
func Matches(e cache.Entry, tokens []string) bool {
	hay := Haystack(e)
	for _, tok := range tokens {
		if !strings.Contains(hay, tok) {
			return false
		}
	}
	return true
}

// Haystack is the lowercase searchable text of an entry. Fields are joined
// with newlines so a token never spans two fields.
func Haystack(e cache.Entry) string {
	parts := []string{e.Title, e.Remark, e.SourceName, e.Source}
	for _, d := range e.Documents {
		parts = append(parts, d.Title, d.Type, d.URL, d.LocalPath)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

// Summary describes the counts, e.g. "Showing 5 of 10 matches (12 entries)".
func (r Result) Summary() string {
	switch {
	case r.TotalBeforeFilters == 0:
		return "No entries"
	case r.Limited:
		return fmt.Sprintf("Showing %d of %d matches (%d entries)", len(r.Displayed), r.TotalAfterKeyword, r.TotalBeforeFilters)
	case len(r.Displayed) == r.TotalBeforeFilters:
		return fmt.Sprintf("Showing all %d entries", r.TotalBeforeFilters)
	default:
		return fmt.Sprintf("Showing %d of %d entries", len(r.Displayed), r.TotalBeforeFilters)
	}
}
