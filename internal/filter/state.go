// Package filter turns cached entries and a filter state snapshot into the
// list the entry viewer displays.
package filter

import (
	"strings"
	"unicode"
)

const (
	defaultLimit    = 50
	defaultMaxLimit = 500
)

// State is an immutable filter snapshot. Every With* method returns a new
// State and leaves the receiver untouched.
type State struct {
	selected     []string
	categoryOnly bool
	query        string
	tokens       []string
	limit        int
	maxLimit     int
	defaultLimit int
}

// NewState returns an empty state. Non-positive arguments use the defaults
// (50 of at most 500); def is clamped to max.
func NewState(maxLimit, def int) State {
	if maxLimit <= 0 {
		maxLimit = defaultMaxLimit
	}
	if def <= 0 {
		def = defaultLimit
	}
	if def > maxLimit {
		def = maxLimit
	}
	return State{limit: def, maxLimit: maxLimit, defaultLimit: def}
}

// Selected returns the selected sources in selection order.
func (s State) Selected() []string { return append([]string(nil), s.selected...) }

func (s State) IsSelected(source string) bool {
	for _, v := range s.selected {
		if v == source {
			return true
		}
	}
	return false
}

func (s State) CategoryOnly() bool { return s.categoryOnly }
func (s State) Query() string      { return s.query }
func (s State) Tokens() []string   { return append([]string(nil), s.tokens...) }
func (s State) Limit() int         { return s.limit }
func (s State) MaxLimit() int      { return s.maxLimit }

// Searching reports whether a keyword filter is active.
func (s State) Searching() bool { return len(s.tokens) > 0 }

// WithSources replaces the selection. Blank and repeated sources are dropped.
func (s State) WithSources(sources ...string) State {
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" || contains(out, src) {
			continue
		}
		out = append(out, src)
	}
	s.selected = out
	return s
}

// ToggleSource selects source if it is not selected and deselects it
// otherwise.
func (s State) ToggleSource(source string) State {
	source = strings.TrimSpace(source)
	if source == "" {
		return s
	}
	out := make([]string, 0, len(s.selected)+1)
	found := false
	for _, v := range s.selected {
		if v == source {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, source)
	}
	s.selected = out
	return s
}

func (s State) WithCategoryOnly(on bool) State {
	s.categoryOnly = on
	return s
}

// WithQuery stores the free-text query and its tokens.
func (s State) WithQuery(text string) State {
	s.query = text
	s.tokens = Tokenize(text)
	return s
}

// WithLimit sets the result limit, clamped to [1, max]. A non-positive n
// restores the default.
func (s State) WithLimit(n int) State {
	switch {
	case n <= 0:
		n = s.defaultLimit
	case s.maxLimit > 0 && n > s.maxLimit:
		n = s.maxLimit
	}
	s.limit = n
	return s
}

// Tokenize lowercases text and splits it on whitespace and punctuation.
// Repeated tokens are kept once.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
