package cache

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/angelala00/pbcdash/internal/api"
)

// Normalize converts raw backend entries of one source into Entries. Missing
// or non-integral serials become the 1-based position, missing documents an
// empty list.
func Normalize(source string, task *api.TaskSummary, raw []api.RawEntry) []Entry {
	name := ""
	if task != nil {
		name = strings.TrimSpace(task.Name)
	}

	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		e := Entry{
			Source:     source,
			SourceName: name,
			Serial:     parseSerial(r.Serial, i),
			Title:      r.Title.String(),
			Remark:     r.Remark.String(),
			Documents:  parseDocuments(r.Documents),
		}
		e.Abolish = matchesAbolish(e)
		entries = append(entries, e)
	}
	return entries
}

func parseSerial(raw json.RawMessage, index int) int {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return index + 1
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return index + 1
	}
	return int(f)
}

func parseDocuments(raw json.RawMessage) []Document {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []Document{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return []Document{}
	}

	docs := make([]Document, 0, len(items))
	for _, item := range items {
		var d api.RawDocument
		if b := bytes.TrimSpace(item); len(b) > 0 && b[0] == '{' {
			// a malformed field leaves the rest of the document usable
			_ = json.Unmarshal(b, &d)
		}
		docs = append(docs, Document{
			Title:      d.Title.String(),
			URL:        d.URL.String(),
			Type:       d.Type.String(),
			LocalPath:  d.LocalPath.String(),
			Downloaded: bool(d.Downloaded),
		})
	}
	return docs
}

func matchesAbolish(e Entry) bool {
	if strings.Contains(e.Title, AbolishKeyword) || strings.Contains(e.Remark, AbolishKeyword) {
		return true
	}
	for _, d := range e.Documents {
		for _, field := range []string{d.Title, d.Type, d.URL, d.LocalPath} {
			if strings.Contains(field, AbolishKeyword) {
				return true
			}
		}
	}
	return false
}
