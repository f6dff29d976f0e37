package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
)

const defaultMaxTopK = 50

// WithSearch configures remote search. A disabled search fails every Search
// call locally with a *SearchDisabledError carrying reason.
func WithSearch(enabled bool, reason string, maxTopK int) Option {
	return func(c *Client) {
		c.searchOff = !enabled
		c.searchReason = reason
		if maxTopK > 0 {
			c.searchMax = maxTopK
		}
	}
}

// ClampTopK bounds n to [1, max].
func ClampTopK(n, max int) int {
	if max <= 0 {
		max = defaultMaxTopK
	}
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

// ParseTopK reads a user-typed topk. Empty input yields def; anything that is
// not a number is a *ValidationError.
func ParseTopK(input string, def, max int) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return ClampTopK(def, max), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ValidationError{Field: "topk", Message: "must be a number, got " + strconv.Quote(s)}
	}
	// int(f) is undefined outside the int range
	if f < 1 {
		return 1, nil
	}
	if limit := ClampTopK(math.MaxInt, max); f >= float64(limit) {
		return limit, nil
	}
	return ClampTopK(int(f), max), nil
}

// Search runs a ranked keyword search on the backend. Results keep the
// backend's order.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if c.static {
		return nil, &SearchDisabledError{Reason: "Search is unavailable in static snapshots."}
	}
	if c.searchOff {
		return nil, &SearchDisabledError{Reason: c.searchReason}
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, &ValidationError{Field: "query", Message: "enter a keyword to search"}
	}
	req.TopK = ClampTopK(req.TopK, c.searchMax)

	data, err := c.FetchJSON(ctx, http.MethodPost, c.searchPath, req)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ParseError{What: "decoding search response", Err: err}
	}
	if resp.ResultCount == 0 {
		resp.ResultCount = len(resp.Results)
	}
	return &resp, nil
}
