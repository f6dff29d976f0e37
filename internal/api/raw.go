package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RawRequest is an arbitrary request built by the API explorer. URL is
// complete (base already applied).
type RawRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// RawResponse is returned for any status; only transport failures are errors.
type RawResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

func (r *RawResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Do sends req as-is and returns whatever the server answered.
func (c *Client) Do(ctx context.Context, req RawRequest) (*RawResponse, error) {
	if c.static {
		return nil, ErrStaticSnapshot
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, &ValidationError{Field: "url", Message: err.Error()}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("explorer request failed", zap.String("method", method), zap.String("url", req.URL), zap.Error(err))
		return nil, &NetworkError{Method: method, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: req.URL, Err: err}
	}
	elapsed := time.Since(start)
	c.logger.Debug("explorer response",
		zap.String("method", method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)

	return &RawResponse{
		StatusCode: resp.StatusCode,
		Status:     statusLine(resp.StatusCode, resp.Status),
		Header:     resp.Header,
		Body:       data,
		Elapsed:    elapsed,
	}, nil
}
