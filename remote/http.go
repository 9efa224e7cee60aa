package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBody caps how much of a response HTTPClient reads.
const DefaultMaxBody = 10 << 20

// HTTPClient adapts *http.Client to Client. Each Get runs on its own
// goroutine; timeouts come from ctx and Client.Timeout.
type HTTPClient struct {
	Client *http.Client // nil => client with a 30s timeout
	// MaxBody bytes are read at most; larger bodies fail. 0 => DefaultMaxBody.
	MaxBody int64
	// UserAgent header, if set.
	UserAgent string
}

var _ Client = HTTPClient{}

var defaultClient = &http.Client{Timeout: 30 * time.Second}

func (h HTTPClient) Get(ctx context.Context, url string, done func(Response, error)) {
	go func() {
		resp, err := h.get(ctx, url)
		done(resp, err)
	}()
}

func (h HTTPClient) get(ctx context.Context, url string) (Response, error) {
	c := h.Client
	if c == nil {
		c = defaultClient
	}
	limit := h.MaxBody
	if limit <= 0 {
		limit = DefaultMaxBody
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Accept", "application/json")
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	res, err := c.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, limit+1))
	if err != nil {
		return Response{}, err
	}
	if int64(len(body)) > limit {
		return Response{}, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return Response{StatusCode: res.StatusCode, Body: body}, nil
}
