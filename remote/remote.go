// Package remote loads the feed from an HTTP endpoint serving
//
//	{"items":[{"id":"<uuid>","description":"...","location":"...","image":"<url>"}]}
//
// Only status 200 with a body matching that shape is accepted.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/unkn0wn-root/feedcache/feed"
)

var (
	// ErrConnectivity is delivered when the endpoint could not be reached.
	ErrConnectivity = errors.New("remote feed: connectivity")
	// ErrInvalidData is delivered for a non-200 status or a malformed body.
	ErrInvalidData = errors.New("remote feed: invalid data")
)

// Response is what a Client delivers for a completed request.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client issues GET requests. done is called exactly once, on any goroutine.
type Client interface {
	Get(ctx context.Context, url string, done func(Response, error))
}

type Loader struct {
	url    string
	client Client
}

var _ feed.Loader = (*Loader)(nil)

func New(url string, client Client) *Loader {
	return &Loader{url: url, client: client}
}

// Load issues one request per call. Concurrent calls are not coalesced.
func (l *Loader) Load(ctx context.Context, done func([]feed.Record, error)) {
	l.client.Get(ctx, l.url, func(resp Response, err error) {
		if err != nil {
			done(nil, fmt.Errorf("%w: %w", ErrConnectivity, err))
			return
		}
		records, err := Map(resp.StatusCode, resp.Body)
		if err != nil {
			done(nil, err)
			return
		}
		done(records, nil)
	})
}
