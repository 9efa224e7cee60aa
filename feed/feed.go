// Package feed defines the feed entity shared by every loader and store, and
// the Loader capability both the remote source and the local cache implement.
package feed

import (
	"context"

	"github.com/google/uuid"
)

// Record is one feed entry. It is an immutable value compared with ==.
// Empty Description or Location means the field is absent.
type Record struct {
	ID          uuid.UUID `json:"id" cbor:"id" msgpack:"id"`
	Description string    `json:"description,omitempty" cbor:"description,omitempty" msgpack:"description,omitempty"`
	Location    string    `json:"location,omitempty" cbor:"location,omitempty" msgpack:"location,omitempty"`
	ImageURL    string    `json:"url" cbor:"url" msgpack:"url"`
}

// Loader delivers a feed asynchronously. done is invoked at most once per
// call, possibly on another goroutine. A successful load with nothing to show
// delivers an empty, non-nil slice.
type Loader interface {
	Load(ctx context.Context, done func([]Record, error))
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, done func([]Record, error))

func (f LoaderFunc) Load(ctx context.Context, done func([]Record, error)) { f(ctx, done) }

// Equal reports whether a and b hold the same records in the same order.
func Equal(a, b []Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
