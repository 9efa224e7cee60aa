package feedcache

import (
	"errors"
	"fmt"
)

var ErrNilStore = errors.New("feedcache: store is required")

// FallbackError is delivered by FallbackLoader when both loaders failed.
// errors.Is matches either cause.
type FallbackError struct {
	Primary  error
	Fallback error
}

func (e *FallbackError) Error() string {
	switch {
	case e.Primary != nil && e.Fallback != nil:
		return fmt.Sprintf("feed load failed: primary=%v; fallback=%v", e.Primary, e.Fallback)
	case e.Fallback != nil:
		return fmt.Sprintf("feed load failed: fallback: %v", e.Fallback)
	case e.Primary != nil:
		return fmt.Sprintf("feed load failed: primary: %v", e.Primary)
	default:
		return "feed load failed: unknown error"
	}
}

func (e *FallbackError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}
