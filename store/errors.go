package store

import (
	"errors"
	"fmt"
)

var (
	ErrRetrieval = errors.New("feedcache: cache retrieval failed")
	ErrInsertion = errors.New("feedcache: cache insertion failed")
	ErrDeletion  = errors.New("feedcache: cache deletion failed")
)

// Op names a store operation.
type Op string

const (
	OpRetrieve Op = "retrieve"
	OpInsert   Op = "insert"
	OpDelete   Op = "delete"
)

// Error is returned by backends. It matches both the sentinel of its Op and
// the underlying cause with errors.Is / errors.As.
type Error struct {
	Op      Op
	Backend string
	Err     error
}

// Fail builds an *Error for op. A nil err yields nil.
func Fail(op Op, backend string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Backend: backend, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: unknown error", e.Backend, e.Op)
	}
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *Error) sentinel() error {
	switch e.Op {
	case OpRetrieve:
		return ErrRetrieval
	case OpInsert:
		return ErrInsertion
	case OpDelete:
		return ErrDeletion
	default:
		return nil
	}
}
