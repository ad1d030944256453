// Package result defines the outcome codes shared by every engine operation.
//
// OK is represented by a nil error. The remaining codes are sentinel errors
// that callers wrap with context and test with errors.Is.
package result

import "errors"

var (
	// ErrEmpty reports a normal "nothing to return" outcome.
	ErrEmpty = errors.New("empty")
	// ErrBadArgument reports a nil or invalid handle passed by the caller.
	ErrBadArgument = errors.New("bad argument")
	// ErrMemoryException reports an exhausted fixed-capacity pool.
	ErrMemoryException = errors.New("memory exception")
	// ErrException reports a serialization or internal invariant failure.
	ErrException = errors.New("exception")
)

// Code is the enumerated form of an operation outcome.
type Code uint8

const (
	OK Code = iota
	Empty
	BadArgument
	MemoryException
	Exception
)

// Of maps an error returned by an engine operation to its Code.
// Errors that do not wrap a known sentinel map to Exception.
func Of(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, ErrEmpty):
		return Empty
	case errors.Is(err, ErrBadArgument):
		return BadArgument
	case errors.Is(err, ErrMemoryException):
		return MemoryException
	default:
		return Exception
	}
}

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case Empty:
		return "EMPTY"
	case BadArgument:
		return "BAD_ARGUMENT"
	case MemoryException:
		return "MEMORY_EXCEPTION"
	case Exception:
		return "EXCEPTION"
	default:
		return "UNKNOWN"
	}
}
