package hotfile

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates HotFile failures. OutOfFile and IOError are the ones
// a caller of Read/Sync should expect in practice.
type Kind int

const (
	_ Kind = iota
	OutOfFile
	IOError
)

// Error wraps a failure with a stack trace via pkg/errors so diagnostics
// survive propagation up through Sync/Read.
type Error struct {
	Kind  Kind
	Range string // best-effort [start,end) the failure pertains to, for logs
	cause error
}

func (e *Error) Error() string {
	if e.Range != "" {
		return fmt.Sprintf("hotfile: %s: %v", e.Range, e.cause)
	}
	return fmt.Sprintf("hotfile: %v", e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func newIOErr(rng string, cause error) *Error {
	return &Error{Kind: IOError, Range: rng, cause: errors.WithStack(cause)}
}

func newOutOfFile(rng string) *Error {
	return &Error{Kind: OutOfFile, Range: rng, cause: errors.New("read beyond logical length")}
}
