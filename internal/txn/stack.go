package txn

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
)

// Scope is a paired acquire/release of one side effect.
//
// Release must cope with a partially completed Acquire and must be safe to
// call more than once.
type Scope interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// ReleaseFunc undoes one side effect
type ReleaseFunc func(ctx context.Context) error

type stackEntry struct {
	name    string
	release ReleaseFunc
}

// Stack holds release steps and runs them last-in first-out
type Stack struct {
	entries []stackEntry
}

// NewStack creates an empty Stack
func NewStack() *Stack {
	return &Stack{}
}

// Defer pushes a release step
func (s *Stack) Defer(name string, release ReleaseFunc) {
	s.entries = append(s.entries, stackEntry{name: name, release: release})
}

// Enter acquires a scope and pushes its release. The release is pushed even
// when Acquire fails so that whatever was already done gets undone.
func (s *Stack) Enter(ctx context.Context, name string, scope Scope) error {
	s.Defer(name, scope.Release)
	if err := scope.Acquire(ctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Len returns the number of pending release steps
func (s *Stack) Len() int {
	return len(s.entries)
}

// Unwind runs every pending release step in reverse order. Each step runs
// regardless of earlier failures or panics; failures are logged and returned
// joined together.
func (s *Stack) Unwind(ctx context.Context) error {
	var errs []error
	for len(s.entries) > 0 {
		entry := s.entries[len(s.entries)-1]
		s.entries = s.entries[:len(s.entries)-1]

		if err := runRelease(ctx, entry); err != nil {
			clog.FromContext(ctx).Warnf("Failed to release %s: %v", entry.name, err)
			errs = append(errs, fmt.Errorf("release %s: %w", entry.name, err))
		}
	}
	return errors.Join(errs...)
}

func runRelease(ctx context.Context, entry stackEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return entry.release(ctx)
}

// Run executes fn with a fresh Stack and unwinds it afterwards, including when
// fn panics. Unwinding ignores cancellation of ctx so that an interrupted
// operation still restores the repository. The error from fn comes first in
// the returned error; release failures are joined after it.
func Run(ctx context.Context, fn func(ctx context.Context, s *Stack) error) (err error) {
	s := NewStack()
	defer func() {
		r := recover()
		unwindErr := s.Unwind(context.WithoutCancel(ctx))
		if r != nil {
			panic(r)
		}
		if unwindErr != nil {
			err = errors.Join(err, unwindErr)
		}
	}()
	return fn(ctx, s)
}
