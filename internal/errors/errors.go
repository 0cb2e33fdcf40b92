// Package errors provides sentinel errors and custom error types for gchl.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrInvariant indicates that a component received input it assumed was
	// validated upstream. It always points at a caller bug.
	ErrInvariant = errors.New("internal invariant violated")

	// ErrCollision indicates that backing up, deleting or restoring a colliding
	// reference failed
	ErrCollision = errors.New("reference collision resolution failed")

	// ErrSigning indicates bad signing key material or an unsupported format
	ErrSigning = errors.New("signing failed")

	// ErrPush indicates that the remote rejected one or more references
	ErrPush = errors.New("push failed")

	// ErrRefNotFound indicates that a reference does not exist
	ErrRefNotFound = errors.New("reference not found")

	// ErrConfigLocked indicates that a git configuration file is locked by another process
	ErrConfigLocked = errors.New("configuration file is locked")

	// ErrJobNotFound indicates that a pipeline finished without the requested job
	ErrJobNotFound = errors.New("job not found")

	// ErrAmbiguousJob indicates that more than one job in a pipeline has the requested name
	ErrAmbiguousJob = errors.New("ambiguous job name")

	// ErrUnexpectedSHA indicates that a pipeline was created for another commit than expected
	ErrUnexpectedSHA = errors.New("unexpected pipeline commit")
)

// InvariantError represents an unexpected value reaching a component that
// assumed validated input
type InvariantError struct {
	What  string
	Value string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("unexpected %s %q", e.What, e.Value)
}

// Is returns true if the target error is ErrInvariant
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// NewInvariantError creates a new InvariantError
func NewInvariantError(what, value string) *InvariantError {
	return &InvariantError{What: what, Value: value}
}

// CollisionError represents a failure while moving a colliding reference out
// of the way or back into place. Backup names the temporary tag that still
// holds the original target, if any, so a human can finish the restore.
type CollisionError struct {
	Op     string
	Ref    string
	Backup string
	Err    error
}

func (e *CollisionError) Error() string {
	msg := fmt.Sprintf("failed to %s %s", e.Op, e.Ref)
	if e.Backup != "" {
		msg += fmt.Sprintf(" (original target kept in tag %s)", e.Backup)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *CollisionError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrCollision
func (e *CollisionError) Is(target error) bool {
	return target == ErrCollision
}

// NewCollisionError creates a new CollisionError
func NewCollisionError(op, ref, backup string, err error) *CollisionError {
	return &CollisionError{Op: op, Ref: ref, Backup: backup, Err: err}
}

// SigningError represents bad key material or an unsupported signing format
type SigningError struct {
	Format string
	Err    error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing with format %q: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("signing with format %q failed", e.Format)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrSigning
func (e *SigningError) Is(target error) bool {
	return target == ErrSigning
}

// NewSigningError creates a new SigningError
func NewSigningError(format string, err error) *SigningError {
	return &SigningError{Format: format, Err: err}
}

// PushRefResult is the outcome of pushing a single refspec
type PushRefResult struct {
	Flag    byte
	From    string
	To      string
	Summary string
}

// OK reports whether the remote accepted the reference update
func (r PushRefResult) OK() bool {
	return r.Flag != '!'
}

// PushError represents a push in which the remote rejected references
type PushError struct {
	Remote   string
	Rejected []PushRefResult
	Err      error
}

func (e *PushError) Error() string {
	var parts []string
	for _, r := range e.Rejected {
		parts = append(parts, fmt.Sprintf("%s %s", r.To, r.Summary))
	}
	msg := fmt.Sprintf("push to %s failed", e.Remote)
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, ", ")
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrPush
func (e *PushError) Is(target error) bool {
	return target == ErrPush
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// ExitCodeError asks main to exit with Code without printing anything else.
// Commands that report a CI status use it to mirror the status in the exit code.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitCodeError creates a new ExitCodeError
func NewExitCodeError(code int) *ExitCodeError {
	return &ExitCodeError{Code: code}
}
