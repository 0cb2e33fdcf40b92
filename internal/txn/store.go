package txn

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"

	gchlerrors "gchl.dev/gchl/internal/errors"
)

// ConfigScope is a configuration precedence level
type ConfigScope string

const (
	// ScopeRepository is the repository-local configuration (.git/config)
	ScopeRepository ConfigScope = "repository"
	// ScopeGlobal is the user configuration (~/.gitconfig)
	ScopeGlobal ConfigScope = "global"
)

// ConfigReader reads configuration state.
//
// Sections use git header syntax: "user" or `credential "https://host"`.
type ConfigReader interface {
	// HasSection reports whether the section exists in the scope
	HasSection(scope ConfigScope, section string) (bool, error)
	// GetAll returns every value of an option in file order and whether it exists
	GetAll(scope ConfigScope, section, option string) ([]string, bool, error)
}

// ConfigStore reads and writes configuration state
type ConfigStore interface {
	ConfigReader
	// Set replaces all values of an option, creating the section if needed
	Set(scope ConfigScope, section, option string, values ...string) error
	// Add appends one value to an option
	Add(scope ConfigScope, section, option, value string) error
	// Unset removes every value of an option
	Unset(scope ConfigScope, section, option string) error
	// RemoveSection removes a section with all its options
	RemoveSection(scope ConfigScope, section string) error
}

// RefType is the namespace of a reference
type RefType string

const (
	// RefBranch is a reference under refs/heads
	RefBranch RefType = "branch"
	// RefTag is a reference under refs/tags
	RefTag RefType = "tag"
)

// Valid reports whether the type is a known namespace
func (t RefType) Valid() bool {
	return t == RefBranch || t == RefTag
}

// Ref is a named reference and its raw target: the commit for branches and
// lightweight tags, the tag object for annotated tags.
type Ref struct {
	Type   RefType
	Name   string
	Target plumbing.Hash
}

// CreateRefOptions configures reference creation
type CreateRefOptions struct {
	// Message annotates a tag; ignored for branches
	Message string
	// Sign creates a signed tag with the signing configuration in effect
	Sign bool
	// Force overwrites an existing reference of the same name
	Force bool
}

// HeadState is where HEAD points: attached to a branch or detached at a commit.
// Commit is the commit HEAD resolved to when captured; it is zero on an unborn branch.
type HeadState struct {
	Branch string
	Commit plumbing.Hash
}

// Detached reports whether HEAD points directly at a commit
func (h HeadState) Detached() bool {
	return h.Branch == ""
}

func (h HeadState) String() string {
	if h.Detached() {
		return "detached at " + h.Commit.String()
	}
	return "attached to " + h.Branch
}

// RefStore manages references and HEAD
type RefStore interface {
	// ListRefs lists references in one namespace
	ListRefs(ctx context.Context, refType RefType) ([]Ref, error)
	// CreateRef points a reference at target
	CreateRef(ctx context.Context, refType RefType, name string, target plumbing.Hash, opts CreateRefOptions) error
	// DeleteRef deletes a reference
	DeleteRef(ctx context.Context, refType RefType, name string) error
	// Head returns the current HEAD state
	Head(ctx context.Context) (HeadState, error)
	// SetHead repoints HEAD without touching the index or worktree
	SetHead(ctx context.Context, head HeadState) error
}

// PushResult is the outcome of pushing a single refspec
type PushResult = gchlerrors.PushRefResult

// RemoteStore manages remotes
type RemoteStore interface {
	CreateRemote(ctx context.Context, name, url string) error
	DeleteRemote(ctx context.Context, name string) error
	HasRemote(ctx context.Context, name string) (bool, error)
	// Push pushes refspecs to a named remote and reports per-ref results.
	// A rejected ref yields a *errors.PushError alongside the results.
	Push(ctx context.Context, remote string, force bool, refspecs ...string) ([]PushResult, error)
}

// WorktreeStore manages the working tree around commit rewriting
type WorktreeStore interface {
	IsDirty(ctx context.Context) (bool, error)
	StashPush(ctx context.Context) error
	StashPop(ctx context.Context) error
	// Checkout moves HEAD, index and worktree to the given state
	Checkout(ctx context.Context, head HeadState) error
}
