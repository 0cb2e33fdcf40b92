package txn

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
)

// WorkspaceGuard parks local changes and HEAD while an operation moves the
// working tree, for example to amend a commit other than the checked out one
type WorkspaceGuard struct {
	refs     RefStore
	worktree WorktreeStore

	head    *HeadState
	stashed bool
}

// NewWorkspaceGuard creates a guard
func NewWorkspaceGuard(refs RefStore, worktree WorktreeStore) *WorkspaceGuard {
	return &WorkspaceGuard{refs: refs, worktree: worktree}
}

// Acquire stashes uncommitted and untracked changes and records HEAD
func (g *WorkspaceGuard) Acquire(ctx context.Context) error {
	dirty, err := g.worktree.IsDirty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check worktree status: %w", err)
	}
	if dirty {
		if err := g.worktree.StashPush(ctx); err != nil {
			return fmt.Errorf("failed to stash local changes: %w", err)
		}
		g.stashed = true
		clog.FromContext(ctx).Info("Stashed local changes")
	}

	head, err := g.refs.Head(ctx)
	if err != nil {
		return fmt.Errorf("failed to read HEAD: %w", err)
	}
	g.head = &head
	return nil
}

// Release checks out the recorded HEAD and pops the stash
func (g *WorkspaceGuard) Release(ctx context.Context) error {
	var errs []error
	if g.head != nil {
		// Unborn branches have nothing to check out
		if !g.head.Commit.IsZero() {
			if err := g.worktree.Checkout(ctx, *g.head); err != nil {
				errs = append(errs, fmt.Errorf("failed to check out %s: %w", g.head, err))
			}
		}
		g.head = nil
	}
	if g.stashed {
		if err := g.worktree.StashPop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore stashed changes: %w", err))
		} else {
			clog.FromContext(ctx).Info("Restored stashed changes")
		}
		g.stashed = false
	}
	return errors.Join(errs...)
}
