package git

import (
	"context"
	"fmt"

	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/txn"
)

// IsDirty reports uncommitted changes, untracked files included
func (r *Repository) IsDirty(ctx context.Context) (bool, error) {
	out, err := r.runner.Run(ctx, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	return out != "", nil
}

// StashPush stashes all changes, untracked and ignored files included
func (r *Repository) StashPush(ctx context.Context) error {
	if _, err := r.runner.Run(ctx, "stash", "push", "--all"); err != nil {
		return fmt.Errorf("failed to stash changes: %w", err)
	}
	return nil
}

// StashPop restores the latest stash together with its index
func (r *Repository) StashPop(ctx context.Context) error {
	if _, err := r.runner.Run(ctx, "stash", "pop", "--index"); err != nil {
		return fmt.Errorf("failed to pop stash: %w", err)
	}
	return nil
}

// Checkout moves HEAD, index and working tree to a branch or a detached commit
func (r *Repository) Checkout(ctx context.Context, head txn.HeadState) error {
	args := []string{"checkout", "--quiet"}
	if head.Detached() {
		args = append(args, "--detach", head.Commit.String())
	} else {
		args = append(args, head.Branch, "--")
	}
	if _, err := r.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to check out %s: %w", head, err)
	}
	return nil
}

// AmendSigned re-signs the HEAD commit without changing its content and
// returns the new commit
func (r *Repository) AmendSigned(ctx context.Context) (txn.HeadState, error) {
	if _, err := r.runner.Run(ctx, "commit", "--amend", "--no-edit", "--allow-empty", "--no-verify", "--gpg-sign"); err != nil {
		return txn.HeadState{}, gchlerrors.NewSigningError("commit", err)
	}
	head, err := r.Head(ctx)
	if err != nil {
		return txn.HeadState{}, err
	}

	// git may exit zero although the signing program produced nothing
	commit, err := r.repo.CommitObject(head.Commit)
	if err != nil {
		return txn.HeadState{}, fmt.Errorf("failed to read amended commit: %w", err)
	}
	if commit.PGPSignature == "" {
		return txn.HeadState{}, gchlerrors.NewSigningError("commit", fmt.Errorf("commit %s was created without a signature", head.Commit))
	}
	return head, nil
}
