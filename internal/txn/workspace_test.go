package txn_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"gchl.dev/gchl/internal/txn"
)

func TestWorkspaceGuard(t *testing.T) {
	ctx := context.Background()

	t.Run("stashes and restores a dirty worktree", func(t *testing.T) {
		refs := newFakeRefs()
		refs.branches["main"] = hash("a1")
		worktree := &fakeWorktree{refs: refs, dirty: true}
		guard := txn.NewWorkspaceGuard(refs, worktree)

		require.NoError(t, guard.Acquire(ctx))
		require.Equal(t, 1, worktree.stashes)
		require.NoError(t, refs.SetHead(ctx, txn.HeadState{Commit: hash("b2")}))

		require.NoError(t, guard.Release(ctx))
		require.Equal(t, []string{"stash push", "checkout attached to main", "stash pop"}, worktree.ops)
		require.Equal(t, 0, worktree.stashes)
		require.Equal(t, "main", refs.head.Branch)

		require.NoError(t, guard.Release(ctx))
		require.Len(t, worktree.ops, 3)
	})

	t.Run("clean worktree is not stashed", func(t *testing.T) {
		refs := newFakeRefs()
		refs.head = txn.HeadState{Commit: hash("a1")}
		worktree := &fakeWorktree{refs: refs}
		guard := txn.NewWorkspaceGuard(refs, worktree)

		require.NoError(t, guard.Acquire(ctx))
		require.NoError(t, guard.Release(ctx))
		require.Equal(t, []string{"checkout detached at " + hash("a1").String()}, worktree.ops)
	})

	t.Run("pops the stash even when checkout fails", func(t *testing.T) {
		refs := newFakeRefs()
		refs.branches["main"] = hash("a1")
		checkoutErr := errors.New("conflict")
		worktree := &fakeWorktree{refs: refs, dirty: true, fail: func(op string) error {
			if op == "checkout attached to main" {
				return checkoutErr
			}
			return nil
		}}
		guard := txn.NewWorkspaceGuard(refs, worktree)

		require.NoError(t, guard.Acquire(ctx))
		require.ErrorIs(t, guard.Release(ctx), checkoutErr)
		require.Equal(t, 0, worktree.stashes)
	})
}
