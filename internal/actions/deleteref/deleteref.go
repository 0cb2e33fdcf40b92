// Package deleteref deletes a branch or tag from a remote with git push.
package deleteref

import (
	"context"
	"fmt"
	"os"

	"gchl.dev/gchl/internal/actions"
	"gchl.dev/gchl/internal/git"
	"gchl.dev/gchl/internal/runtime"
	"gchl.dev/gchl/internal/txn"
)

// Options contains options for deleting a remote reference
type Options struct {
	Credentials actions.Credentials
	RefType     txn.RefType
	RefName     string
	// Force turns a failed push into a warning
	Force bool
	// TempDir holds the throw-away repository, os.TempDir() when empty
	TempDir string
}

// Action pushes an empty source to the reference from a throw-away repository
func Action(ctx *runtime.Context, opts Options) error {
	splog := ctx.Splog

	qualified, err := actions.QualifiedRef(opts.RefType, opts.RefName)
	if err != nil {
		return err
	}
	if opts.RefName == "" {
		return fmt.Errorf("a reference name is required")
	}

	dir, err := os.MkdirTemp(opts.TempDir, "gchl-delete-ref-")
	if err != nil {
		return fmt.Errorf("failed to create temporary repository: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			splog.Debug("Failed to remove %s: %v", dir, err)
		}
	}()

	repo, err := git.OpenOrInit(ctx.Context, dir)
	if err != nil {
		return err
	}

	channel, err := opts.Credentials.Channel()
	if err != nil {
		return err
	}
	actions.WarnMissingPassword(ctx, opts.Credentials)

	deleted := false
	err = txn.Run(ctx.Context, func(c context.Context, s *txn.Stack) error {
		if err := s.Enter(c, "configuration", txn.NewConfigTransaction(repo, opts.Credentials.Override(channel))); err != nil {
			return err
		}
		remote := txn.NewEphemeralRemote(repo, opts.Credentials.RemoteURL)
		if err := s.Enter(c, "remote", remote); err != nil {
			return err
		}
		if err := s.Enter(c, "credentials", channel); err != nil {
			return err
		}

		if _, err := remote.Push(c, false, ":"+qualified); err != nil {
			if !opts.Force {
				return err
			}
			splog.Warn("Failed to delete %s %s: %v", opts.RefType, opts.RefName, err)
			return nil
		}
		deleted = true
		return nil
	})
	if err != nil {
		return err
	}

	if deleted {
		splog.Info("%s '%s' is successfully deleted", actions.Title(opts.RefType), opts.RefName)
	}
	return nil
}
