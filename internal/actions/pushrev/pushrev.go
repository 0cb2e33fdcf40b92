// Package pushrev pushes a revision to a remote under a new branch or tag,
// optionally signing the revision and the tag on the way.
package pushrev

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing"

	"gchl.dev/gchl/internal/actions"
	"gchl.dev/gchl/internal/config"
	"gchl.dev/gchl/internal/git"
	"gchl.dev/gchl/internal/runtime"
	"gchl.dev/gchl/internal/txn"
)

const (
	// CommitterName is the identity used for commits and tags made here
	CommitterName  = "g-push-rev"
	CommitterEmail = "g-push-rev@git-ci-hub-lab"
	// DefaultSignedMessage is the message of signed tags without one
	DefaultSignedMessage = "signed"
)

// Options contains options for pushing a revision
type Options struct {
	LocalPath   string
	Credentials actions.Credentials
	RevID       string

	RevSigningFormat txn.SigningFormat
	RevSigningKey    []byte

	RefType          txn.RefType
	RefName          string
	RefMessage       string
	RefSigningFormat txn.SigningFormat
	RefSigningKey    []byte

	ForcePush bool
	// SafePath marks LocalPath as a safe directory in the global configuration
	SafePath bool
	// KeyDir receives signing keys while they are in use, os.TempDir() when empty
	KeyDir string
}

func (o Options) tagged() bool {
	return o.RefType == txn.RefTag
}

func (o Options) signRev() bool {
	return o.RevSigningFormat != "" && o.RevSigningFormat != txn.SigningNone
}

func (o Options) signRef() bool {
	return o.tagged() && o.RefSigningFormat != "" && o.RefSigningFormat != txn.SigningNone
}

// needsIdentity reports whether git will create an object that records a
// committer or tagger
func (o Options) needsIdentity() bool {
	return o.signRev() || (o.tagged() && (o.RefMessage != "" || o.signRef()))
}

// Action pushes the revision and writes ref-name and ref-commit step outputs
func Action(ctx *runtime.Context, opts Options) error {
	splog := ctx.Splog

	if !opts.RefType.Valid() {
		_, err := actions.QualifiedRef(opts.RefType, opts.RefName)
		return err
	}
	if opts.LocalPath == "" {
		opts.LocalPath = "."
	}
	if opts.RevID == "" {
		opts.RevID = "HEAD"
	}
	if !opts.tagged() && (opts.RefMessage != "" || opts.RefSigningFormat != "" && opts.RefSigningFormat != txn.SigningNone) {
		splog.Warn("Branches carry no message or signature, ignoring the reference message and signing options")
	}

	repo, err := git.OpenOrInit(ctx.Context, opts.LocalPath)
	if err != nil {
		return err
	}

	channel, err := opts.Credentials.Channel()
	if err != nil {
		return err
	}
	override := opts.Credentials.Override(channel)
	if opts.needsIdentity() {
		override.
			Set(txn.ScopeRepository, "user", "name", CommitterName).
			Set(txn.ScopeRepository, "user", "email", CommitterEmail)
	}
	if opts.SafePath {
		abs, err := filepath.Abs(opts.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", opts.LocalPath, err)
		}
		override.Set(txn.ScopeGlobal, "safe", "directory", abs)
	}
	actions.WarnMissingPassword(ctx, opts.Credentials)

	keyDir := opts.KeyDir
	if keyDir == "" {
		keyDir = os.TempDir()
	}
	keyFS := osfs.New(keyDir)

	var pushed *txn.RefTransaction
	err = txn.Run(ctx.Context, func(c context.Context, s *txn.Stack) error {
		if err := s.Enter(c, "configuration", txn.NewConfigTransaction(repo, override)); err != nil {
			return err
		}

		commit, err := repo.ResolveRevision(c, opts.RevID)
		if err != nil {
			return err
		}
		splog.Debug("Resolved %s to %s", opts.RevID, commit)

		refName := opts.RefName
		if refName == "" {
			refName = actions.DefaultRefName(opts.RefType, commit)
		}

		if err := s.Enter(c, "workspace", txn.NewWorkspaceGuard(repo, repo)); err != nil {
			return err
		}
		if opts.signRev() {
			material := txn.SigningMaterial{Format: opts.RevSigningFormat, Key: opts.RevSigningKey}
			commit, err = signRevision(c, repo, txn.NewSigningScope(repo, keyFS, material), commit)
			if err != nil {
				return err
			}
			splog.Info("Signed revision %s as %s", opts.RevID, actions.ShortSHA(commit))
		}

		var createOpts txn.CreateRefOptions
		if opts.tagged() {
			createOpts.Message = opts.RefMessage
			createOpts.Sign = opts.signRef()
			if createOpts.Sign && createOpts.Message == "" {
				createOpts.Message = DefaultSignedMessage
			}
		}
		refTx := txn.NewRefTransaction(repo, opts.RefType, refName, commit, createOpts)
		if createOpts.Sign {
			material := txn.SigningMaterial{Format: opts.RefSigningFormat, Key: opts.RefSigningKey, Message: createOpts.Message}
			refTx.WithSigning(txn.NewSigningScope(repo, keyFS, material))
		}
		if err := s.Enter(c, "reference", refTx); err != nil {
			return err
		}

		remote := txn.NewEphemeralRemote(repo, opts.Credentials.RemoteURL)
		if err := s.Enter(c, "remote", remote); err != nil {
			return err
		}
		if err := s.Enter(c, "credentials", channel); err != nil {
			return err
		}

		qualified, err := actions.QualifiedRef(opts.RefType, refName)
		if err != nil {
			return err
		}
		if _, err := remote.Push(c, opts.ForcePush, qualified+":"+qualified); err != nil {
			return err
		}
		pushed = refTx
		return nil
	})
	if err != nil {
		return err
	}

	splog.Info("Pushed %s %s at %s", opts.RefType, pushed.Name(), actions.ShortSHA(pushed.Target()))
	return ctx.Outputs.Write(
		config.Output{Name: "ref-name", Value: pushed.Name()},
		config.Output{Name: "ref-commit", Value: pushed.Target().String()},
	)
}

// signRevision detaches HEAD at commit and amends it with a signature. The
// caller restores HEAD through a WorkspaceGuard.
func signRevision(ctx context.Context, repo *git.Repository, signing *txn.SigningScope, commit plumbing.Hash) (plumbing.Hash, error) {
	signed := commit
	err := txn.Run(ctx, func(c context.Context, s *txn.Stack) error {
		if err := s.Enter(c, "revision signing", signing); err != nil {
			return err
		}
		if err := repo.Checkout(c, txn.HeadState{Commit: commit}); err != nil {
			return err
		}
		head, err := repo.AmendSigned(c)
		if err != nil {
			return err
		}
		signed = head.Commit
		return nil
	})
	return signed, err
}
