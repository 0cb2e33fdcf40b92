package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"gchl.dev/gchl/internal/txn"
)

// Repository is a git repository accessed through go-git and, where go-git
// falls short (pushing with credential helpers, signing, stashing), the git
// binary. It implements the txn store contracts.
type Repository struct {
	repo   *gogit.Repository
	runner *CommandRunner
	path   string
	gitDir string
}

var (
	_ txn.ConfigStore   = (*Repository)(nil)
	_ txn.RefStore      = (*Repository)(nil)
	_ txn.RemoteStore   = (*Repository)(nil)
	_ txn.WorktreeStore = (*Repository)(nil)
)

// OpenRepository opens the git repository containing path
func OpenRepository(path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return newRepository(repo, absPath)
}

// OpenOrInit opens the repository at path, initialising one first when path
// is not inside a repository. Like git init it leaves an existing repository untouched.
func OpenOrInit(ctx context.Context, path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(absPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		clog.FromContext(ctx).Infof("Initialising repository in %s", absPath)
		repo, err = gogit.PlainInit(absPath, false)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return newRepository(repo, absPath)
}

func newRepository(repo *gogit.Repository, path string) (*Repository, error) {
	root := path
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	gitDir := filepath.Join(root, gogit.GitDirName)
	if fs, ok := repo.Storer.(*filesystem.Storage); ok {
		gitDir = fs.Filesystem().Root()
	}

	return &Repository{
		repo:   repo,
		runner: NewCommandRunner(root),
		path:   root,
		gitDir: gitDir,
	}, nil
}

// Path returns the root directory of the working tree
func (r *Repository) Path() string {
	return r.path
}

// GitDir returns the repository's git directory
func (r *Repository) GitDir() string {
	return r.gitDir
}

// Runner returns the git command runner bound to the working tree
func (r *Repository) Runner() *CommandRunner {
	return r.runner
}

// ResolveRevision resolves a revision expression to a commit
func (r *Repository) ResolveRevision(_ context.Context, rev string) (plumbing.Hash, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("revision %q is not a commit: %w", rev, err)
	}
	return commit.Hash, nil
}
