package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5/plumbing"

	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/txn"
)

const (
	branchPrefix = "refs/heads/"
	tagPrefix    = "refs/tags/"
)

func refName(refType txn.RefType, name string) (plumbing.ReferenceName, error) {
	switch refType {
	case txn.RefBranch:
		return plumbing.NewBranchReferenceName(name), nil
	case txn.RefTag:
		return plumbing.NewTagReferenceName(name), nil
	}
	return "", gchlerrors.NewInvariantError("reference type", string(refType))
}

// ListRefs lists branches or tags with their raw targets
func (r *Repository) ListRefs(_ context.Context, refType txn.RefType) ([]txn.Ref, error) {
	var prefix string
	switch refType {
	case txn.RefBranch:
		prefix = branchPrefix
	case txn.RefTag:
		prefix = tagPrefix
	default:
		return nil, gchlerrors.NewInvariantError("reference type", string(refType))
	}

	iter, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	var refs []txn.Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name().String()
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		refs = append(refs, txn.Ref{Type: refType, Name: strings.TrimPrefix(name, prefix), Target: ref.Hash()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	return refs, nil
}

// CreateRef points a branch or tag at target. Lightweight references are
// written through go-git; annotated and signed tags go through git tag so
// that the configured signing program is used.
func (r *Repository) CreateRef(ctx context.Context, refType txn.RefType, name string, target plumbing.Hash, opts txn.CreateRefOptions) error {
	full, err := refName(refType, name)
	if err != nil {
		return err
	}
	if err := full.Validate(); err != nil {
		return fmt.Errorf("invalid %s name %q: %w", refType, name, err)
	}

	if !opts.Force {
		_, err := r.repo.Storer.Reference(full)
		switch {
		case err == nil:
			return fmt.Errorf("%s %s already exists", refType, name)
		case !errors.Is(err, plumbing.ErrReferenceNotFound):
			return fmt.Errorf("failed to look up %s: %w", full, err)
		}
	}

	if refType == txn.RefTag && (opts.Message != "" || opts.Sign) {
		return r.createAnnotatedTag(ctx, name, target, opts)
	}

	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(full, target)); err != nil {
		return fmt.Errorf("failed to create %s: %w", full, err)
	}
	return nil
}

func (r *Repository) createAnnotatedTag(ctx context.Context, name string, target plumbing.Hash, opts txn.CreateRefOptions) error {
	args := []string{"tag"}
	if opts.Sign {
		args = append(args, "-s")
	} else {
		args = append(args, "-a")
	}
	args = append(args, "-m", opts.Message)
	if opts.Force {
		args = append(args, "-f")
	}
	args = append(args, "--", name, target.String())

	if _, err := r.runner.Run(ctx, args...); err != nil {
		if opts.Sign {
			return gchlerrors.NewSigningError("tag", err)
		}
		return fmt.Errorf("failed to create tag %s: %w", name, err)
	}

	if opts.Sign {
		// git may exit zero although the signing program produced nothing
		ref, err := r.repo.Storer.Reference(plumbing.NewTagReferenceName(name))
		if err != nil {
			return fmt.Errorf("failed to read tag %s: %w", name, err)
		}
		tag, err := r.repo.TagObject(ref.Hash())
		if err != nil {
			return fmt.Errorf("failed to read tag %s: %w", name, err)
		}
		if tag.PGPSignature == "" {
			return gchlerrors.NewSigningError("tag", fmt.Errorf("tag %s was created without a signature", name))
		}
	}
	clog.FromContext(ctx).Debugf("Created annotated tag %s at %s", name, target)
	return nil
}

// DeleteRef deletes a branch or tag. The checked out branch cannot be deleted.
func (r *Repository) DeleteRef(_ context.Context, refType txn.RefType, name string) error {
	full, err := refName(refType, name)
	if err != nil {
		return err
	}
	if _, err := r.repo.Storer.Reference(full); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("%w: %s", gchlerrors.ErrRefNotFound, full)
		}
		return fmt.Errorf("failed to look up %s: %w", full, err)
	}

	if refType == txn.RefBranch {
		head, err := r.repo.Storer.Reference(plumbing.HEAD)
		if err == nil && head.Type() == plumbing.SymbolicReference && head.Target() == full {
			return fmt.Errorf("cannot delete branch %s checked out at %s", name, r.path)
		}
	}

	if err := r.repo.Storer.RemoveReference(full); err != nil {
		return fmt.Errorf("failed to delete %s: %w", full, err)
	}
	return nil
}

// Head returns where HEAD points. On an unborn branch Commit is zero.
func (r *Repository) Head(_ context.Context) (txn.HeadState, error) {
	head, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return txn.HeadState{}, fmt.Errorf("failed to read HEAD: %w", err)
	}
	if head.Type() == plumbing.HashReference {
		return txn.HeadState{Commit: head.Hash()}, nil
	}

	state := txn.HeadState{Branch: strings.TrimPrefix(head.Target().String(), branchPrefix)}
	target, err := r.repo.Storer.Reference(head.Target())
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return state, nil
	case err != nil:
		return txn.HeadState{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	state.Commit = target.Hash()
	return state, nil
}

// SetHead repoints HEAD without touching the index or working tree
func (r *Repository) SetHead(_ context.Context, head txn.HeadState) error {
	var ref *plumbing.Reference
	if head.Detached() {
		ref = plumbing.NewHashReference(plumbing.HEAD, head.Commit)
	} else {
		ref = plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(head.Branch))
	}
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to set HEAD %s: %w", head, err)
	}
	return nil
}
