package txn

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	gchlerrors "gchl.dev/gchl/internal/errors"
)

type backupState int

const (
	backupTaken backupState = iota + 1
	backupOriginalDeleted
	backupRestored
)

// refBackup holds a colliding reference in a temporary lightweight tag
type refBackup struct {
	refType RefType
	tag     string
	target  plumbing.Hash
	state   backupState
}

// RefTransaction makes a reference point at a commit for the duration of an
// operation. References of either type that already carry the name are moved
// to backup tags and put back on release, together with HEAD.
type RefTransaction struct {
	refs    RefStore
	refType RefType
	name    string
	target  plumbing.Hash
	opts    CreateRefOptions
	signing Scope

	head      *HeadState
	backups   map[RefType]*refBackup
	detached  bool
	attempted bool
	released  bool
}

// NewRefTransaction creates a transaction that will point refType/name at target
func NewRefTransaction(refs RefStore, refType RefType, name string, target plumbing.Hash, opts CreateRefOptions) *RefTransaction {
	return &RefTransaction{
		refs:    refs,
		refType: refType,
		name:    name,
		target:  target,
		opts:    opts,
		backups: make(map[RefType]*refBackup),
	}
}

// WithSigning sets a scope that is held from before the first reference
// mutation until the reference is created
func (t *RefTransaction) WithSigning(signing Scope) *RefTransaction {
	t.signing = signing
	return t
}

// Name returns the reference name
func (t *RefTransaction) Name() string {
	return t.name
}

// Type returns the reference type
func (t *RefTransaction) Type() RefType {
	return t.refType
}

// Target returns the commit the reference points at
func (t *RefTransaction) Target() plumbing.Hash {
	return t.target
}

// Backup returns the backup tag holding a colliding reference of refType, if any
func (t *RefTransaction) Backup(refType RefType) (string, bool) {
	b, ok := t.backups[refType]
	if !ok {
		return "", false
	}
	return b.tag, true
}

func (t *RefTransaction) refName(refType RefType) string {
	return fmt.Sprintf("%s %s", refType, t.name)
}

func findRef(ctx context.Context, refs RefStore, refType RefType, name string) (Ref, bool, error) {
	list, err := refs.ListRefs(ctx, refType)
	if err != nil {
		return Ref{}, false, err
	}
	for _, ref := range list {
		if ref.Name == name {
			return ref, true, nil
		}
	}
	return Ref{}, false, nil
}

// Acquire backs up colliding references, detaches HEAD when it sits on a
// colliding branch, and creates the reference. The signing scope is held
// from before the first mutation until the reference exists.
func (t *RefTransaction) Acquire(ctx context.Context) (err error) {
	if !t.refType.Valid() {
		return gchlerrors.NewInvariantError("reference type", string(t.refType))
	}

	if t.signing != nil {
		if err := t.signing.Acquire(ctx); err != nil {
			return errors.Join(err, t.signing.Release(ctx))
		}
		defer func() {
			if rerr := t.signing.Release(ctx); rerr != nil {
				err = errors.Join(err, rerr)
			}
		}()
	}

	head, err := t.refs.Head(ctx)
	if err != nil {
		return fmt.Errorf("failed to read HEAD: %w", err)
	}
	t.head = &head

	log := clog.FromContext(ctx)

	// Tags first, then branches
	for _, refType := range []RefType{RefTag, RefBranch} {
		existing, ok, err := findRef(ctx, t.refs, refType, t.name)
		if err != nil {
			return gchlerrors.NewCollisionError("look up", t.refName(refType), "", err)
		}
		if !ok {
			continue
		}
		tag := uuid.NewString()
		if err := t.refs.CreateRef(ctx, RefTag, tag, existing.Target, CreateRefOptions{}); err != nil {
			return gchlerrors.NewCollisionError("back up", t.refName(refType), "", err)
		}
		t.backups[refType] = &refBackup{refType: refType, tag: tag, target: existing.Target, state: backupTaken}
		log.Infof("Backed up %s (%s) to tag %s", t.refName(refType), existing.Target, tag)
	}

	if _, ok := t.backups[RefBranch]; ok && head.Branch == t.name {
		if err := t.refs.SetHead(ctx, HeadState{Commit: head.Commit}); err != nil {
			return gchlerrors.NewCollisionError("detach HEAD from", t.refName(RefBranch), "", err)
		}
		t.detached = true
		log.Debugf("Detached HEAD at %s", head.Commit)
	}

	for _, refType := range []RefType{RefTag, RefBranch} {
		b, ok := t.backups[refType]
		if !ok {
			continue
		}
		if err := t.refs.DeleteRef(ctx, refType, t.name); err != nil {
			return gchlerrors.NewCollisionError("delete", t.refName(refType), b.tag, err)
		}
		b.state = backupOriginalDeleted
	}

	t.attempted = true
	return t.create(ctx)
}

func (t *RefTransaction) create(ctx context.Context) error {
	if err := t.refs.CreateRef(ctx, t.refType, t.name, t.target, t.opts); err != nil {
		return gchlerrors.NewCollisionError("create", t.refName(t.refType), "", err)
	}
	clog.FromContext(ctx).Debugf("Created %s at %s", t.refName(t.refType), t.target)
	return nil
}

// Release deletes the reference, restores backed up references and HEAD.
// Every step is attempted; failures are joined.
func (t *RefTransaction) Release(ctx context.Context) error {
	if t.released || t.head == nil {
		return nil
	}
	t.released = true

	var errs []error

	if t.attempted {
		_, ok, err := findRef(ctx, t.refs, t.refType, t.name)
		switch {
		case err != nil:
			errs = append(errs, gchlerrors.NewCollisionError("look up", t.refName(t.refType), "", err))
		case ok:
			if err := t.refs.DeleteRef(ctx, t.refType, t.name); err != nil {
				errs = append(errs, gchlerrors.NewCollisionError("delete", t.refName(t.refType), "", err))
			}
		}
	}

	for _, refType := range []RefType{RefTag, RefBranch} {
		if b, ok := t.backups[refType]; ok {
			if err := t.restore(ctx, b); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := t.restoreHead(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (t *RefTransaction) restore(ctx context.Context, b *refBackup) error {
	log := clog.FromContext(ctx)
	if b.state == backupOriginalDeleted {
		if err := t.refs.CreateRef(ctx, b.refType, t.name, b.target, CreateRefOptions{Force: true}); err != nil {
			log.Warnf("Failed to restore %s, its target %s is kept in tag %s", t.refName(b.refType), b.target, b.tag)
			return gchlerrors.NewCollisionError("restore", t.refName(b.refType), b.tag, err)
		}
	}
	b.state = backupRestored
	if err := t.refs.DeleteRef(ctx, RefTag, b.tag); err != nil {
		return gchlerrors.NewCollisionError("delete backup tag for", t.refName(b.refType), b.tag, err)
	}
	log.Debugf("Restored %s from tag %s", t.refName(b.refType), b.tag)
	return nil
}

func (t *RefTransaction) restoreHead(ctx context.Context) error {
	head := *t.head
	if err := t.refs.SetHead(ctx, head); err != nil {
		return fmt.Errorf("failed to restore HEAD %s: %w", head, err)
	}
	if head.Detached() || head.Commit.IsZero() {
		return nil
	}
	ref, ok, err := findRef(ctx, t.refs, RefBranch, head.Branch)
	if err != nil {
		return fmt.Errorf("failed to verify branch %s: %w", head.Branch, err)
	}
	if !ok {
		return fmt.Errorf("HEAD restored to branch %s, but the branch no longer exists", head.Branch)
	}
	if ref.Target != head.Commit {
		return fmt.Errorf("HEAD restored to branch %s, but it points at %s instead of %s", head.Branch, ref.Target, head.Commit)
	}
	return nil
}
