package txn

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
)

// EphemeralRemote is a uniquely named remote that exists for one push
type EphemeralRemote struct {
	remotes RemoteStore
	url     string
	name    string

	attempted bool
	created   bool
}

// NewEphemeralRemote creates a remote scope for url. The name is generated
// up front so it never clashes with a persisted remote.
func NewEphemeralRemote(remotes RemoteStore, url string) *EphemeralRemote {
	return &EphemeralRemote{
		remotes: remotes,
		url:     url,
		name:    strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}

// Name returns the remote name
func (r *EphemeralRemote) Name() string {
	return r.name
}

// Acquire creates the remote
func (r *EphemeralRemote) Acquire(ctx context.Context) error {
	r.attempted = true
	if err := r.remotes.CreateRemote(ctx, r.name, r.url); err != nil {
		return fmt.Errorf("failed to create remote: %w", err)
	}
	r.created = true
	clog.FromContext(ctx).Debugf("Created remote %s", r.name)
	return nil
}

// Push pushes refspecs through the remote
func (r *EphemeralRemote) Push(ctx context.Context, force bool, refspecs ...string) ([]PushResult, error) {
	if !r.created {
		return nil, fmt.Errorf("remote %s has not been created", r.name)
	}
	return r.remotes.Push(ctx, r.name, force, refspecs...)
}

// Release deletes the remote if it still exists. A failed Acquire may have
// left the remote behind, so existence is checked rather than assumed.
func (r *EphemeralRemote) Release(ctx context.Context) error {
	if !r.attempted {
		return nil
	}
	exists, err := r.remotes.HasRemote(ctx, r.name)
	if err != nil {
		return fmt.Errorf("failed to look up remote %s: %w", r.name, err)
	}
	if !exists {
		r.created = false
		return nil
	}
	if err := r.remotes.DeleteRemote(ctx, r.name); err != nil {
		return fmt.Errorf("failed to delete remote %s: %w", r.name, err)
	}
	r.created = false
	return nil
}
