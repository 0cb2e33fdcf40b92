package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// CreateRemote adds a remote with a single URL
func (r *Repository) CreateRemote(_ context.Context, name, url string) error {
	_, err := r.repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to create remote %s: %w", name, err)
	}
	return nil
}

// DeleteRemote removes a remote together with its remote-tracking references
func (r *Repository) DeleteRemote(_ context.Context, name string) error {
	if err := r.repo.DeleteRemote(name); err != nil {
		return fmt.Errorf("failed to delete remote %s: %w", name, err)
	}

	iter, err := r.repo.References()
	if err != nil {
		return fmt.Errorf("failed to list references: %w", err)
	}
	prefix := "refs/remotes/" + name + "/"
	var tracking []plumbing.ReferenceName
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		if strings.HasPrefix(ref.Name().String(), prefix) {
			tracking = append(tracking, ref.Name())
		}
		return nil
	})
	var errs []error
	for _, ref := range tracking {
		if err := r.repo.Storer.RemoveReference(ref); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", ref, err))
		}
	}
	return errors.Join(errs...)
}

// HasRemote reports whether a remote is configured
func (r *Repository) HasRemote(_ context.Context, name string) (bool, error) {
	_, err := r.repo.Remote(name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gogit.ErrRemoteNotFound):
		return false, nil
	}
	return false, fmt.Errorf("failed to look up remote %s: %w", name, err)
}
