package ci

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/txn"
)

// GitHub deletes references of one GitHub repository
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

var _ RefDeleter = (*GitHub)(nil)

// NewGitHub creates a client for repository ("owner/name"). apiURL selects a
// GitHub Enterprise REST endpoint such as https://ghe.example.com/api/v3/;
// empty means github.com.
func NewGitHub(ctx context.Context, apiURL, token, repository string) (*GitHub, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("repository must be owner/name, got %q", repository)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		baseURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse API URL %s: %w", apiURL, err)
		}
		client.BaseURL = baseURL
	}

	return &GitHub{client: client, owner: owner, repo: repo}, nil
}

func (g *GitHub) DeleteRef(ctx context.Context, refType txn.RefType, name string) error {
	var ref string
	switch refType {
	case txn.RefBranch:
		ref = "heads/" + name
	case txn.RefTag:
		ref = "tags/" + name
	default:
		return gchlerrors.NewInvariantError("reference type", string(refType))
	}
	if _, err := g.client.Git.DeleteRef(ctx, g.owner, g.repo, ref); err != nil {
		return fmt.Errorf("failed to delete %s %s in %s/%s: %w", refType, name, g.owner, g.repo, err)
	}
	return nil
}
