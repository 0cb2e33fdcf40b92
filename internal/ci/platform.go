// Package ci talks to CI servers on behalf of the gl-* and gh-* commands.
//
// Pipeline and Job are simplified structs so callers do not couple to the
// API client libraries. GitLab implements Platform; GitHub only deletes refs.
package ci

import (
	"context"

	"gchl.dev/gchl/internal/txn"
)

// Pipeline is a CI pipeline
type Pipeline struct {
	ID     int
	Ref    string
	SHA    string
	Status Status
	WebURL string
}

// ShortSHA returns the first eight characters of the pipeline commit
func (p *Pipeline) ShortSHA() string {
	if len(p.SHA) > 8 {
		return p.SHA[:8]
	}
	return p.SHA
}

// Job is a single job of a pipeline
type Job struct {
	ID     int
	Name   string
	Status Status
	WebURL string
}

// RefDeleter deletes branches and tags through a forge API
type RefDeleter interface {
	DeleteRef(ctx context.Context, refType txn.RefType, name string) error
}

// Platform is the pipeline lifecycle of a CI server, scoped to one project
type Platform interface {
	RefDeleter

	// CreatePipeline creates a pipeline for a branch or tag
	CreatePipeline(ctx context.Context, ref string) (*Pipeline, error)
	// TriggerPipeline creates a pipeline with a pipeline trigger token
	TriggerPipeline(ctx context.Context, ref, token string) (*Pipeline, error)
	GetPipeline(ctx context.Context, id int) (*Pipeline, error)
	CancelPipeline(ctx context.Context, id int) (*Pipeline, error)
	// ListPipelineJobs returns every job of a pipeline, across all pages
	ListPipelineJobs(ctx context.Context, pipelineID int) ([]Job, error)
	GetJob(ctx context.Context, id int) (*Job, error)
	// JobTrace returns the complete log of a job so far
	JobTrace(ctx context.Context, id int) ([]byte, error)
}
