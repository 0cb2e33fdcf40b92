package ci

import (
	"context"
	"fmt"
	"io"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/txn"
)

const jobsPerPage = 100

// GitLab implements Platform for one GitLab project
type GitLab struct {
	client  *gitlab.Client
	project string
}

var _ Platform = (*GitLab)(nil)

// NewGitLab creates a client for project ("group/name" or numeric ID) on
// serverURL. token may be empty for calls that authenticate otherwise, such as
// pipeline triggers.
func NewGitLab(serverURL, token, project string) (*GitLab, error) {
	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(serverURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client for %s: %w", serverURL, err)
	}
	return &GitLab{client: client, project: project}, nil
}

func toPipeline(p *gitlab.Pipeline) *Pipeline {
	return &Pipeline{
		ID:     p.ID,
		Ref:    p.Ref,
		SHA:    p.SHA,
		Status: Status(p.Status),
		WebURL: p.WebURL,
	}
}

func toJob(j *gitlab.Job) Job {
	return Job{
		ID:     j.ID,
		Name:   j.Name,
		Status: Status(j.Status),
		WebURL: j.WebURL,
	}
}

func (g *GitLab) CreatePipeline(ctx context.Context, ref string) (*Pipeline, error) {
	p, _, err := g.client.Pipelines.CreatePipeline(g.project, &gitlab.CreatePipelineOptions{
		Ref: gitlab.Ptr(ref),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline for %s: %w", ref, err)
	}
	return toPipeline(p), nil
}

func (g *GitLab) TriggerPipeline(ctx context.Context, ref, token string) (*Pipeline, error) {
	p, _, err := g.client.PipelineTriggers.RunPipelineTrigger(g.project, &gitlab.RunPipelineTriggerOptions{
		Ref:   gitlab.Ptr(ref),
		Token: gitlab.Ptr(token),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to trigger pipeline for %s: %w", ref, err)
	}
	return toPipeline(p), nil
}

func (g *GitLab) GetPipeline(ctx context.Context, id int) (*Pipeline, error) {
	p, _, err := g.client.Pipelines.GetPipeline(g.project, id, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline %d: %w", id, err)
	}
	return toPipeline(p), nil
}

func (g *GitLab) CancelPipeline(ctx context.Context, id int) (*Pipeline, error) {
	p, _, err := g.client.Pipelines.CancelPipelineBuild(g.project, id, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to cancel pipeline %d: %w", id, err)
	}
	return toPipeline(p), nil
}

func (g *GitLab) ListPipelineJobs(ctx context.Context, pipelineID int) ([]Job, error) {
	opts := &gitlab.ListJobsOptions{
		ListOptions: gitlab.ListOptions{PerPage: jobsPerPage, Page: 1},
	}
	var jobs []Job
	for {
		page, resp, err := g.client.Jobs.ListPipelineJobs(g.project, pipelineID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list jobs of pipeline %d: %w", pipelineID, err)
		}
		for _, j := range page {
			jobs = append(jobs, toJob(j))
		}
		if resp == nil || resp.NextPage == 0 {
			return jobs, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *GitLab) GetJob(ctx context.Context, id int) (*Job, error) {
	j, _, err := g.client.Jobs.GetJob(g.project, id, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get job %d: %w", id, err)
	}
	job := toJob(j)
	return &job, nil
}

func (g *GitLab) JobTrace(ctx context.Context, id int) ([]byte, error) {
	trace, _, err := g.client.Jobs.GetTraceFile(g.project, id, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get trace of job %d: %w", id, err)
	}
	return io.ReadAll(trace)
}

func (g *GitLab) DeleteRef(ctx context.Context, refType txn.RefType, name string) error {
	var err error
	switch refType {
	case txn.RefBranch:
		_, err = g.client.Branches.DeleteBranch(g.project, name, gitlab.WithContext(ctx))
	case txn.RefTag:
		_, err = g.client.Tags.DeleteTag(g.project, name, gitlab.WithContext(ctx))
	default:
		return gchlerrors.NewInvariantError("reference type", string(refType))
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", refType, name, err)
	}
	return nil
}
