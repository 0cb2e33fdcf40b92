// Package glattachjob follows the trace of a job in a GitLab CI pipeline.
package glattachjob

import (
	"fmt"
	"time"

	"gchl.dev/gchl/internal/actions"
	"gchl.dev/gchl/internal/ci"
	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/runtime"
)

// Options contains options for attaching to a job
type Options struct {
	Platform     ci.Platform
	PipelineID   int
	JobName      string
	PollInterval time.Duration
	Sleep        ci.Sleeper
}

// Action waits for the job to appear in the pipeline, copies its trace to
// ctx.Stdout until it finishes and mirrors its status in the exit code
func Action(ctx *runtime.Context, opts Options) error {
	splog := ctx.Splog
	sleep := actions.Sleeper(opts.Sleep)

	var (
		job      *ci.Job
		follower *ci.TraceFollower
	)
	for {
		if job == nil {
			found, pipeline, err := findJob(ctx, opts)
			if err != nil {
				return err
			}
			if found != nil {
				if job, err = opts.Platform.GetJob(ctx.Context, found.ID); err != nil {
					return err
				}
				splog.Info("Attaching to job '%s' (%s)", job.Name, job.WebURL)
				follower = ci.NewTraceFollower(opts.Platform, job.ID, ctx.Stdout)
			} else if pipeline.Status.PipelineFinal() {
				return fmt.Errorf("%w: job '%s' is not found in pipeline for SHA '%s' (%s)",
					gchlerrors.ErrJobNotFound, opts.JobName, pipeline.ShortSHA(), pipeline.WebURL)
			}
		} else {
			refreshed, err := opts.Platform.GetJob(ctx.Context, job.ID)
			if err != nil {
				return err
			}
			job = refreshed
		}

		if job != nil {
			if err := follower.Poll(ctx.Context); err != nil {
				return err
			}
			if job.Status.JobFinal() {
				break
			}
		}

		if err := sleep(ctx.Context, opts.PollInterval); err != nil {
			return err
		}
	}

	splog.Debug("Job '%s' finished with %s after %d trace bytes", job.Name, job.Status, follower.Reported())
	return actions.ExitStatus(job.Status)
}

func findJob(ctx *runtime.Context, opts Options) (*ci.Job, *ci.Pipeline, error) {
	pipeline, err := opts.Platform.GetPipeline(ctx.Context, opts.PipelineID)
	if err != nil {
		return nil, nil, err
	}
	jobs, err := opts.Platform.ListPipelineJobs(ctx.Context, opts.PipelineID)
	if err != nil {
		return nil, nil, err
	}
	job, err := ci.FindJob(jobs, opts.JobName)
	return job, pipeline, err
}
