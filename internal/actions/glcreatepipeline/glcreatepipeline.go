// Package glcreatepipeline creates a GitLab CI pipeline and optionally waits
// for its final status.
package glcreatepipeline

import (
	"time"

	"gchl.dev/gchl/internal/actions"
	"gchl.dev/gchl/internal/ci"
	"gchl.dev/gchl/internal/runtime"
)

// Options contains options for creating a pipeline
type Options struct {
	Platform ci.Platform
	RefName  string
	// ExpectedSHA is a prefix the pipeline commit must start with
	ExpectedSHA string
	// Attach waits for the pipeline and mirrors its status in the exit code
	Attach       bool
	PollInterval time.Duration
	Sleep        ci.Sleeper
}

// Action creates the pipeline
func Action(ctx *runtime.Context, opts Options) error {
	splog := ctx.Splog

	pipeline, err := opts.Platform.CreatePipeline(ctx.Context, opts.RefName)
	if err != nil {
		return err
	}
	if err := actions.ReportPipeline(ctx, pipeline); err != nil {
		return err
	}
	if err := actions.ExpectSHA(ctx, opts.Platform, pipeline, opts.ExpectedSHA); err != nil {
		return err
	}
	if !opts.Attach {
		return nil
	}

	poller := ci.NewPoller(opts.Platform, opts.PollInterval)
	poller.Sleep = actions.Sleeper(opts.Sleep)
	pipeline, err = poller.WaitPipeline(ctx.Context, pipeline, func(_ *ci.Pipeline, jobs []ci.Job) {
		for _, job := range jobs {
			splog.Info("\tjob '%s': %s (%s)", job.Name, splog.Styles().Status(job.Status.String()), job.WebURL)
		}
	})
	if err != nil {
		return err
	}

	splog.Info("%s", actions.PipelineSummary(ctx, pipeline))
	return actions.ExitStatus(pipeline.Status)
}
