// Package glcancelpipeline cancels a GitLab CI pipeline.
package glcancelpipeline

import (
	"gchl.dev/gchl/internal/ci"
	"gchl.dev/gchl/internal/runtime"
)

// Options contains options for cancelling a pipeline
type Options struct {
	Platform   ci.Platform
	PipelineID int
	// Force turns a failed cancellation into a warning
	Force bool
}

// Action cancels the pipeline
func Action(ctx *runtime.Context, opts Options) error {
	if _, err := opts.Platform.CancelPipeline(ctx.Context, opts.PipelineID); err != nil {
		if !opts.Force {
			return err
		}
		ctx.Splog.Warn("Failed to cancel pipeline '%d': %v", opts.PipelineID, err)
		return nil
	}
	ctx.Splog.Info("Pipeline '%d' is successfully cancelled", opts.PipelineID)
	return nil
}
