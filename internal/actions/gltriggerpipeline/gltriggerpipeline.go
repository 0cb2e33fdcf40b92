// Package gltriggerpipeline triggers a GitLab CI pipeline with a pipeline
// trigger token.
package gltriggerpipeline

import (
	"gchl.dev/gchl/internal/actions"
	"gchl.dev/gchl/internal/ci"
	"gchl.dev/gchl/internal/runtime"
)

// Options contains options for triggering a pipeline
type Options struct {
	Platform ci.Platform
	RefName  string
	// Token is the pipeline trigger token
	Token       string
	ExpectedSHA string
}

// Action triggers the pipeline
func Action(ctx *runtime.Context, opts Options) error {
	pipeline, err := opts.Platform.TriggerPipeline(ctx.Context, opts.RefName, opts.Token)
	if err != nil {
		return err
	}
	if err := actions.ReportPipeline(ctx, pipeline); err != nil {
		return err
	}
	return actions.ExpectSHA(ctx, opts.Platform, pipeline, opts.ExpectedSHA)
}
