package actions

import (
	"fmt"
	"strconv"
	"strings"

	"gchl.dev/gchl/internal/ci"
	"gchl.dev/gchl/internal/config"
	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/runtime"
)

// DefaultPollTimeout is the default number of seconds between two polls
const DefaultPollTimeout = 10

// PipelineSummary formats a pipeline the way every command reports it
func PipelineSummary(ctx *runtime.Context, p *ci.Pipeline) string {
	return fmt.Sprintf("Pipeline for '%s' (SHA: %s): %s (%s)",
		p.Ref, p.ShortSHA(), ctx.Splog.Styles().Status(p.Status.String()), p.WebURL)
}

// ReportPipeline logs a new pipeline and writes the pipeline-id and
// pipeline-sha step outputs
func ReportPipeline(ctx *runtime.Context, p *ci.Pipeline) error {
	ctx.Splog.Info("%s", PipelineSummary(ctx, p))
	return ctx.Outputs.Write(
		config.Output{Name: "pipeline-id", Value: strconv.Itoa(p.ID)},
		config.Output{Name: "pipeline-sha", Value: p.SHA},
	)
}

// ExpectSHA cancels the pipeline and fails when its commit does not start
// with expected. An empty expected accepts any commit.
func ExpectSHA(ctx *runtime.Context, platform ci.Platform, p *ci.Pipeline, expected string) error {
	if strings.HasPrefix(p.SHA, expected) {
		return nil
	}
	ctx.Splog.Warn("Pipeline SHA '%s' does not match the expected SHA '%s'", p.SHA, expected)
	if _, err := platform.CancelPipeline(ctx.Context, p.ID); err != nil {
		ctx.Splog.Warn("Failed to cancel pipeline %d: %v", p.ID, err)
	}
	return fmt.Errorf("%w: pipeline %d runs for %s, expected %s", gchlerrors.ErrUnexpectedSHA, p.ID, p.SHA, expected)
}

// ExitStatus mirrors a final CI status in the exit code
func ExitStatus(status ci.Status) error {
	if status.Success() {
		return nil
	}
	return gchlerrors.NewExitCodeError(1)
}

// Sleeper returns sleep, or ci.Sleep when nil
func Sleeper(sleep ci.Sleeper) ci.Sleeper {
	if sleep == nil {
		return ci.Sleep
	}
	return sleep
}
