package cli

import (
	"github.com/spf13/cobra"

	"gchl.dev/gchl/internal/actions/apideleteref"
	"gchl.dev/gchl/internal/actions/glattachjob"
	"gchl.dev/gchl/internal/actions/glcancelpipeline"
	"gchl.dev/gchl/internal/actions/glcreatepipeline"
	"gchl.dev/gchl/internal/actions/gltriggerpipeline"
	"gchl.dev/gchl/internal/ci"
	"gchl.dev/gchl/internal/runtime"
)

// newGLCreatePipelineCmd creates the gl-create-pipeline command
func newGLCreatePipelineCmd() *cobra.Command {
	var (
		gl          gitlabFlags
		refName     string
		expectedSHA string
		attach      bool
		pollTimeout int
	)

	cmd := &cobra.Command{
		Use:   "gl-create-pipeline",
		Short: "Create a GitLab CI pipeline",
		Long: `Create a GitLab CI pipeline for a branch or tag.

Writes the pipeline-id and pipeline-sha step outputs. With --expected-sha the
pipeline is cancelled and the command fails when it runs for another commit.
With --attach the command waits for the pipeline and exits with 1 unless it
succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx *runtime.Context) error {
				platform, err := gl.platform()
				if err != nil {
					return err
				}
				return glcreatepipeline.Action(ctx, glcreatepipeline.Options{
					Platform:     platform,
					RefName:      refName,
					ExpectedSHA:  expectedSHA,
					Attach:       attach,
					PollInterval: ci.PollInterval(pollTimeout),
				})
			})
		},
	}

	gl.register(cmd, "GitLab access token.")
	cmd.Flags().StringVar(&refName, "ref-name", "", "Branch or tag to create the pipeline for.")
	cmd.Flags().StringVar(&expectedSHA, "expected-sha", "", "Expected prefix of the pipeline commit SHA.")
	cmd.Flags().BoolVar(&attach, "attach", false, "Wait for the pipeline and report its final status.")
	pollFlag(cmd, &pollTimeout)
	mustMarkRequired(cmd, "ref-name")

	return cmd
}

// newGLTriggerPipelineCmd creates the gl-trigger-pipeline command
func newGLTriggerPipelineCmd() *cobra.Command {
	var (
		gl          gitlabFlags
		refName     string
		expectedSHA string
	)

	cmd := &cobra.Command{
		Use:   "gl-trigger-pipeline",
		Short: "Trigger a GitLab CI pipeline with a trigger token",
		Long: `Trigger a GitLab CI pipeline with a pipeline trigger token.

Writes the pipeline-id and pipeline-sha step outputs. With --expected-sha the
command fails when the pipeline runs for another commit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx *runtime.Context) error {
				// trigger tokens do not authenticate other API calls
				platform, err := ci.NewGitLab(gl.serverURL, "", gl.projectName)
				if err != nil {
					return err
				}
				return gltriggerpipeline.Action(ctx, gltriggerpipeline.Options{
					Platform:    platform,
					RefName:     refName,
					Token:       gl.token,
					ExpectedSHA: expectedSHA,
				})
			})
		},
	}

	gl.register(cmd, "GitLab pipeline trigger token.")
	cmd.Flags().StringVar(&refName, "ref-name", "", "Branch or tag to trigger the pipeline for.")
	cmd.Flags().StringVar(&expectedSHA, "expected-sha", "", "Expected prefix of the pipeline commit SHA.")
	mustMarkRequired(cmd, "ref-name")

	return cmd
}

// newGLCancelPipelineCmd creates the gl-cancel-pipeline command
func newGLCancelPipelineCmd() *cobra.Command {
	var (
		gl         gitlabFlags
		pipelineID int
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "gl-cancel-pipeline",
		Short: "Cancel a GitLab CI pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx *runtime.Context) error {
				platform, err := gl.platform()
				if err != nil {
					return err
				}
				return glcancelpipeline.Action(ctx, glcancelpipeline.Options{
					Platform:   platform,
					PipelineID: pipelineID,
					Force:      force,
				})
			})
		},
	}

	gl.register(cmd, "GitLab access token.")
	cmd.Flags().IntVar(&pipelineID, "pipeline-id", 0, "ID of the pipeline.")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Only warn when the pipeline could not be cancelled.")
	mustMarkRequired(cmd, "pipeline-id")

	return cmd
}

// newGLAttachJobCmd creates the gl-attach-job command
func newGLAttachJobCmd() *cobra.Command {
	var (
		gl          gitlabFlags
		pipelineID  int
		jobName     string
		pollTimeout int
	)

	cmd := &cobra.Command{
		Use:   "gl-attach-job",
		Short: "Follow the trace of a GitLab CI job",
		Long: `Follow the trace of a GitLab CI job.

Waits for a job named --job-name to appear in the pipeline, copies its trace
to stdout until it finishes and exits with 1 unless it succeeds. Fails when
the pipeline finishes without such a job.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx *runtime.Context) error {
				platform, err := gl.platform()
				if err != nil {
					return err
				}
				return glattachjob.Action(ctx, glattachjob.Options{
					Platform:     platform,
					PipelineID:   pipelineID,
					JobName:      jobName,
					PollInterval: ci.PollInterval(pollTimeout),
				})
			})
		},
	}

	gl.register(cmd, "GitLab access token.")
	cmd.Flags().IntVar(&pipelineID, "pipeline-id", 0, "ID of the pipeline.")
	cmd.Flags().StringVar(&jobName, "job-name", "", "Name of the job to attach to.")
	pollFlag(cmd, &pollTimeout)
	mustMarkRequired(cmd, "pipeline-id", "job-name")

	return cmd
}

// newGLDeleteRefCmd creates the gl-delete-ref command
func newGLDeleteRefCmd() *cobra.Command {
	var (
		gl      gitlabFlags
		refType string
		refName string
	)

	cmd := &cobra.Command{
		Use:   "gl-delete-ref",
		Short: "Delete a tag or branch through the GitLab API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx *runtime.Context) error {
				t, err := parseRefType(refType)
				if err != nil {
					return err
				}
				platform, err := gl.platform()
				if err != nil {
					return err
				}
				return apideleteref.Action(ctx, apideleteref.Options{Deleter: platform, RefType: t, RefName: refName})
			})
		},
	}

	gl.register(cmd, "GitLab access token.")
	refTypeFlag(cmd, &refType, "")
	cmd.Flags().StringVar(&refName, "ref-name", "", "Name of the reference to delete.")
	mustMarkRequired(cmd, "ref-type", "ref-name")

	return cmd
}
