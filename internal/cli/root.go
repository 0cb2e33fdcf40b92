package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gchl",
		Short: "gchl is CI/CD glue for git repositories, GitLab and GitHub",
		Long: `gchl is CI/CD glue for git repositories, GitLab and GitHub.

The g-* commands push and delete references of a git remote. They patch the
local repository only for the duration of the command and restore its
references, configuration and working tree on every exit path.

The gl-* and gh-* commands drive GitLab CI pipelines and forge references.
Results are written as step outputs when $GITHUB_OUTPUT is set.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Write debug messages to the console.")
	rootCmd.PersistentFlags().String("log-file", "", "Also write every message to this file, rotated by size (default: $GCHL_LOG_FILE).")

	rootCmd.AddCommand(
		newPushRevCmd(),
		newDeleteRefCmd(),
		newGLCreatePipelineCmd(),
		newGLTriggerPipelineCmd(),
		newGLCancelPipelineCmd(),
		newGLAttachJobCmd(),
		newGLDeleteRefCmd(),
		newGHDeleteRefCmd(),
	)

	return rootCmd
}
