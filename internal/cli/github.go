package cli

import (
	"github.com/spf13/cobra"

	"gchl.dev/gchl/internal/actions/apideleteref"
	"gchl.dev/gchl/internal/ci"
	"gchl.dev/gchl/internal/runtime"
)

// DefaultGitHubAPIURL is the API of github.com
const DefaultGitHubAPIURL = "https://api.github.com/"

// newGHDeleteRefCmd creates the gh-delete-ref command
func newGHDeleteRefCmd() *cobra.Command {
	var (
		serverURL  string
		repository string
		token      string
		refType    string
		refName    string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "gh-delete-ref",
		Short: "Delete a tag or branch through the GitHub API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx *runtime.Context) error {
				t, err := parseRefType(refType)
				if err != nil {
					return err
				}
				gh, err := ci.NewGitHub(ctx.Context, serverURL, token, repository)
				if err != nil {
					return err
				}
				return apideleteref.Action(ctx, apideleteref.Options{Deleter: gh, RefType: t, RefName: refName, Force: force})
			})
		},
	}

	cmd.Flags().StringVar(&serverURL, "server-url", DefaultGitHubAPIURL, "GitHub API URL.")
	cmd.Flags().StringVar(&repository, "repository", "", "Repository as owner/name.")
	cmd.Flags().StringVar(&token, "token", "", "GitHub token allowed to write contents.")
	refTypeFlag(cmd, &refType, "")
	cmd.Flags().StringVar(&refName, "ref-name", "", "Name of the reference to delete.")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Only warn when the reference could not be deleted.")
	mustMarkRequired(cmd, "repository", "token", "ref-type", "ref-name")

	return cmd
}
