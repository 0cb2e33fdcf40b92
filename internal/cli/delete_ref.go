package cli

import (
	"github.com/spf13/cobra"

	"gchl.dev/gchl/internal/actions/deleteref"
	"gchl.dev/gchl/internal/runtime"
)

// newDeleteRefCmd creates the g-delete-ref command
func newDeleteRefCmd() *cobra.Command {
	var (
		creds   credentialFlags
		refType string
		refName string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "g-delete-ref",
		Short: "Delete a tag or branch from a remote",
		Long: `Delete a tag or branch from a remote.

The deletion is pushed from a temporary repository, so no local checkout is
needed or touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx *runtime.Context) error {
				t, err := parseRefType(refType)
				if err != nil {
					return err
				}
				return deleteref.Action(ctx, deleteref.Options{
					Credentials: creds.credentials(cmd),
					RefType:     t,
					RefName:     refName,
					Force:       force,
				})
			})
		},
	}

	creds.register(cmd)
	refTypeFlag(cmd, &refType, "")
	cmd.Flags().StringVar(&refName, "ref-name", "", "Name of the reference to delete.")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Only warn when the reference could not be deleted.")
	mustMarkRequired(cmd, "ref-type", "ref-name")

	return cmd
}
