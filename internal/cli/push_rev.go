package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gchl.dev/gchl/internal/actions/pushrev"
	"gchl.dev/gchl/internal/config"
	"gchl.dev/gchl/internal/runtime"
	"gchl.dev/gchl/internal/txn"
)

// newPushRevCmd creates the g-push-rev command
func newPushRevCmd() *cobra.Command {
	var (
		creds            credentialFlags
		localPath        string
		revID            string
		revSigningFormat string
		revSigningKey    string
		refType          string
		refName          string
		refMessage       string
		refSigningFormat string
		refSigningKey    string
		forcePush        bool
		safePath         bool
	)

	cmd := &cobra.Command{
		Use:   "g-push-rev",
		Short: "Push a revision to a remote as a new tag or branch",
		Long: `Push a revision to a remote as a new tag or branch.

The reference is created in the local repository only for the push: a local
branch or tag of the same name is backed up and restored afterwards. With
--rev-signing-format the revision is amended with a signature first; with
--ref-signing-format the tag is signed. Signing keys are base64 encoded
private keys, read from the environment unless given as flags.

Writes the ref-name and ref-commit step outputs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx *runtime.Context) error {
				opts := pushrev.Options{
					LocalPath:   localPath,
					Credentials: creds.credentials(cmd),
					RevID:       revID,
					RefName:     refName,
					RefMessage:  refMessage,
					ForcePush:   forcePush,
					SafePath:    safePath,
				}

				var err error
				if opts.RefType, err = parseRefType(refType); err != nil {
					return err
				}
				if opts.RevSigningFormat, err = txn.ParseSigningFormat(revSigningFormat); err != nil {
					return err
				}
				if opts.RefSigningFormat, err = txn.ParseSigningFormat(refSigningFormat); err != nil {
					return err
				}
				if opts.RevSigningKey, err = signingKey(revSigningKey, ctx.Env.RevSigningKey, "rev"); err != nil {
					return err
				}
				if opts.RefSigningKey, err = signingKey(refSigningKey, ctx.Env.RefSigningKey, "ref"); err != nil {
					return err
				}
				return pushrev.Action(ctx, opts)
			})
		},
	}

	creds.register(cmd)
	cmd.Flags().StringVar(&localPath, "local-path", ".", "Path of the local repository; initialized when missing.")
	cmd.Flags().StringVar(&revID, "rev-id", "HEAD", "Revision to push.")
	cmd.Flags().StringVar(&revSigningFormat, "rev-signing-format", string(txn.SigningNone), "Sign the revision: none or ssh.")
	cmd.Flags().StringVar(&revSigningKey, "rev-signing-key", "", "Base64 encoded key signing the revision (default: $GCHL_REV_SIGNING_KEY).")
	refTypeFlag(cmd, &refType, string(txn.RefTag))
	cmd.Flags().StringVar(&refName, "ref-name", "", "Name of the reference (default: gchl-<type>-<short sha>).")
	cmd.Flags().StringVar(&refMessage, "ref-message", "", fmt.Sprintf("Tag message; makes the tag annotated (default: %q when signed).", pushrev.DefaultSignedMessage))
	cmd.Flags().StringVar(&refSigningFormat, "ref-signing-format", string(txn.SigningNone), "Sign the tag: none or ssh.")
	cmd.Flags().StringVar(&refSigningKey, "ref-signing-key", "", "Base64 encoded key signing the tag (default: $GCHL_REF_SIGNING_KEY).")
	cmd.Flags().BoolVar(&forcePush, "force-push", false, "Overwrite the reference on the remote.")
	cmd.Flags().BoolVar(&safePath, "safe-path", false, "Mark --local-path as a safe directory while pushing.")

	return cmd
}

func signingKey(flag, env, what string) ([]byte, error) {
	encoded := flag
	if encoded == "" {
		encoded = env
	}
	key, err := config.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid %s signing key: %w", what, err)
	}
	return key, nil
}
