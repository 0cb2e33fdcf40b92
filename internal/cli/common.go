package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gchl.dev/gchl/internal/actions"
	"gchl.dev/gchl/internal/ci"
	"gchl.dev/gchl/internal/runtime"
	"gchl.dev/gchl/internal/txn"
)

// run provides a runtime context to a command's execution function
func run(cmd *cobra.Command, fn func(ctx *runtime.Context) error) error {
	debug, _ := cmd.Flags().GetBool("debug")
	logFile, _ := cmd.Flags().GetString("log-file")
	ctx, err := runtime.GetContext(cmd.Context(), debug, logFile)
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Close() }()
	return fn(ctx)
}

func mustMarkRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func parseRefType(s string) (txn.RefType, error) {
	t := txn.RefType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid reference type %q: expected %s or %s", s, txn.RefTag, txn.RefBranch)
	}
	return t, nil
}

// refTypeFlag registers --ref-type with completion
func refTypeFlag(cmd *cobra.Command, target *string, def string) {
	cmd.Flags().StringVar(target, "ref-type", def, fmt.Sprintf("Type of the reference: %s or %s.", txn.RefTag, txn.RefBranch))
	_ = cmd.RegisterFlagCompletionFunc("ref-type", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(txn.RefTag), string(txn.RefBranch)}, cobra.ShellCompDirectiveNoFileComp
	})
}

// credentialFlags are the flags of commands that push to a remote
type credentialFlags struct {
	remoteURL string
	username  string
	password  string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.remoteURL, "remote-url", "", "URL of the remote repository.")
	cmd.Flags().StringVar(&f.username, "username", actions.DefaultUsername, "User name for HTTP remotes.")
	cmd.Flags().StringVar(&f.password, "password", "", "Password for HTTP remotes (default: $GCHL_PASSWORD).")
	mustMarkRequired(cmd, "remote-url")
}

func (f *credentialFlags) credentials(cmd *cobra.Command) actions.Credentials {
	c := actions.Credentials{RemoteURL: f.remoteURL, Username: f.username}
	if cmd.Flags().Changed("password") {
		password := f.password
		c.Password = &password
	}
	return c
}

// gitlabFlags select a GitLab project
type gitlabFlags struct {
	serverURL   string
	projectName string
	token       string
}

func (f *gitlabFlags) register(cmd *cobra.Command, tokenUsage string) {
	cmd.Flags().StringVar(&f.serverURL, "server-url", "", "GitLab server URL.")
	cmd.Flags().StringVar(&f.projectName, "project-name", "", "GitLab project name or ID.")
	cmd.Flags().StringVar(&f.token, "token", "", tokenUsage)
	mustMarkRequired(cmd, "server-url", "project-name", "token")
}

func (f *gitlabFlags) platform() (*ci.GitLab, error) {
	return ci.NewGitLab(f.serverURL, f.token, f.projectName)
}

// pollFlag registers --poll-timeout in seconds
func pollFlag(cmd *cobra.Command, target *int) {
	cmd.Flags().IntVar(target, "poll-timeout", actions.DefaultPollTimeout, "Seconds to wait between two status polls; negative values do not wait.")
}
