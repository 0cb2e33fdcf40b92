package git_test

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gchl.dev/gchl/internal/git"
	"gchl.dev/gchl/internal/txn"
	"gchl.dev/gchl/testhelpers"
)

const credentialURL = "https://example.com/group/repo.git"

// credentialFill asks git for the credentials of credentialURL the way a push would
func credentialFill(t *testing.T, repo *git.Repository) (string, error) {
	t.Helper()
	cmd := exec.Command("git", "credential", "fill")
	cmd.Dir = repo.Path()
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_CONFIG_NOSYSTEM=1", "GIT_ASKPASS=", "SSH_ASKPASS=")
	cmd.Stdin = strings.NewReader("url=" + credentialURL + "\n\n")
	out, err := cmd.Output()
	return string(out), err
}

func TestCredentialHandoff(t *testing.T) {
	testhelpers.RequireGit(t)
	ctx := context.Background()
	repo := newPlainRepository(t)
	section := `credential "` + credentialURL + `"`
	secret := `s3cr3t "quoted"; $HOME`

	channel, err := txn.NewCredentialChannel(nil, &secret)
	require.NoError(t, err)
	override := txn.CredentialOverride(credentialURL, "token", channel.Variable())

	err = txn.Run(ctx, func(ctx context.Context, s *txn.Stack) error {
		if err := s.Enter(ctx, "configuration", txn.NewConfigTransaction(repo, override)); err != nil {
			return err
		}
		if err := s.Enter(ctx, "credentials", channel); err != nil {
			return err
		}

		out, err := credentialFill(t, repo)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Contains(t, lines, "username=token")
		require.Contains(t, lines, "password="+secret)
		return nil
	})
	require.NoError(t, err)

	_, ok := os.LookupEnv(channel.Variable())
	require.False(t, ok, "credential variable is unset again")

	ok, err = repo.HasSection(txn.ScopeRepository, section)
	require.NoError(t, err)
	require.False(t, ok, "credential section is removed again")
	name, _, err := repo.GetAll(txn.ScopeRepository, "user", "name")
	require.NoError(t, err)
	require.Equal(t, []string{"Jane"}, name)

	_, err = credentialFill(t, repo)
	require.Error(t, err, "no helper answers once released")
}
