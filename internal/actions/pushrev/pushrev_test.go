package pushrev_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gchl.dev/gchl/internal/actions"
	"gchl.dev/gchl/internal/actions/pushrev"
	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/txn"
	"gchl.dev/gchl/testhelpers"
	"gchl.dev/gchl/testhelpers/scenario"
)

func twoCommits(s *testhelpers.Scene) error {
	if err := s.Repo.CreateChangeAndCommit("1", "1"); err != nil {
		return err
	}
	return s.Repo.CreateChangeAndCommit("2", "2")
}

func remoteGit(t *testing.T, bare string, args ...string) string {
	t.Helper()
	out, err := exec.Command("git", append([]string{"--git-dir", bare}, args...)...).Output()
	require.NoError(t, err)
	return strings.TrimSpace(string(out))
}

func newScenario(t *testing.T) (*scenario.Scenario, string) {
	s := scenario.NewScenario(t, twoCommits).WithPassword("secret")
	return s, s.BareRemote("origin")
}

func TestPushRev(t *testing.T) {
	t.Run("pushes a lightweight tag with a default name", func(t *testing.T) {
		s, bare := newScenario(t)
		head := testhelpers.Must(s.Scene.Repo.GetRevision("HEAD"))
		refs := testhelpers.Must(s.Scene.Repo.ShowRefs())
		config := testhelpers.LocalConfig(t, s.Scene.Repo)

		err := pushrev.Action(s.Context, pushrev.Options{
			LocalPath:   s.Scene.Dir,
			Credentials: actions.Credentials{RemoteURL: bare},
			RefType:     txn.RefTag,
		})
		require.NoError(t, err)

		name := "gchl-tag-" + head[:8]
		testhelpers.ExpectRemoteRefs(t, bare, "refs/tags/", name)
		require.Equal(t, head, testhelpers.Must(s.Scene.Repo.RemoteRevision(bare, "refs/tags/"+name)))
		s.ExpectOutput("ref-name", name).ExpectOutput("ref-commit", head)

		testhelpers.ExpectUnchanged(t, s.Scene.Repo, refs)
		testhelpers.ExpectConfigUnchanged(t, s.Scene.Repo, config)
		require.Empty(t, s.Git("remote"))
	})

	t.Run("pushes a branch over a colliding local branch", func(t *testing.T) {
		s, bare := newScenario(t)
		head := testhelpers.Must(s.Scene.Repo.GetRevision("HEAD"))
		s.RunGit("branch", "release", "HEAD~1")
		refs := testhelpers.Must(s.Scene.Repo.ShowRefs())

		err := pushrev.Action(s.Context, pushrev.Options{
			LocalPath:   s.Scene.Dir,
			Credentials: actions.Credentials{RemoteURL: bare},
			RefType:     txn.RefBranch,
			RefName:     "release",
		})
		require.NoError(t, err)

		require.Equal(t, head, testhelpers.Must(s.Scene.Repo.RemoteRevision(bare, "refs/heads/release")))
		testhelpers.ExpectUnchanged(t, s.Scene.Repo, refs)
		s.ExpectBranch("main").ExpectClean()
	})

	t.Run("pushes an annotated tag", func(t *testing.T) {
		s, bare := newScenario(t)
		config := testhelpers.LocalConfig(t, s.Scene.Repo)

		err := pushrev.Action(s.Context, pushrev.Options{
			LocalPath:   s.Scene.Dir,
			Credentials: actions.Credentials{RemoteURL: bare},
			RevID:       "HEAD~1",
			RefType:     txn.RefTag,
			RefName:     "v1",
			RefMessage:  "release 1",
		})
		require.NoError(t, err)

		require.Equal(t, "tag", remoteGit(t, bare, "cat-file", "-t", "refs/tags/v1"))
		require.Equal(t, testhelpers.Must(s.Scene.Repo.GetRevision("HEAD~1")), remoteGit(t, bare, "rev-parse", "refs/tags/v1^{commit}"))
		tag := remoteGit(t, bare, "cat-file", "-p", "refs/tags/v1")
		require.Contains(t, tag, "tagger "+pushrev.CommitterName)
		require.Contains(t, tag, "release 1")

		testhelpers.ExpectConfigUnchanged(t, s.Scene.Repo, config)
		testhelpers.ExpectTags(t, s.Scene.Repo, []string{})
	})

	t.Run("signs the revision and the tag", func(t *testing.T) {
		testhelpers.RequireSSHKeygen(t)
		s, bare := newScenario(t)
		s.WithUncommittedChange("local")
		head := testhelpers.Must(s.Scene.Repo.GetRevision("HEAD"))
		config := testhelpers.LocalConfig(t, s.Scene.Repo)
		keyDir := t.TempDir()
		key := testhelpers.NewSSHKey(t)

		err := pushrev.Action(s.Context, pushrev.Options{
			LocalPath:        s.Scene.Dir,
			Credentials:      actions.Credentials{RemoteURL: bare},
			RevSigningFormat: txn.SigningSSH,
			RevSigningKey:    key,
			RefType:          txn.RefTag,
			RefName:          "signed",
			RefSigningFormat: txn.SigningSSH,
			RefSigningKey:    key,
			KeyDir:           keyDir,
		})
		require.NoError(t, err)

		signed := remoteGit(t, bare, "rev-parse", "refs/tags/signed^{commit}")
		require.NotEqual(t, head, signed)
		require.Contains(t, remoteGit(t, bare, "cat-file", "commit", signed), "gpgsig")
		tag := remoteGit(t, bare, "cat-file", "-p", "refs/tags/signed")
		require.Contains(t, tag, pushrev.DefaultSignedMessage)
		require.Contains(t, tag, "-----BEGIN SSH SIGNATURE-----")
		s.ExpectOutput("ref-commit", signed)

		s.ExpectBranch("main")
		require.Equal(t, head, testhelpers.Must(s.Scene.Repo.GetRevision("HEAD")))
		require.FileExists(t, filepath.Join(s.Scene.Dir, "local_test.txt"))
		testhelpers.ExpectConfigUnchanged(t, s.Scene.Repo, config)
		entries, err := os.ReadDir(keyDir)
		require.NoError(t, err)
		require.Empty(t, entries)
	})

	t.Run("rejected pushes leave the repository untouched", func(t *testing.T) {
		s, bare := newScenario(t)
		s.RunGit("push", bare, "HEAD~1:refs/tags/v1")
		refs := testhelpers.Must(s.Scene.Repo.ShowRefs())
		config := testhelpers.LocalConfig(t, s.Scene.Repo)

		opts := pushrev.Options{
			LocalPath:   s.Scene.Dir,
			Credentials: actions.Credentials{RemoteURL: bare},
			RefType:     txn.RefTag,
			RefName:     "v1",
		}
		err := pushrev.Action(s.Context, opts)
		require.ErrorIs(t, err, gchlerrors.ErrPush)
		testhelpers.ExpectUnchanged(t, s.Scene.Repo, refs)
		testhelpers.ExpectConfigUnchanged(t, s.Scene.Repo, config)
		require.Empty(t, s.Outputs())

		opts.ForcePush = true
		require.NoError(t, pushrev.Action(s.Context, opts))
		require.Equal(t, testhelpers.Must(s.Scene.Repo.GetRevision("HEAD")), testhelpers.Must(s.Scene.Repo.RemoteRevision(bare, "refs/tags/v1")))
	})

	t.Run("broken signing keys fail before pushing", func(t *testing.T) {
		s, bare := newScenario(t)
		refs := testhelpers.Must(s.Scene.Repo.ShowRefs())

		err := pushrev.Action(s.Context, pushrev.Options{
			LocalPath:        s.Scene.Dir,
			Credentials:      actions.Credentials{RemoteURL: bare},
			RevSigningFormat: txn.SigningSSH,
			RevSigningKey:    []byte("not a key"),
			RefType:          txn.RefTag,
			KeyDir:           t.TempDir(),
		})
		require.ErrorIs(t, err, gchlerrors.ErrSigning)
		testhelpers.ExpectRemoteRefs(t, bare, "refs/tags/")
		testhelpers.ExpectUnchanged(t, s.Scene.Repo, refs)
		s.ExpectBranch("main")
	})

	t.Run("marks the path safe for the duration of the push", func(t *testing.T) {
		s, bare := newScenario(t)
		err := pushrev.Action(s.Context, pushrev.Options{
			LocalPath:   s.Scene.Dir,
			Credentials: actions.Credentials{RemoteURL: bare},
			RefType:     txn.RefBranch,
			RefName:     "ci",
			SafePath:    true,
		})
		require.NoError(t, err)
		global, err := os.ReadFile(s.Scene.GlobalConfigPath)
		require.NoError(t, err)
		require.NotContains(t, string(global), "safe")
	})

	t.Run("rejects unknown reference types", func(t *testing.T) {
		s, bare := newScenario(t)
		err := pushrev.Action(s.Context, pushrev.Options{
			LocalPath:   s.Scene.Dir,
			Credentials: actions.Credentials{RemoteURL: bare},
			RefType:     txn.RefType("note"),
		})
		require.ErrorIs(t, err, gchlerrors.ErrInvariant)
	})

	t.Run("warns when no password is available", func(t *testing.T) {
		t.Setenv(txn.DefaultPasswordVariable, "")
		require.NoError(t, os.Unsetenv(txn.DefaultPasswordVariable))
		s := scenario.NewScenario(t, testhelpers.BasicSceneSetup)
		bare := s.BareRemote("origin")

		err := pushrev.Action(s.Context, pushrev.Options{
			LocalPath:   s.Scene.Dir,
			Credentials: actions.Credentials{RemoteURL: bare},
			RefType:     txn.RefTag,
			RefName:     "v1",
		})
		require.NoError(t, err)
		s.ExpectLog("No password given")
	})
}
