package deleteref_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"gchl.dev/gchl/internal/actions"
	"gchl.dev/gchl/internal/actions/deleteref"
	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/txn"
	"gchl.dev/gchl/testhelpers"
	"gchl.dev/gchl/testhelpers/scenario"
)

func TestDeleteRef(t *testing.T) {
	setup := func(t *testing.T) (*scenario.Scenario, string) {
		s := scenario.NewScenario(t, testhelpers.BasicSceneSetup).WithPassword("secret")
		bare := s.BareRemote("origin")
		s.RunGit("push", bare, "main:refs/heads/feature", "main:refs/tags/v1")
		return s, bare
	}

	t.Run("deletes tags and branches", func(t *testing.T) {
		s, bare := setup(t)
		tmp := t.TempDir()
		password := "secret"

		for _, ref := range []struct {
			refType txn.RefType
			name    string
		}{{txn.RefTag, "v1"}, {txn.RefBranch, "feature"}} {
			err := deleteref.Action(s.Context, deleteref.Options{
				Credentials: actions.Credentials{RemoteURL: bare, Password: &password},
				RefType:     ref.refType,
				RefName:     ref.name,
				TempDir:     tmp,
			})
			require.NoError(t, err)
		}

		testhelpers.ExpectRemoteRefs(t, bare, "refs/tags/")
		testhelpers.ExpectRemoteRefs(t, bare, "refs/heads/")
		s.ExpectLog("Tag 'v1' is successfully deleted").ExpectLog("Branch 'feature' is successfully deleted")

		entries, err := os.ReadDir(tmp)
		require.NoError(t, err)
		require.Empty(t, entries)
	})

	t.Run("rejected deletions fail unless forced", func(t *testing.T) {
		s, bare := setup(t)
		s.RunGit("--git-dir", bare, "config", "receive.denyDeletes", "true")
		opts := deleteref.Options{
			Credentials: actions.Credentials{RemoteURL: bare},
			RefType:     txn.RefTag,
			RefName:     "v1",
			TempDir:     t.TempDir(),
		}
		require.ErrorIs(t, deleteref.Action(s.Context, opts), gchlerrors.ErrPush)
		testhelpers.ExpectRemoteRefs(t, bare, "refs/tags/", "v1")

		opts.Force = true
		require.NoError(t, deleteref.Action(s.Context, opts))
		s.ExpectLog("Failed to delete tag v1")
		require.NotContains(t, s.Log.String(), "successfully deleted")
		testhelpers.ExpectRemoteRefs(t, bare, "refs/tags/", "v1")
	})

	t.Run("rejects unknown reference types", func(t *testing.T) {
		s, bare := setup(t)
		err := deleteref.Action(s.Context, deleteref.Options{
			Credentials: actions.Credentials{RemoteURL: bare},
			RefType:     txn.RefType("note"),
			RefName:     "x",
		})
		require.ErrorIs(t, err, gchlerrors.ErrInvariant)
	})
}
