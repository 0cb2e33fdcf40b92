package txn_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"gchl.dev/gchl/internal/txn"
)

func TestConfigTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip restores repeated options in order", func(t *testing.T) {
		store := newFakeConfig()
		require.NoError(t, store.Add(txn.ScopeRepository, "remote \"origin\"", "url", "https://example.com/a.git"))
		require.NoError(t, store.Add(txn.ScopeRepository, "remote \"origin\"", "fetch", "+refs/heads/*:refs/remotes/origin/*"))
		require.NoError(t, store.Add(txn.ScopeRepository, "remote \"origin\"", "fetch", "+refs/tags/*:refs/tags/*"))
		require.NoError(t, store.Add(txn.ScopeRepository, "user", "name", "Jane"))
		require.NoError(t, store.Add(txn.ScopeGlobal, "safe", "directory", "/srv/one"))
		before := map[txn.ConfigScope]map[string][]configEntry{
			txn.ScopeRepository: store.dump(txn.ScopeRepository),
			txn.ScopeGlobal:     store.dump(txn.ScopeGlobal),
		}

		override := txn.ConfigOverride{}.
			Set(txn.ScopeRepository, "remote \"origin\"", "fetch", "+refs/heads/main:refs/heads/main").
			Set(txn.ScopeRepository, "user", "name", "g-push-rev").
			Set(txn.ScopeRepository, "user", "email", "g-push-rev@git-ci-hub-lab").
			Set(txn.ScopeGlobal, "safe", "directory", "/srv/two")
		tx := txn.NewConfigTransaction(store, override)
		require.NoError(t, tx.Apply(ctx))

		fetch, ok, err := store.GetAll(txn.ScopeRepository, "remote \"origin\"", "fetch")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []string{"+refs/heads/main:refs/heads/main"}, fetch)
		email, ok, err := store.GetAll(txn.ScopeRepository, "user", "email")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []string{"g-push-rev@git-ci-hub-lab"}, email)

		snapshot := tx.Snapshot()
		require.True(t, snapshot.Existed(txn.ScopeRepository, "user"))
		prior, ok := snapshot.Values(txn.ScopeRepository, "remote \"origin\"", "fetch")
		require.True(t, ok)
		require.Len(t, prior, 2)
		_, ok = snapshot.Values(txn.ScopeRepository, "user", "email")
		require.False(t, ok)

		require.NoError(t, tx.Revert(ctx))

		fetch, _, err = store.GetAll(txn.ScopeRepository, "remote \"origin\"", "fetch")
		require.NoError(t, err)
		require.Equal(t, []string{"+refs/heads/*:refs/remotes/origin/*", "+refs/tags/*:refs/tags/*"}, fetch)
		_, ok, err = store.GetAll(txn.ScopeRepository, "user", "email")
		require.NoError(t, err)
		require.False(t, ok)
		name, _, err := store.GetAll(txn.ScopeRepository, "user", "name")
		require.NoError(t, err)
		require.Equal(t, []string{"Jane"}, name)
		dir, _, err := store.GetAll(txn.ScopeGlobal, "safe", "directory")
		require.NoError(t, err)
		require.Equal(t, []string{"/srv/one"}, dir)
		require.Equal(t, before[txn.ScopeRepository], store.dump(txn.ScopeRepository))
		require.Equal(t, before[txn.ScopeGlobal], store.dump(txn.ScopeGlobal))
	})

	t.Run("removes sections that did not exist", func(t *testing.T) {
		store := newFakeConfig()
		override := txn.CredentialOverride("https://example.com/repo.git", "token", "GCHL_PASSWORD")
		tx := txn.NewConfigTransaction(store, override)

		require.NoError(t, tx.Acquire(ctx))
		ok, err := store.HasSection(txn.ScopeRepository, `credential "https://example.com/repo.git"`)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, tx.Release(ctx))
		ok, err = store.HasSection(txn.ScopeRepository, `credential "https://example.com/repo.git"`)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("failed capture writes nothing", func(t *testing.T) {
		store := newFakeConfig()
		readErr := errors.New("unreadable")
		store.fail = func(op, section, _ string) error {
			if op == "has" && section == "user" {
				return readErr
			}
			return nil
		}
		tx := txn.NewConfigTransaction(store, txn.ConfigOverride{}.
			Set(txn.ScopeRepository, "gpg", "format", "ssh").
			Set(txn.ScopeRepository, "user", "signingkey", "/tmp/key"))

		require.ErrorIs(t, tx.Apply(ctx), readErr)
		require.Empty(t, store.dump(txn.ScopeRepository))
		require.NoError(t, tx.Revert(ctx))
	})

	t.Run("partial apply is reverted", func(t *testing.T) {
		store := newFakeConfig()
		require.NoError(t, store.Add(txn.ScopeRepository, "user", "name", "Jane"))
		writeErr := errors.New("disk full")
		store.fail = func(op, section, option string) error {
			if op == "set" && section == "user" && option == "signingkey" {
				return writeErr
			}
			return nil
		}
		tx := txn.NewConfigTransaction(store, txn.ConfigOverride{}.
			Set(txn.ScopeRepository, "gpg", "format", "ssh").
			Set(txn.ScopeRepository, "user", "name", "Signer").
			Set(txn.ScopeRepository, "user", "signingkey", "/tmp/key"))

		require.ErrorIs(t, tx.Apply(ctx), writeErr)
		store.fail = nil
		require.NoError(t, tx.Revert(ctx))

		require.Equal(t, map[string][]configEntry{
			"user": {{option: "name", value: "Jane"}},
		}, store.dump(txn.ScopeRepository))
	})

	t.Run("revert continues after a failing section", func(t *testing.T) {
		store := newFakeConfig()
		tx := txn.NewConfigTransaction(store, txn.ConfigOverride{}.
			Set(txn.ScopeRepository, "a", "x", "1").
			Set(txn.ScopeRepository, "b", "y", "2"))
		require.NoError(t, tx.Apply(ctx))

		removeErr := errors.New("locked")
		store.fail = func(op, section, _ string) error {
			if op == "remove" && section == "b" {
				return removeErr
			}
			return nil
		}
		err := tx.Revert(ctx)
		require.ErrorIs(t, err, removeErr)
		ok, _ := store.HasSection(txn.ScopeRepository, "a")
		require.False(t, ok)

		store.fail = nil
		require.NoError(t, tx.Revert(ctx), "second revert is a no-op")
		ok, _ = store.HasSection(txn.ScopeRepository, "b")
		require.True(t, ok)
	})

	t.Run("apply twice is refused", func(t *testing.T) {
		tx := txn.NewConfigTransaction(newFakeConfig(), txn.ConfigOverride{}.Set(txn.ScopeRepository, "a", "x", "1"))
		require.NoError(t, tx.Apply(ctx))
		require.Error(t, tx.Apply(ctx))
	})
}

func TestConfigOverride(t *testing.T) {
	o := txn.ConfigOverride{}.
		Set(txn.ScopeRepository, "user", "name", "a").
		Merge(txn.ConfigOverride{}.
			Set(txn.ScopeRepository, "user", "name", "b").
			Set(txn.ScopeGlobal, "safe", "directory", "/x"))

	values, ok := o.Get(txn.ScopeRepository, "user", "name")
	require.True(t, ok)
	require.Equal(t, []string{"b"}, values)
	values, ok = o.Get(txn.ScopeGlobal, "safe", "directory")
	require.True(t, ok)
	require.Equal(t, []string{"/x"}, values)
	_, ok = o.Get(txn.ScopeGlobal, "user", "name")
	require.False(t, ok)
}
