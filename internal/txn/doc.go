// Package txn is the scoped transactional mutation engine.
//
// It patches a git repository's configuration and reference namespace for the
// duration of one operation and undoes every side effect on the way out:
//   - ConfigTransaction overrides configuration options and restores them from a ConfigSnapshot
//   - SigningScope stages a signing key file and the matching gpg.* configuration
//   - RefTransaction creates a reference, moving colliding references to backup tags
//   - EphemeralRemote creates a uniquely named remote for one push
//   - CredentialChannel hands a secret to git through a freshly named environment variable
//   - WorkspaceGuard stashes the worktree and restores HEAD after a commit amend
//
// Scopes are entered on a Stack and released in reverse order on every exit
// path. A release that fails is logged and reported but never stops the
// remaining releases from running.
//
// The package talks to the repository only through the store interfaces in
// store.go, implemented by internal/git.
package txn
