// Package git is the repository store behind the txn engine.
//
// Repository implements the txn store contracts on top of go-git and the git
// binary:
//   - configuration files per scope, read and written with go-git's config codec under a .lock file
//   - branches, tags and HEAD through the go-git reference storer
//   - annotated and signed tags, signed amends, pushes and stashes through git itself
//
// git is used wherever credential helpers or signing programs have to run.
package git
