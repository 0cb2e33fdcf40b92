// Package apideleteref deletes a branch or tag through a forge API, for
// repositories that gchl cannot push to.
package apideleteref

import (
	"gchl.dev/gchl/internal/actions"
	"gchl.dev/gchl/internal/ci"
	"gchl.dev/gchl/internal/runtime"
	"gchl.dev/gchl/internal/txn"
)

// Options contains options for deleting a reference
type Options struct {
	Deleter ci.RefDeleter
	RefType txn.RefType
	RefName string
	// Force turns a failed deletion into a warning
	Force bool
}

// Action deletes the reference
func Action(ctx *runtime.Context, opts Options) error {
	if _, err := actions.QualifiedRef(opts.RefType, opts.RefName); err != nil {
		return err
	}
	if err := opts.Deleter.DeleteRef(ctx.Context, opts.RefType, opts.RefName); err != nil {
		if !opts.Force {
			return err
		}
		ctx.Splog.Warn("Failed to delete %s %s: %v", opts.RefType, opts.RefName, err)
		return nil
	}
	ctx.Splog.Info("%s '%s' is successfully deleted", actions.Title(opts.RefType), opts.RefName)
	return nil
}
