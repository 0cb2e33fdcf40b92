// Package cli defines the gchl cobra commands. Commands parse flags and the
// environment into the Options of an action in internal/actions and run it
// with a runtime.Context.
package cli
