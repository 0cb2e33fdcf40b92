// Package actions holds what the command actions in its subpackages share:
// remote credentials, reference naming and pipeline reporting.
package actions
