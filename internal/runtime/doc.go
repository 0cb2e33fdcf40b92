// Package runtime provides the execution context for gchl commands.
//
// It encapsulates shared dependencies needed by actions, such as the
// logger, the environment and the step output file.
package runtime
