package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"gchl.dev/gchl/internal/cli"
	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/output"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the exit code. Scopes entered by
// a command are released before it returns, also when interrupted.
func run(ctx context.Context) int {
	rootCmd := cli.NewRootCmd(version)
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr *gchlerrors.ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	output.NewSplog().Error("%v", err)
	return 1
}
