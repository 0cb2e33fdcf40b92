package runtime

import (
	"context"
	"io"
	"os"

	"gchl.dev/gchl/internal/config"
	"gchl.dev/gchl/internal/output"
)

// Context provides access to logging, environment and outputs for commands
type Context struct {
	// Context carries cancellation and the clog logger for lower layers
	Context context.Context
	Splog   *output.Splog
	Env     *config.Env
	Outputs *config.StepOutputs
	// Stdout receives command data such as job traces
	Stdout io.Writer
}

// NewContext creates a context writing data to os.Stdout. The splog is
// installed as the clog logger of ctx.
func NewContext(ctx context.Context, splog *output.Splog, env *config.Env) *Context {
	if env == nil {
		env = &config.Env{}
	}
	return &Context{
		Context: splog.WithContext(ctx),
		Splog:   splog,
		Env:     env,
		Outputs: config.NewStepOutputs(env.GitHubOutput),
		Stdout:  os.Stdout,
	}
}

// GetContext reads the environment and sets up logging from it.
// debug forces debug output on top of GCHL_DEBUG; logFile overrides GCHL_LOG_FILE.
func GetContext(ctx context.Context, debug bool, logFile string) (*Context, error) {
	env, err := config.LoadEnv(ctx)
	if err != nil {
		return nil, err
	}
	if logFile == "" {
		logFile = env.LogFile
	}
	splog, err := output.NewSplogWithOptions(output.Options{
		Debug:      debug || env.Debug,
		LogFile:    logFile,
		MaxSize:    env.LogMaxSize,
		MaxBackups: env.LogMaxBackups,
		MaxAge:     env.LogMaxAge,
	})
	if err != nil {
		return nil, err
	}
	return NewContext(ctx, splog, env), nil
}

// Close releases the log file
func (c *Context) Close() error {
	return c.Splog.Close()
}
