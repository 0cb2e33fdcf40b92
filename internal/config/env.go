package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Env holds everything gchl reads from the environment. Secrets are taken
// from here rather than from flags so they never show up in process listings.
type Env struct {
	// Password is the secret for the remote; nil when not set at all
	Password *string `env:"GCHL_PASSWORD,noinit"`
	// RevSigningKey is the base64 encoded key used to sign revisions
	RevSigningKey string `env:"GCHL_REV_SIGNING_KEY"`
	// RefSigningKey is the base64 encoded key used to sign tags
	RefSigningKey string `env:"GCHL_REF_SIGNING_KEY"`

	// GitHubOutput is the step output file of a GitHub Actions job
	GitHubOutput string `env:"GITHUB_OUTPUT"`

	Debug         bool   `env:"GCHL_DEBUG,default=false"`
	LogFile       string `env:"GCHL_LOG_FILE"`
	LogMaxSize    int    `env:"GCHL_LOG_MAX_SIZE,default=1"`
	LogMaxBackups int    `env:"GCHL_LOG_MAX_BACKUPS,default=2"`
	LogMaxAge     int    `env:"GCHL_LOG_MAX_AGE,default=30"`
}

// LoadEnv reads Env from the process environment
func LoadEnv(ctx context.Context) (*Env, error) {
	return LoadEnvFrom(ctx, envconfig.OsLookuper())
}

// LoadEnvFrom reads Env through lookuper
func LoadEnvFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Env, error) {
	var env Env
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &env, nil
}

// DecodeKey decodes base64 key material; whitespace and line breaks are
// ignored so keys can be pasted as wrapped blocks
func DecodeKey(encoded string) ([]byte, error) {
	encoded = strings.Join(strings.Fields(encoded), "")
	if encoded == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("signing key is not valid base64: %w", err)
	}
	return key, nil
}
