// Package config reads the environment gchl runs in.
//
// It handles:
//   - Secrets and defaults passed through environment variables (Env)
//   - Step outputs for GitHub Actions, appended to $GITHUB_OUTPUT (StepOutputs)
package config
