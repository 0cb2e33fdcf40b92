package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Output is a single step output
type Output struct {
	Name  string
	Value string
}

// StepOutputs appends step outputs to a GitHub Actions output file
type StepOutputs struct {
	path string
}

// NewStepOutputs creates a writer for path; an empty path discards outputs
func NewStepOutputs(path string) *StepOutputs {
	return &StepOutputs{path: path}
}

// Enabled reports whether outputs go anywhere
func (s *StepOutputs) Enabled() bool {
	return s.path != ""
}

// Write appends outputs in one write. Multi-line values use the heredoc form
// with a random delimiter.
func (s *StepOutputs) Write(outputs ...Output) error {
	if !s.Enabled() || len(outputs) == 0 {
		return nil
	}

	var b strings.Builder
	for _, o := range outputs {
		if strings.ContainsAny(o.Value, "\r\n") {
			delimiter := "ghadelimiter_" + uuid.NewString()
			fmt.Fprintf(&b, "%s<<%s\n%s\n%s\n", o.Name, delimiter, o.Value, delimiter)
			continue
		}
		fmt.Fprintf(&b, "%s=%s\n", o.Name, o.Value)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open step output file: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write step outputs: %w", err)
	}
	return f.Close()
}
