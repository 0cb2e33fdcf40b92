// Package scenario provides a high-level test scenario that combines a Scene,
// an opened Repository, and a runtime Context to provide a terse API for
// action and CLI tests.
package scenario

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gchl.dev/gchl/internal/config"
	"gchl.dev/gchl/internal/git"
	"gchl.dev/gchl/internal/output"
	"gchl.dev/gchl/internal/runtime"
	"gchl.dev/gchl/testhelpers"
)

// Scenario represents a high-level test scenario. Log output of the Context
// is captured in Log and data output in Stdout; step outputs go to a file
// read back with Outputs.
type Scenario struct {
	T          *testing.T
	Scene      *testhelpers.Scene
	Repo       *git.Repository
	Context    *runtime.Context
	Log        *bytes.Buffer
	Stdout     *bytes.Buffer
	OutputPath string
	BinaryPath string
}

// NewScenario creates a new Scenario with an optional setup function.
// NOTE: This function is NOT safe for parallel tests as it uses t.Setenv.
func NewScenario(t *testing.T, setup testhelpers.SceneSetup) *Scenario {
	t.Helper()

	s := NewRepositoryless(t)
	s.Scene = testhelpers.NewScene(t, setup)
	repo, err := git.OpenRepository(s.Scene.Dir)
	require.NoError(t, err)
	s.Repo = repo
	return s
}

// NewRepositoryless creates a Scenario without a repository, for commands
// that only talk to CI servers.
func NewRepositoryless(t *testing.T) *Scenario {
	t.Helper()

	var log, stdout bytes.Buffer
	splog, err := output.NewSplogWithOptions(output.Options{Writer: &log, Debug: true})
	require.NoError(t, err)

	outputPath := filepath.Join(t.TempDir(), "github_output")
	ctx := runtime.NewContext(context.Background(), splog, &config.Env{GitHubOutput: outputPath})
	ctx.Stdout = &stdout

	return &Scenario{
		T:          t,
		Context:    ctx,
		Log:        &log,
		Stdout:     &stdout,
		OutputPath: outputPath,
	}
}

// WithInitialCommit creates an initial commit on the main branch.
func (s *Scenario) WithInitialCommit() *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.CreateChangeAndCommit("initial", "init"))
	return s
}

// WithUncommittedChange creates an uncommitted change in the repository.
func (s *Scenario) WithUncommittedChange(name string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.CreateChange("unstaged content", name, true))
	return s
}

// WithPassword sets the password handed to git through the environment.
func (s *Scenario) WithPassword(password string) *Scenario {
	s.Context.Env.Password = &password
	return s
}

// RunGit runs a git command in the scenario's repository.
func (s *Scenario) RunGit(args ...string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.RunGitCommand(args...))
	return s
}

// Git runs a git command and returns its trimmed output.
func (s *Scenario) Git(args ...string) string {
	s.T.Helper()
	out, err := s.Scene.Repo.RunGitCommandAndGetOutput(args...)
	require.NoError(s.T, err)
	return out
}

// Commit creates an empty commit with the given message.
func (s *Scenario) Commit(message string) *Scenario {
	s.T.Helper()
	return s.RunGit("commit", "--allow-empty", "-m", message)
}

// CommitChange creates a file change and commits it.
func (s *Scenario) CommitChange(name, message string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.CreateChangeAndCommit(message, name))
	return s
}

// Checkout checks out a branch.
func (s *Scenario) Checkout(branch string) *Scenario {
	s.T.Helper()
	require.NoError(s.T, s.Scene.Repo.CheckoutBranch(branch))
	return s
}

// BareRemote creates a bare repository next to the scene and returns its path.
func (s *Scenario) BareRemote(name string) string {
	s.T.Helper()
	dir, err := s.Scene.Repo.CreateBareRemote(name)
	require.NoError(s.T, err)
	return dir
}

// Outputs returns the step outputs written so far.
func (s *Scenario) Outputs() string {
	s.T.Helper()
	data, err := os.ReadFile(s.OutputPath)
	if errors.Is(err, os.ErrNotExist) {
		return ""
	}
	require.NoError(s.T, err)
	return string(data)
}

// ExpectOutput asserts that a single-line step output was written.
func (s *Scenario) ExpectOutput(name, value string) *Scenario {
	s.T.Helper()
	require.Contains(s.T, strings.Split(s.Outputs(), "\n"), name+"="+value)
	return s
}

// ExpectLog asserts that the captured log contains text.
func (s *Scenario) ExpectLog(text string) *Scenario {
	s.T.Helper()
	require.Contains(s.T, s.Log.String(), text)
	return s
}

// ExpectBranch asserts that the current branch is as expected.
func (s *Scenario) ExpectBranch(expected string) *Scenario {
	s.T.Helper()
	actual, err := s.Scene.Repo.CurrentBranchName()
	require.NoError(s.T, err)
	require.Equal(s.T, expected, actual)
	return s
}

// ExpectClean asserts that the working tree has no changes.
func (s *Scenario) ExpectClean() *Scenario {
	s.T.Helper()
	require.Empty(s.T, s.Git("status", "--porcelain"))
	return s
}

// WithBinaryPath sets the path to the gchl binary for RunCli methods.
func (s *Scenario) WithBinaryPath(path string) *Scenario {
	s.BinaryPath = path
	return s
}

// RunCli executes the gchl binary in the scene directory, if any, and
// returns its combined output and exit code.
func (s *Scenario) RunCli(env []string, args ...string) (string, int) {
	s.T.Helper()
	if s.BinaryPath == "" {
		s.T.Fatal("BinaryPath not set. Call WithBinaryPath first.")
	}
	cmd := exec.Command(s.BinaryPath, args...)
	if s.Scene != nil {
		cmd.Dir = s.Scene.Dir
	}
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), 0
	}
	var exitErr *exec.ExitError
	require.ErrorAs(s.T, err, &exitErr, "gchl %v\nOutput: %s", args, string(out))
	return string(out), exitErr.ExitCode()
}
