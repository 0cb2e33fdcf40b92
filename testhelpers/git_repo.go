package testhelpers

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const textFileName = "test.txt"

// GitRepo represents a Git repository for testing purposes.
type GitRepo struct {
	Dir string
	// GlobalConfigPath is the file git uses as global configuration for this repository
	GlobalConfigPath string
}

// NewGitRepo initializes a new Git repository in the specified directory using 'git init'.
// Global configuration is redirected to globalConfigPath so tests never touch ~/.gitconfig.
func NewGitRepo(dir, globalConfigPath string) (*GitRepo, error) {
	repo := &GitRepo{Dir: dir, GlobalConfigPath: globalConfigPath}

	cmd := exec.Command("git", "-c", "init.defaultBranch=main", "-c", "core.autocrlf=false", "init", dir, "-b", "main")
	cmd.Env = repo.env()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w", err)
	}

	// Configure Git user (required for commits)
	if err := repo.runGitCommand("config", "user.name", "Test User"); err != nil {
		return nil, err
	}
	if err := repo.runGitCommand("config", "user.email", "test@example.com"); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *GitRepo) env() []string {
	return append(os.Environ(), "GIT_CONFIG_GLOBAL="+r.GlobalConfigPath, "GIT_CONFIG_NOSYSTEM=1")
}

// runGitCommand executes a git command in the repository directory.
func (r *GitRepo) runGitCommand(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = r.env()
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, output)
	}
	return nil
}

// RunGitCommand executes a git command and returns an error if it fails.
func (r *GitRepo) RunGitCommand(args ...string) error {
	return r.runGitCommand(args...)
}

// RunGitCommandAndGetOutput executes a git command and returns its trimmed output.
func (r *GitRepo) RunGitCommandAndGetOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = r.env()
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git command failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CreateChange creates a file change in the repository.
func (r *GitRepo) CreateChange(textValue string, prefix string, unstaged bool) error {
	fileName := textFileName
	if prefix != "" {
		fileName = prefix + "_" + fileName
	}
	filePath := filepath.Join(r.Dir, fileName)

	if err := os.WriteFile(filePath, []byte(textValue), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if !unstaged {
		return r.runGitCommand("add", filePath)
	}
	return nil
}

// CreateChangeAndCommit creates a file change and commits it.
func (r *GitRepo) CreateChangeAndCommit(textValue string, prefix string) error {
	if err := r.CreateChange(textValue, prefix, false); err != nil {
		return err
	}
	return r.runGitCommand("commit", "-m", textValue)
}

// CreateBranch creates a new branch without checking it out.
func (r *GitRepo) CreateBranch(name string) error {
	return r.runGitCommand("branch", name)
}

// CheckoutBranch checks out a branch.
func (r *GitRepo) CheckoutBranch(name string) error {
	return r.runGitCommand("checkout", name, "--")
}

// CreateAnnotatedTag creates an annotated tag at rev.
func (r *GitRepo) CreateAnnotatedTag(name, rev, message string) error {
	return r.runGitCommand("tag", "-a", "-m", message, name, rev)
}

// CurrentBranchName returns the name of the current branch, empty when detached.
func (r *GitRepo) CurrentBranchName() (string, error) {
	return r.RunGitCommandAndGetOutput("branch", "--show-current")
}

// GetRevision returns the SHA of a revision (branch, tag, or commit reference).
func (r *GitRepo) GetRevision(rev string) (string, error) {
	return r.RunGitCommandAndGetOutput("rev-parse", rev)
}

// ShowRefs returns `git show-ref` output: every reference with its raw target.
func (r *GitRepo) ShowRefs() (string, error) {
	out, err := r.RunGitCommandAndGetOutput("show-ref")
	if err != nil {
		// show-ref exits 1 when there are no references
		return "", nil
	}
	return out, nil
}

// ConfigFile returns the content of the repository configuration file.
func (r *GitRepo) ConfigFile() (string, error) {
	b, err := os.ReadFile(filepath.Join(r.Dir, ".git", "config"))
	return string(b), err
}

// CreateBareRemote creates a bare git repository to act as a remote.
// Returns the path to the bare repository; it is not added as a remote.
func (r *GitRepo) CreateBareRemote(name string) (string, error) {
	bareDir := r.Dir + "-" + name + ".git"

	cmd := exec.Command("git", "init", "--bare", bareDir)
	cmd.Env = r.env()
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to create bare repo: %w", err)
	}
	return bareDir, nil
}

// RemoteRevision returns the SHA a reference has in a bare remote, empty when absent.
func (r *GitRepo) RemoteRevision(bareDir, ref string) (string, error) {
	cmd := exec.Command("git", "--git-dir", bareDir, "rev-parse", "--verify", "--quiet", ref)
	cmd.Env = r.env()
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
