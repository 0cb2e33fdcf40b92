package testhelpers

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// Scene represents a test scene with a temporary directory and Git repository.
type Scene struct {
	Dir  string
	Repo *GitRepo
	// GlobalConfigPath is exported as GIT_CONFIG_GLOBAL for the duration of the test
	GlobalConfigPath string
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a new test scene with a temporary directory and Git repository.
// Tests are skipped when the git binary is not available.
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()
	RequireGit(t)

	tmpDir := t.TempDir()
	globalConfig := filepath.Join(tmpDir, "gitconfig")
	if err := os.WriteFile(globalConfig, nil, 0600); err != nil {
		t.Fatalf("Failed to write global config: %v", err)
	}
	t.Setenv("GIT_CONFIG_GLOBAL", globalConfig)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	dir := filepath.Join(tmpDir, "repo")
	repo, err := NewGitRepo(dir, globalConfig)
	if err != nil {
		t.Fatalf("Failed to create Git repo: %v", err)
	}

	scene := &Scene{
		Dir:              dir,
		Repo:             repo,
		GlobalConfigPath: globalConfig,
	}

	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}
	return scene
}

// BasicSceneSetup is a setup function that creates a basic scene with a single commit.
func BasicSceneSetup(scene *Scene) error {
	return scene.Repo.CreateChangeAndCommit("1", "1")
}

// RequireGit skips the test when the git binary is not on PATH.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}
