package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	sharedBinaryPath string
	binaryOnce       sync.Once
	binaryErr        error
)

// GetSharedBinaryPath returns the path of a gchl binary built once per test
// process from ./cmd/gchl.
func GetSharedBinaryPath() (string, error) {
	binaryOnce.Do(func() {
		sharedBinaryPath, binaryErr = buildBinary()
	})
	return sharedBinaryPath, binaryErr
}

// RequireBinary returns the shared binary path and skips the test when the
// go toolchain is not available to build it.
func RequireBinary(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}
	path, err := GetSharedBinaryPath()
	if err != nil {
		t.Fatalf("Failed to build gchl binary: %v", err)
	}
	return path
}

// buildBinary builds the gchl binary into a temporary directory.
func buildBinary() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	moduleRoot := findModuleRoot(wd)
	if moduleRoot == "" {
		return "", fmt.Errorf("could not find module root (go.mod) starting from %s", wd)
	}

	tmpDir, err := os.MkdirTemp("", "gchl-test-binary-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	binaryPath := filepath.Join(tmpDir, "gchl")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/gchl")
	cmd.Dir = moduleRoot
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", fmt.Errorf("failed to build: %s: %w", string(output), err)
	}
	return binaryPath, nil
}

// findModuleRoot walks up the directory tree from startDir to find the
// directory containing go.mod.
func findModuleRoot(startDir string) string {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// TestMain runs the tests of a package and removes the shared binary
// afterwards. Packages can use this by calling testhelpers.TestMain(m, nil).
func TestMain(m *testing.M, cleanup func()) {
	code := m.Run()
	if sharedBinaryPath != "" {
		_ = os.RemoveAll(filepath.Dir(sharedBinaryPath))
	}
	if cleanup != nil {
		cleanup()
	}
	os.Exit(code)
}
