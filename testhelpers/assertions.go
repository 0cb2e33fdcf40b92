// Package testhelpers provides testing utilities for gchl, including a scene
// system, Git repository helpers, mock CI servers and custom assertions.
package testhelpers

import (
	"os/exec"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Must is a generic helper function that panics if err is not nil,
// otherwise returns the value. This is useful for test setup code
// where errors are not expected and should halt execution immediately.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

func listRefs(t *testing.T, gitArgs []string, prefix string) []string {
	t.Helper()

	args := append(gitArgs, "for-each-ref", prefix, "--format=%(refname:lstrip=2)")
	cmd := exec.Command("git", args...)
	output, err := cmd.Output()
	require.NoError(t, err, "Failed to list %s", prefix)

	names := []string{}
	for _, n := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// ExpectBranches asserts that the repository has exactly the expected branches.
func ExpectBranches(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()
	sort.Strings(expected)
	require.Equal(t, expected, listRefs(t, []string{"-C", repo.Dir}, "refs/heads/"), "Branches do not match")
}

// ExpectTags asserts that the repository has exactly the expected tags.
func ExpectTags(t *testing.T, repo *GitRepo, expected []string) {
	t.Helper()
	sort.Strings(expected)
	require.Equal(t, expected, listRefs(t, []string{"-C", repo.Dir}, "refs/tags/"), "Tags do not match")
}

// ExpectRemoteRefs asserts the references under prefix of a bare repository,
// for example ExpectRemoteRefs(t, bare, "refs/tags/", "v1").
func ExpectRemoteRefs(t *testing.T, bareDir, prefix string, expected ...string) {
	t.Helper()
	if expected == nil {
		expected = []string{}
	}
	sort.Strings(expected)
	require.Equal(t, expected, listRefs(t, []string{"--git-dir", bareDir}, prefix), "Remote references do not match")
}

// ExpectUnchanged asserts that every reference points where it did
// before, where before was taken with ShowRefs.
func ExpectUnchanged(t *testing.T, repo *GitRepo, before string) {
	t.Helper()
	after, err := repo.ShowRefs()
	require.NoError(t, err)
	require.Equal(t, before, after, "References changed")
}

// LocalConfig returns the sorted key=value lines of the repository
// configuration. Restoring an option may move it within its section, so
// order is not compared.
func LocalConfig(t *testing.T, repo *GitRepo) string {
	t.Helper()
	out, err := repo.RunGitCommandAndGetOutput("config", "--local", "--list")
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// ExpectConfigUnchanged asserts that the repository configuration holds the
// same values as before, where before was taken with LocalConfig.
func ExpectConfigUnchanged(t *testing.T, repo *GitRepo, before string) {
	t.Helper()
	require.Equal(t, before, LocalConfig(t, repo), "Configuration changed")
}
