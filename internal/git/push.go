package git

import (
	"context"
	"errors"
	"strings"

	"github.com/chainguard-dev/clog"

	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/txn"
)

// Push pushes refspecs to a remote with git push --porcelain. Credential
// helpers configured for the remote URL run as usual; interactive prompts
// are disabled. Rejected references are reported as a *errors.PushError.
func (r *Repository) Push(ctx context.Context, remote string, force bool, refspecs ...string) ([]txn.PushResult, error) {
	args := []string{"push", "--porcelain"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote)
	args = append(args, refspecs...)

	output, err := r.runner.RunWithEnv(ctx, []string{"GIT_TERMINAL_PROMPT=0"}, args...)
	if err != nil {
		var cmdErr *gchlerrors.GitCommandError
		if errors.As(err, &cmdErr) {
			output = cmdErr.Stdout
		}
	}

	results := ParsePorcelainPush(output)
	log := clog.FromContext(ctx)
	var rejected []txn.PushResult
	for _, res := range results {
		if res.OK() {
			log.Infof("%s -> %s %s", res.From, res.To, res.Summary)
		} else {
			rejected = append(rejected, res)
		}
	}

	if err != nil || len(rejected) > 0 {
		return results, &gchlerrors.PushError{Remote: remote, Rejected: rejected, Err: err}
	}
	return results, nil
}

// ParsePorcelainPush parses the reference lines of git push --porcelain:
//
//	<flag> TAB <from>:<to> TAB <summary> [(<reason>)]
func ParsePorcelainPush(output string) []txn.PushResult {
	var results []txn.PushResult
	for _, line := range strings.Split(output, "\n") {
		if len(line) < 3 || line[1] != '\t' {
			continue
		}
		fields := strings.SplitN(line[2:], "\t", 2)
		from, to, found := strings.Cut(fields[0], ":")
		if !found {
			continue
		}
		res := txn.PushResult{Flag: line[0], From: from, To: to}
		if len(fields) > 1 {
			res.Summary = strings.TrimSpace(fields[1])
		}
		results = append(results, res)
	}
	return results
}
