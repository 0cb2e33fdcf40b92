package actions

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/internal/runtime"
	"gchl.dev/gchl/internal/txn"
)

// DefaultUsername is the user name sent to HTTP remotes
const DefaultUsername = "token"

// Credentials identify the pushing user to a remote
type Credentials struct {
	// RemoteURL is the repository to push to
	RemoteURL string
	// Username defaults to DefaultUsername
	Username string
	// Password is handed to git through a generated environment variable.
	// When nil git reads the ambient GCHL_PASSWORD variable.
	Password *string
}

// Channel returns the channel handing the password to git
func (c Credentials) Channel() (*txn.CredentialChannel, error) {
	return txn.NewCredentialChannel(nil, c.Password)
}

// Override returns the configuration pointing git at channel
func (c Credentials) Override(channel *txn.CredentialChannel) txn.ConfigOverride {
	username := c.Username
	if username == "" {
		username = DefaultUsername
	}
	return txn.CredentialOverride(c.RemoteURL, username, channel.Variable())
}

// WarnMissingPassword warns when neither an explicit password nor the
// ambient password variable is available
func WarnMissingPassword(ctx *runtime.Context, c Credentials) {
	if c.Password != nil || ctx.Env.Password != nil {
		return
	}
	ctx.Splog.Warn("No password given and $%s is not set, git may fail to authenticate", txn.DefaultPasswordVariable)
}

// QualifiedRef returns the full reference name, like refs/tags/v1
func QualifiedRef(refType txn.RefType, name string) (string, error) {
	switch refType {
	case txn.RefBranch:
		return plumbing.NewBranchReferenceName(name).String(), nil
	case txn.RefTag:
		return plumbing.NewTagReferenceName(name).String(), nil
	default:
		return "", gchlerrors.NewInvariantError("reference type", string(refType))
	}
}

// Title returns the reference type for the start of a sentence
func Title(refType txn.RefType) string {
	s := string(refType)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ShortSHA abbreviates a commit for messages and default names
func ShortSHA(h plumbing.Hash) string {
	return h.String()[:8]
}

// DefaultRefName returns the name used when none is given
func DefaultRefName(refType txn.RefType, commit plumbing.Hash) string {
	return fmt.Sprintf("gchl-%s-%s", refType, ShortSHA(commit))
}
