package txn

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// DefaultPasswordVariable is the environment variable read when no secret is passed explicitly
const DefaultPasswordVariable = "GCHL_PASSWORD"

// Environ is the process environment
type Environ interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
	Unset(key string) error
}

// OSEnviron is the real process environment
type OSEnviron struct{}

func (OSEnviron) Lookup(key string) (string, bool) { return os.LookupEnv(key) }
func (OSEnviron) Set(key, value string) error      { return os.Setenv(key, value) }
func (OSEnviron) Unset(key string) error           { return os.Unsetenv(key) }

// CredentialChannel hands a secret to git through an environment variable
// referenced by a credential helper
type CredentialChannel struct {
	env      Environ
	secret   *string
	variable string
	set      bool
}

// NewCredentialChannel creates a channel. Without a secret the ambient
// DefaultPasswordVariable is used and never touched; with one a fresh
// variable name is generated.
func NewCredentialChannel(env Environ, secret *string) (*CredentialChannel, error) {
	if env == nil {
		env = OSEnviron{}
	}
	c := &CredentialChannel{env: env, secret: secret, variable: DefaultPasswordVariable}
	if secret != nil {
		name, err := newVariableName(rand.Reader)
		if err != nil {
			return nil, err
		}
		c.variable = name
	}
	return c, nil
}

// newVariableName returns a lowercase letter followed by 31 hex digits, all
// drawn from one random uuid
func newVariableName(r io.Reader) (string, error) {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to generate credential variable name: %w", err)
	}
	digits := hex.EncodeToString(id[:])
	return string(rune('a'+id[0]%26)) + digits[1:], nil
}

// Variable returns the name of the environment variable holding the secret
func (c *CredentialChannel) Variable() string {
	return c.variable
}

// Acquire sets the generated variable
func (c *CredentialChannel) Acquire(_ context.Context) error {
	if c.secret == nil {
		return nil
	}
	if err := c.env.Set(c.variable, *c.secret); err != nil {
		return fmt.Errorf("failed to set credential variable: %w", err)
	}
	c.set = true
	return nil
}

// Release unsets the variable if Acquire set it
func (c *CredentialChannel) Release(_ context.Context) error {
	if !c.set {
		return nil
	}
	if err := c.env.Unset(c.variable); err != nil {
		return fmt.Errorf("failed to unset credential variable: %w", err)
	}
	c.set = false
	return nil
}

// CredentialOverride configures a credential helper for url that answers
// with username and the password read from variable
func CredentialOverride(url, username, variable string) ConfigOverride {
	section := fmt.Sprintf("credential %q", url)
	helper := fmt.Sprintf(`!f() { test "${1}" = get && echo "password=${%s}"; }; f`, variable)
	return ConfigOverride{}.
		Set(ScopeRepository, section, "username", username).
		Set(ScopeRepository, section, "helper", helper)
}
