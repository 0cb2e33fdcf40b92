package txn

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/crypto/ssh"

	gchlerrors "gchl.dev/gchl/internal/errors"
)

// SigningFormat selects how commits and tags are signed
type SigningFormat string

const (
	// SigningNone disables signing
	SigningNone SigningFormat = "none"
	// SigningSSH signs with an SSH private key
	SigningSSH SigningFormat = "ssh"
)

// SigningFormats lists the accepted format names
var SigningFormats = []SigningFormat{SigningNone, SigningSSH}

// ParseSigningFormat validates a user supplied format name. Empty means none.
func ParseSigningFormat(s string) (SigningFormat, error) {
	switch SigningFormat(s) {
	case "", SigningNone:
		return SigningNone, nil
	case SigningSSH:
		return SigningSSH, nil
	}
	return "", gchlerrors.NewSigningError(s, fmt.Errorf("unsupported format, expected one of %v", SigningFormats))
}

// SigningMaterial is the key and message used for one commit amend or tag
type SigningMaterial struct {
	Format  SigningFormat
	Key     []byte
	Message string
}

// Enabled reports whether the material asks for a signature
func (m SigningMaterial) Enabled() bool {
	return m.Format != "" && m.Format != SigningNone
}

// SigningScope stages a key file and the gpg.* configuration that makes git
// sign with it
type SigningScope struct {
	store    ConfigStore
	fs       billy.Filesystem
	material SigningMaterial

	keyFile string
	keyPath string
	config  *ConfigTransaction
}

// NewSigningScope creates a signing scope that writes key files to fs
func NewSigningScope(store ConfigStore, fs billy.Filesystem, material SigningMaterial) *SigningScope {
	return &SigningScope{store: store, fs: fs, material: material}
}

// Enabled reports whether acquiring the scope changes anything
func (s *SigningScope) Enabled() bool {
	return s.material.Enabled()
}

// KeyPath returns the absolute path of the staged key file, empty when none is staged
func (s *SigningScope) KeyPath() string {
	return s.keyPath
}

// Acquire validates the key, writes it to a private temporary file and points
// the repository configuration at it
func (s *SigningScope) Acquire(ctx context.Context) error {
	switch s.material.Format {
	case "", SigningNone:
		return nil
	case SigningSSH:
	default:
		return gchlerrors.NewSigningError(string(s.material.Format),
			gchlerrors.NewInvariantError("signing format", string(s.material.Format)))
	}

	if _, err := ssh.ParseRawPrivateKey(s.material.Key); err != nil {
		return gchlerrors.NewSigningError(string(s.material.Format), fmt.Errorf("invalid private key: %w", err))
	}

	if err := s.writeKey(); err != nil {
		return gchlerrors.NewSigningError(string(s.material.Format), err)
	}
	clog.FromContext(ctx).Debugf("Staged signing key at %s", s.keyPath)

	override := ConfigOverride{}.
		Set(ScopeRepository, "gpg", "format", string(s.material.Format)).
		Set(ScopeRepository, "user", "signingkey", s.keyPath)
	s.config = NewConfigTransaction(s.store, override)
	return s.config.Apply(ctx)
}

func (s *SigningScope) writeKey() error {
	f, err := util.TempFile(s.fs, ".", "gchl-")
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	s.keyFile = f.Name()
	s.keyPath = s.fs.Join(s.fs.Root(), f.Name())

	key := s.material.Key
	// ssh-keygen rejects keys without a trailing newline
	if !bytes.HasSuffix(key, []byte("\n")) {
		key = append(bytes.Clone(key), '\n')
	}
	if _, err := f.Write(key); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// Release removes the key file and then reverts the configuration
func (s *SigningScope) Release(ctx context.Context) error {
	var errs []error
	if s.keyFile != "" {
		if err := s.fs.Remove(s.keyFile); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove key file %s: %w", s.keyPath, err))
		}
		s.keyFile = ""
		s.keyPath = ""
	}
	if s.config != nil {
		if err := s.config.Revert(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
