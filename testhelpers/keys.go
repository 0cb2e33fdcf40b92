package testhelpers

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os/exec"
	"testing"

	"golang.org/x/crypto/ssh"
)

// NewSSHKey returns a fresh unencrypted ed25519 private key in OpenSSH PEM format.
func NewSSHKey(t *testing.T) []byte {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "gchl test")
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	return pem.EncodeToMemory(block)
}

// RequireSSHKeygen skips the test when git cannot sign with SSH keys.
func RequireSSHKeygen(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ssh-keygen"); err != nil {
		t.Skip("ssh-keygen not available")
	}
}
