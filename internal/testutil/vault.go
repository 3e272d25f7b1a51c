package testutil

import (
	"moodops/internal/encryption"
	"moodops/internal/ops"
	"moodops/internal/vault"
)

// NewTestVault creates an in-memory vault for testing.
func NewTestVault() *vault.MemoryVault {
	return vault.NewMemoryVault("test")
}

// NewTestEncryptor creates a reversible test encryptor.
func NewTestEncryptor() ops.Encryptor {
	return encryption.NewTestEncryptor()
}
