package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"moodops/internal/ops"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It stores all archives in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name     string
	archives map[string][]byte
	mu       sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:     name,
		archives: make(map[string][]byte),
	}
}

// PutArchive stores an archive under the given name.
func (v *MemoryVault) PutArchive(name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.archives[name] = data
	return nil
}

// GetArchive retrieves an archive by name and writes it to w.
func (v *MemoryVault) GetArchive(name string, w io.Writer) error {
	v.mu.RLock()
	data, ok := v.archives[name]
	v.mu.RUnlock()

	if !ok {
		return fmt.Errorf("archive not found: %s", name)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// Has reports whether an archive with the given name is stored.
// Test helper.
func (v *MemoryVault) Has(name string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.archives[name]
	return ok
}

// ValidateSetup always succeeds for a memory vault.
func (v *MemoryVault) ValidateSetup() error { return nil }

// Compile-time check that MemoryVault implements the ops.Vault interface
var _ ops.Vault = (*MemoryVault)(nil)
