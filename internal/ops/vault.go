package ops

import "io"

// Vault provides an interface for offsite snapshot archive storage.
// Operations stream through io.Reader/io.Writer so large archives never
// need to be held in memory.
type Vault interface {
	// PutArchive stores an archive under the given name.
	// size is the number of bytes that will be read from r.
	PutArchive(name string, r io.Reader, size int64) error

	// GetArchive retrieves an archive by name and writes it to w.
	GetArchive(name string, w io.Writer) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
