package encryption

import (
	"fmt"
	"io"

	"moodops/internal/ops"
)

// TestEncryptor is a trivially reversible encryptor for tests. It XORs
// every byte with a fixed key so that ciphertext differs from plaintext
// without any real cryptography.
type TestEncryptor struct {
	configured bool
	passphrase string
}

var _ ops.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a TestEncryptor that reports itself as not
// yet configured.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.configured = true
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	return xorCopy(w, r)
}

func (e *TestEncryptor) Unlock(passphrase string) (ops.DecryptionContext, error) {
	if !e.configured {
		return nil, fmt.Errorf("test encryptor not configured")
	}
	if passphrase != e.passphrase {
		return nil, fmt.Errorf("invalid passphrase")
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return e.configured
}

// TestDecryptionContext reverses TestEncryptor's XOR transform.
type TestDecryptionContext struct{}

var _ ops.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	return xorCopy(w, r)
}

const xorKey = 0x5a

func xorCopy(w io.Writer, r io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for i := 0; i < n; i++ {
				buf[i] ^= xorKey
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("writing transformed data: %w", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading data: %w", err)
		}
	}
}
