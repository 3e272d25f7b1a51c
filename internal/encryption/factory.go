package encryption

import (
	"fmt"

	"moodops/internal/config"
	"moodops/internal/ops"
)

// NewEncryptorFromConfig creates an encryptor based on configuration.
// Type "none" (or empty) returns nil, meaning archives are stored in
// plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (ops.Encryptor, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "age":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("age encryption requires public_key_path and private_key_path")
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %s", cfg.Type)
	}
}
