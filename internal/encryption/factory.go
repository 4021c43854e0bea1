package encryption

import (
	"fmt"

	"habitsync/internal/config"
	"habitsync/internal/remote"
)

// PassphraseFunc supplies the passphrase that unlocks the private key. It is
// only called when the configured cipher needs one.
type PassphraseFunc func() (string, error)

// NewCipherFromConfig creates the document cipher selected by the
// configuration type. It returns a nil cipher for type "none" (or unset), in
// which case documents are stored as plain JSON.
func NewCipherFromConfig(cfg config.EncryptionConfig, passphrase PassphraseFunc) (remote.Cipher, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "test":
		return NewTestCipher(), nil
	case "age":
		keys := NewAgeKeyring(cfg)
		if !keys.IsConfigured() {
			return nil, fmt.Errorf("age keys not found at %s (run `habitsync keys init`)", cfg.PrivateKeyPath)
		}
		if passphrase == nil {
			return nil, fmt.Errorf("passphrase required to unlock age keys")
		}
		p, err := passphrase()
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		c, err := keys.Unlock(p)
		if err != nil {
			return nil, fmt.Errorf("unlocking age keys: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
