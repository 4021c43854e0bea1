package encryption

import (
	"bytes"
	"fmt"
	"io"

	"habitsync/internal/remote"
)

// testHeader makes sealed output differ from plaintext while staying
// deterministic and reversible.
var testHeader = []byte("HSENC\x00\x00\x00")

// TestCipher prepends a fixed 8-byte header on Encrypt and strips it on
// Decrypt. It needs no keys and is meant for tests and local experiments.
type TestCipher struct{}

var _ remote.Cipher = (*TestCipher)(nil)

func NewTestCipher() *TestCipher {
	return &TestCipher{}
}

func (c *TestCipher) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (c *TestCipher) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
