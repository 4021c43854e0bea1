package app

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"habitsync/internal/encryption"
)

// EnvPassphrase holds the key passphrase for non-interactive use.
const EnvPassphrase = "HABITSYNC_PASSPHRASE"

// PassphrasePrompt returns a PassphraseFunc that reads HABITSYNC_PASSPHRASE,
// or prompts on the terminal when it is unset. With confirm the prompt asks
// twice and fails on mismatch.
func PassphrasePrompt(confirm bool) encryption.PassphraseFunc {
	return func() (string, error) {
		if p := os.Getenv(EnvPassphrase); p != "" {
			return p, nil
		}

		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", fmt.Errorf("no terminal to prompt on: set %s", EnvPassphrase)
		}

		p, err := readSecret(fd, "Passphrase: ")
		if err != nil {
			return "", err
		}
		if !confirm {
			return p, nil
		}

		again, err := readSecret(fd, "Repeat passphrase: ")
		if err != nil {
			return "", err
		}
		if again != p {
			return "", errors.New("passphrases do not match")
		}
		return p, nil
	}
}

func readSecret(fd int, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}
