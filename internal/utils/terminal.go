package utils

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadPassphrase prompts on stderr for a secret without echoing input.
// Used for PKCS#12 passwords and encryption keys. Returns an error if stdin
// is not a terminal.
func ReadPassphrase(prompt string) ([]byte, error) {
	if !IsTerminal() {
		return nil, fmt.Errorf("cannot prompt for %s: stdin is not a terminal", strings.TrimSuffix(strings.TrimSpace(prompt), ":"))
	}

	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	return passphrase, nil
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
