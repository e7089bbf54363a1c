package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadStdin reads all content from stdin.
// Returns an error if stdin is empty, is a terminal (no piped data), or cannot be read.
func ReadStdin() ([]byte, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat stdin: %w", err)
	}

	// ModeCharDevice means stdin is a terminal, not a pipe.
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return nil, fmt.Errorf("no data provided on stdin")
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read from stdin: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("stdin is empty")
	}

	return data, nil
}

// ReadInput resolves a flag value: "-" reads stdin, "@path" reads a file,
// anything else is returned as is.
func ReadInput(value string) ([]byte, error) {
	switch {
	case value == "-":
		return ReadStdin()
	case strings.HasPrefix(value, "@"):
		p, err := ExpandPath(strings.TrimPrefix(value, "@"))
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		return data, nil
	default:
		return []byte(value), nil
	}
}
