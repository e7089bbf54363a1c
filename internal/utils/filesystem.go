package utils

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FindFileUpwards traverses up from the working directory looking for name.
// Returns the full path if found, empty string otherwise.
// Stops searching at one level above the user's home directory.
func FindFileUpwards(name string) (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	for {
		if currentDir == path.Join(homeDir, "..") {
			return "", nil
		}

		candidate := filepath.Join(currentDir, name)
		fileInfo, err := os.Stat(candidate)
		if err == nil {
			if !fileInfo.IsDir() {
				return candidate, nil
			}
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("error checking for %s at %s: %w", name, currentDir, err)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", nil
		}
		currentDir = parentDir
	}
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(p, "~")), nil
}
