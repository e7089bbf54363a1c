package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// emailRegex is a simple regex for validating email format.
// It checks for: local-part@domain.tld format.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail checks if the given string is a valid email address format.
func IsValidEmail(email string) bool {
	if email == "" {
		return false
	}
	return emailRegex.MatchString(email)
}

// MaskSecret shows only the first four characters of a secret.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return fmt.Sprintf("%s%s (%d chars)", s[:4], strings.Repeat("*", 8), len(s))
}

// ParseKeyValues parses "key=value" pairs. Later keys win.
func ParseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", pair)
		}
		out[k] = v
	}
	return out, nil
}
