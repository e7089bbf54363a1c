package host

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/sfcpay/internal/credentials"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"gopkg.in/yaml.v3"
)

// ItemsFile is the on-disk batch description. JSON is valid YAML, so both
// formats decode through the same path.
type ItemsFile struct {
	Operation         string           `yaml:"operation"`
	ContinueOnFailure *bool            `yaml:"continue_on_failure"`
	Defaults          map[string]any   `yaml:"defaults"`
	Items             []map[string]any `yaml:"items"`
}

// FileHost serves parameters from an ItemsFile.
//
// The continue-on-failure policy comes from, in order: SetContinueOnFailure,
// the file's continue_on_failure, SetDefaultContinueOnFailure.
type FileHost struct {
	file            ItemsFile
	override        *bool
	defaultContinue bool
	resolve         CredentialsResolver
}

// LoadFile reads and parses an items file.
func LoadFile(path string, resolve CredentialsResolver) (*FileHost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}
	return Parse(data, resolve)
}

// Parse decodes an items file.
func Parse(data []byte, resolve CredentialsResolver) (*FileHost, error) {
	var file ItemsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: items file: %v", kerrors.ErrInvalidRequest, err)
	}
	if len(file.Items) == 0 {
		return nil, kerrors.ErrNoItems
	}
	return &FileHost{file: file, resolve: resolve}, nil
}

// SetContinueOnFailure overrides the file's continue_on_failure setting.
func (h *FileHost) SetContinueOnFailure(v bool) {
	h.override = &v
}

// SetDefaultContinueOnFailure applies when the file does not set continue_on_failure.
func (h *FileHost) SetDefaultContinueOnFailure(v bool) {
	h.defaultContinue = v
}

// Operation returns the file-level operation.
func (h *FileHost) Operation() string { return h.file.Operation }

func (h *FileHost) GetCredentials(ctx context.Context) (credentials.Bundle, error) {
	return resolveCredentials(ctx, h.resolve)
}

func (h *FileHost) GetItemCount() int { return len(h.file.Items) }

func (h *FileHost) GetParameter(name string, itemIndex int) (string, error) {
	if itemIndex < 0 || itemIndex >= len(h.file.Items) {
		return "", fmt.Errorf("%w: %d of %d", kerrors.ErrItemIndexOutOfRange, itemIndex, len(h.file.Items))
	}

	if v, ok := h.file.Items[itemIndex][name]; ok {
		return stringify(v)
	}
	if v, ok := h.file.Defaults[name]; ok {
		return stringify(v)
	}
	if name == "operation" {
		return h.file.Operation, nil
	}
	return "", nil
}

func (h *FileHost) ShouldContinueOnFailure() bool {
	switch {
	case h.override != nil:
		return *h.override
	case h.file.ContinueOnFailure != nil:
		return *h.file.ContinueOnFailure
	}
	return h.defaultContinue
}
