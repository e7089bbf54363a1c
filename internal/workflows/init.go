package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/sfcpay/internal/codec"
	"github.com/PolarWolf314/sfcpay/internal/configs"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/keysource"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	// Path is where the config is written. Defaults to the user config path.
	Path string

	// Force overwrites an existing config file.
	Force bool

	CertificateFile    string
	PrivateKeyFile     string
	PKCS12File         string
	UseTestEnvironment bool
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// Path is the config file that was written.
	Path string

	// Overwritten is true when an existing file was replaced.
	Overwritten bool

	Config *configs.Config
}

// InitConfig writes a starter configuration file.
//
// The file carries the defaults plus the certificate locations given in opts.
// The encryption key is left out so that it can be supplied through the
// environment or sealed with KMS.
//
// Returns ErrConfigExists if the file exists and Force is not set.
// Returns ErrInvalidConfig if the options describe conflicting credentials.
func InitConfig(ctx context.Context, opts InitOptions) (*InitResult, error) {
	path := opts.Path
	if path == "" {
		path = configs.SfcpaySettings.ConfigPath
	}

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if exists && !opts.Force {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrConfigExists, path)
	}

	cfg := configs.Default()
	cfg.Credentials.CertificateFile = opts.CertificateFile
	cfg.Credentials.PrivateKeyFile = opts.PrivateKeyFile
	cfg.Credentials.PKCS12File = opts.PKCS12File
	cfg.Credentials.UseTestEnvironment = opts.UseTestEnvironment

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := configs.Save(path, cfg); err != nil {
		return nil, err
	}
	cfg.Path = path

	return &InitResult{Path: path, Overwritten: exists, Config: cfg}, nil
}

// SealKeyOptions configures the seal-key workflow.
type SealKeyOptions struct {
	// KeyID is the KMS key ARN, alias or id used to wrap the encryption key.
	KeyID string

	// Key is the base64 encryption key to seal. A new key is generated when empty.
	Key string

	// Client performs the KMS call.
	Client keysource.KMSAPI
}

// SealKeyResult contains the outcome of a seal-key operation.
type SealKeyResult struct {
	// Blob is the value for encryption_key_kms_blob.
	Blob string

	// Generated is true when the key was created by this call.
	Generated bool

	// Key is set only when Generated is true, so the caller can register it
	// with the API provider.
	Key string
}

// SealKey wraps an encryption key with AWS KMS.
//
// Returns ErrInvalidKey if the supplied key is not a 256-bit base64 key.
// Returns ErrKeySourceFailed if KMS rejects the request.
func SealKey(ctx context.Context, opts SealKeyOptions) (*SealKeyResult, error) {
	result := &SealKeyResult{}

	key := opts.Key
	if key == "" {
		generated, err := codec.GenerateKey()
		if err != nil {
			return nil, err
		}
		key = generated
		result.Generated = true
		result.Key = generated
	}

	blob, err := keysource.Seal(ctx, opts.Client, opts.KeyID, key)
	if err != nil {
		return nil, err
	}
	result.Blob = blob
	return result, nil
}
