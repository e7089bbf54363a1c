package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/sfcpay/internal/configs"
	"github.com/PolarWolf314/sfcpay/internal/credentials"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/keysource"
	"github.com/PolarWolf314/sfcpay/internal/utils"
)

// CredentialOptions configures ResolveCredentials.
type CredentialOptions struct {
	// UseTestEnvironment overrides the configured environment when set.
	UseTestEnvironment *bool

	// PromptPassword is asked for the PKCS#12 password when none is configured.
	PromptPassword func(prompt string) ([]byte, error)

	// KMS unwraps a KMS-sealed encryption key. When nil, a client is built
	// from the default AWS configuration, and only if one is needed.
	KMS keysource.KMSAPI
}

// ResolveCredentials builds and validates the credential bundle described by cfg.
//
// The client certificate comes from either a PEM certificate and key pair or
// a PKCS#12 archive. The encryption key is taken inline or unwrapped with KMS.
//
// Returns ErrInvalidCredentials if no certificate is configured.
// Returns ErrFileNotFound if a configured file does not exist.
// Returns ErrCertificateMismatch if the certificate and key do not match.
// Returns ErrInvalidKey or ErrKeySourceFailed if the encryption key cannot be resolved.
func ResolveCredentials(ctx context.Context, cfg *configs.Config, opts CredentialOptions) (credentials.Bundle, error) {
	c := cfg.Credentials

	certPEM, keyPEM, err := loadCertificate(c, opts.PromptPassword)
	if err != nil {
		return credentials.Bundle{}, err
	}

	client := opts.KMS
	if client == nil && c.EncryptionKey == "" && c.EncryptionKeyKMSBlob != "" {
		kmsClient, err := keysource.NewKMSClient(ctx, c.KMSRegion)
		if err != nil {
			return credentials.Bundle{}, err
		}
		client = kmsClient
	}

	key, err := keysource.Resolve(ctx, keysource.Spec{
		Inline:   c.EncryptionKey,
		KMSBlob:  c.EncryptionKeyKMSBlob,
		KMSKeyID: c.KMSKeyID,
	}, client)
	if err != nil {
		return credentials.Bundle{}, err
	}

	bundle := credentials.Bundle{
		CertificatePEM:     certPEM,
		PrivateKeyPEM:      keyPEM,
		EncryptionKey:      key,
		UseTestEnvironment: c.UseTestEnvironment,
	}
	if opts.UseTestEnvironment != nil {
		bundle.UseTestEnvironment = *opts.UseTestEnvironment
	}

	if err := bundle.Validate(); err != nil {
		return credentials.Bundle{}, err
	}
	return bundle, nil
}

func loadCertificate(c configs.CredentialsConfig, prompt func(string) ([]byte, error)) (certPEM, keyPEM []byte, err error) {
	switch {
	case c.PKCS12File != "":
		data, err := readCredentialFile("PKCS#12 archive", c.PKCS12File)
		if err != nil {
			return nil, nil, err
		}
		password := c.PKCS12Password
		if password == "" && prompt != nil {
			p, err := prompt("PKCS#12 password: ")
			if err != nil {
				return nil, nil, err
			}
			password = string(p)
		}
		return credentials.FromPKCS12(data, password)

	case c.CertificateFile != "" || c.PrivateKeyFile != "":
		if c.CertificateFile == "" || c.PrivateKeyFile == "" {
			return nil, nil, fmt.Errorf("%w: both certificate_file and private_key_file are required", kerrors.ErrInvalidCredentials)
		}
		certPEM, err := readCredentialFile("certificate", c.CertificateFile)
		if err != nil {
			return nil, nil, err
		}
		keyPEM, err := readCredentialFile("private key", c.PrivateKeyFile)
		if err != nil {
			return nil, nil, err
		}
		return certPEM, keyPEM, nil
	}

	return nil, nil, fmt.Errorf("%w: no client certificate configured", kerrors.ErrInvalidCredentials)
}

func readCredentialFile(what, path string) ([]byte, error) {
	expanded, err := utils.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s %s", kerrors.ErrFileNotFound, what, expanded)
		}
		return nil, fmt.Errorf("reading %s %s: %w", what, expanded, err)
	}
	return data, nil
}
