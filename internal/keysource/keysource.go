// Package keysource resolves the payload encryption key, either given directly
// or stored as an AWS KMS ciphertext blob.
package keysource

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/PolarWolf314/sfcpay/internal/codec"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// KMSAPI is the subset of the KMS client used here.
type KMSAPI interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
}

// Spec describes where the key comes from. Inline wins over KMSBlob.
type Spec struct {
	// Inline is the base64 key itself.
	Inline string
	// KMSBlob is the base64 KMS ciphertext blob wrapping the raw 32-byte key.
	KMSBlob string
	// KMSKeyID optionally pins the key the blob must have been encrypted under.
	KMSKeyID string
}

// NewKMSClient loads the default AWS configuration for region.
func NewKMSClient(ctx context.Context, region string) (*kms.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRetryMaxAttempts(3)}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", kerrors.ErrKeySourceFailed, err)
	}
	return kms.NewFromConfig(cfg), nil
}

// Resolve returns the base64 encryption key described by spec. client is only
// used when the key comes from KMS and may be nil otherwise.
func Resolve(ctx context.Context, spec Spec, client KMSAPI) (string, error) {
	if inline := strings.TrimSpace(spec.Inline); inline != "" {
		if _, err := codec.ParseKey(inline); err != nil {
			return "", err
		}
		return inline, nil
	}

	blob := strings.TrimSpace(spec.KMSBlob)
	if blob == "" {
		return "", fmt.Errorf("%w: no encryption key configured", kerrors.ErrInvalidKey)
	}
	if client == nil {
		return "", fmt.Errorf("%w: a KMS client is required to unwrap the encryption key", kerrors.ErrKeySourceFailed)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: KMS blob is not valid base64: %v", kerrors.ErrKeySourceFailed, err)
	}

	input := &kms.DecryptInput{CiphertextBlob: ciphertext}
	if spec.KMSKeyID != "" {
		input.KeyId = aws.String(spec.KMSKeyID)
	}
	out, err := client.Decrypt(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: KMS decrypt: %v", kerrors.ErrKeySourceFailed, err)
	}

	if len(out.Plaintext) != codec.KeySize {
		return "", fmt.Errorf("%w: KMS plaintext is %d bytes, expected %d", kerrors.ErrInvalidKey, len(out.Plaintext), codec.KeySize)
	}
	return base64.StdEncoding.EncodeToString(out.Plaintext), nil
}

// Seal wraps a base64 encryption key under a KMS key and returns the blob for
// the encryption_key_kms_blob setting.
func Seal(ctx context.Context, client KMSAPI, keyID, key string) (string, error) {
	raw, err := codec.ParseKey(key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(keyID) == "" {
		return "", fmt.Errorf("%w: a KMS key id is required", kerrors.ErrKeySourceFailed)
	}

	out, err := client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(keyID),
		Plaintext: raw,
	})
	if err != nil {
		return "", fmt.Errorf("%w: KMS encrypt: %v", kerrors.ErrKeySourceFailed, err)
	}
	return base64.StdEncoding.EncodeToString(out.CiphertextBlob), nil
}
