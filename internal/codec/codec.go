package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
)

const (
	// InitVector is the IV baked into both ends of the protocol.
	InitVector = "SSGAPIInitVector"

	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
)

// ParseKey decodes a base64 encryption key and checks it is 256 bits long.
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: key is empty", kerrors.ErrInvalidKey)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid base64: %v", kerrors.ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d bytes", kerrors.ErrInvalidKey, KeySize, len(key))
	}
	return key, nil
}

// GenerateKey returns a fresh random key in base64.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Marshal serializes v the way JSON.stringify does: no HTML escaping and no
// trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encrypt serializes v to JSON and returns the base64 ciphertext.
func Encrypt(v any, key string) (string, error) {
	keyBytes, err := ParseKey(key)
	if err != nil {
		return "", err
	}

	plaintext, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: serializing body: %v", kerrors.ErrEncryptFailed, err)
	}

	ciphertext, err := EncryptBytes(plaintext, keyBytes)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt and returns the plaintext JSON document.
func Decrypt(ciphertext string, key string) (json.RawMessage, error) {
	keyBytes, err := ParseKey(key)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not valid base64: %v", kerrors.ErrDecryptFailed, err)
	}

	plaintext, err := DecryptBytes(raw, keyBytes)
	if err != nil {
		return nil, err
	}

	if !json.Valid(plaintext) {
		return nil, fmt.Errorf("%w: plaintext is not valid JSON", kerrors.ErrDecryptFailed)
	}
	return json.RawMessage(plaintext), nil
}

// EncryptBytes pads and encrypts plaintext with an already decoded key.
func EncryptBytes(plaintext, key []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, []byte(InitVector)).CryptBlocks(out, padded)
	return out, nil
}

// DecryptBytes decrypts and unpads ciphertext with an already decoded key.
func DecryptBytes(ciphertext, key []byte) ([]byte, error) {
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a positive multiple of %d",
			kerrors.ErrDecryptFailed, len(ciphertext), aes.BlockSize)
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, []byte(InitVector)).CryptBlocks(out, ciphertext)

	plaintext, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptFailed, err)
	}
	return plaintext, nil
}

func newBlock(key []byte) (cipher.Block, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d bytes", kerrors.ErrInvalidKey, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidKey, err)
	}
	return block, nil
}
