package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i * 7)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestRoundTrip(t *testing.T) {
	key := testKey(t)

	tests := []struct {
		name  string
		value any
	}{
		{"Empty object", map[string]any{}},
		{"Flat object", map[string]any{"claimRequestStatus": "approved"}},
		{"Nested claim", map[string]any{
			"claimRequest": map[string]any{
				"course":     map[string]any{"id": "TGS-2020002106", "runId": "10026", "fee": "500.00", "startDate": "2024-01-15"},
				"individual": map[string]any{"nric": "S1234567A", "email": "learner@example.com"},
			},
		}},
		{"Array", []any{1.0, "two", true, nil}},
		{"Unicode and HTML", map[string]any{"note": "<b>Ngee Ann</b> & 南洋 — ok"}},
		{"Exactly one block", "0123456789abcd"},
		{"Number", 42.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := Encrypt(tt.value, key)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}

			plaintext, err := Decrypt(ciphertext, key)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}

			var got any
			if err := json.Unmarshal(plaintext, &got); err != nil {
				t.Fatalf("Failed to unmarshal plaintext: %v", err)
			}

			want := normalize(t, tt.value)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Round trip mismatch: expected %#v, got %#v", want, got)
			}
		})
	}
}

func TestEncryptUsesFixedIV(t *testing.T) {
	key := testKey(t)
	body := map[string]string{"claimRequestStatus": "x"}

	ciphertext, err := Encrypt(body, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	keyBytes, _ := base64.StdEncoding.DecodeString(key)
	block, _ := aes.NewCipher(keyBytes)
	plaintext := pkcs7Pad([]byte(`{"claimRequestStatus":"x"}`), aes.BlockSize)
	want := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, []byte("SSGAPIInitVector")).CryptBlocks(want, plaintext)

	if ciphertext != base64.StdEncoding.EncodeToString(want) {
		t.Errorf("Ciphertext does not match AES-256-CBC with the shared IV")
	}

	again, _ := Encrypt(body, key)
	if again != ciphertext {
		t.Errorf("Expected deterministic output with a fixed IV")
	}
}

// Generated with AES-256-CBC, IV "SSGAPIInitVector", PKCS#7, key bytes 0x00..0x1f
// (openssl enc -aes-256-cbc and Node's crypto agree; a CryptoJS WordArray key gives the same bytes).
const (
	knownKey        = "AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8="
	knownPlaintext  = `{"claimRequest":{"course":{"id":"TGS-2020002106","fee":"500.00"}}}`
	knownCiphertext = "xZlXZXtPRhfchI8a+bplB3X5a3TzqeCVqNSorY+SY4+EI+lMfP1ObhwWT61MhrX7Sdvchfaa6qZ5PBEOT22ARbhfvUsGcf9NmMGGgp4GBYo="
)

func TestKnownAnswer(t *testing.T) {
	type course struct {
		ID  string `json:"id"`
		Fee string `json:"fee"`
	}
	type claimRequest struct {
		Course course `json:"course"`
	}
	body := struct {
		ClaimRequest claimRequest `json:"claimRequest"`
	}{claimRequest{course{ID: "TGS-2020002106", Fee: "500.00"}}}

	got, err := Encrypt(body, knownKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if got != knownCiphertext {
		t.Errorf("Encrypt() = %s\nwant        %s", got, knownCiphertext)
	}

	plaintext, err := Decrypt(knownCiphertext, knownKey)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if string(plaintext) != knownPlaintext {
		t.Errorf("Decrypt() = %s, want %s", plaintext, knownPlaintext)
	}
}

func TestKeyLengthInvariant(t *testing.T) {
	for _, size := range []int{0, 1, 16, 24, 31, 33, 64} {
		key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0xAB}, size))

		if _, err := Encrypt(map[string]string{"a": "b"}, key); !errors.Is(err, kerrors.ErrInvalidKey) {
			t.Errorf("Encrypt with %d-byte key: expected ErrInvalidKey, got %v", size, err)
		}
		if _, err := Decrypt("AAAAAAAAAAAAAAAAAAAAAA==", key); !errors.Is(err, kerrors.ErrInvalidKey) {
			t.Errorf("Decrypt with %d-byte key: expected ErrInvalidKey, got %v", size, err)
		}
	}
}

func TestParseKeyRejectsInvalidBase64(t *testing.T) {
	if _, err := ParseKey("not*base64!"); !errors.Is(err, kerrors.ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}
}

func TestParseKeyTrimsWhitespace(t *testing.T) {
	key, err := ParseKey("  " + testKey(t) + "\n")
	if err != nil {
		t.Fatalf("ParseKey failed: %v", err)
	}
	if len(key) != KeySize {
		t.Errorf("Expected %d bytes, got %d", KeySize, len(key))
	}
}

func TestTamperSensitivity(t *testing.T) {
	key := testKey(t)
	original := map[string]any{"claimRequest": map[string]any{"course": map[string]any{"id": "TGS-2020002106"}}}

	ciphertext, err := Encrypt(original, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	want, _ := Marshal(original)

	raw, _ := base64.StdEncoding.DecodeString(ciphertext)
	for i := 0; i < len(raw)*8; i++ {
		tampered := append([]byte(nil), raw...)
		tampered[i/8] ^= 1 << (i % 8)

		got, err := Decrypt(base64.StdEncoding.EncodeToString(tampered), key)
		if err == nil && bytes.Equal(got, want) {
			t.Fatalf("Flipping bit %d returned the original plaintext", i)
		}
		if err != nil && !errors.Is(err, kerrors.ErrDecryptFailed) {
			t.Fatalf("Flipping bit %d: expected ErrDecryptFailed, got %v", i, err)
		}
	}
}

func TestDecryptFailures(t *testing.T) {
	key := testKey(t)
	keyBytes, _ := base64.StdEncoding.DecodeString(key)
	notJSON, _ := EncryptBytes([]byte("definitely not json"), keyBytes)

	tests := []struct {
		name       string
		ciphertext string
	}{
		{"Invalid base64", "%%%"},
		{"Empty", ""},
		{"Short block", base64.StdEncoding.EncodeToString([]byte("short"))},
		{"Plaintext not JSON", base64.StdEncoding.EncodeToString(notJSON)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(tt.ciphertext, key)
			if !errors.Is(err, kerrors.ErrDecryptFailed) {
				t.Errorf("Expected ErrDecryptFailed, got %v", err)
			}
		})
	}
}

func TestMarshalDoesNotEscapeHTML(t *testing.T) {
	out, err := Marshal(map[string]string{"a": "<x> & y"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"a":"<x> & y"}` {
		t.Errorf("Unexpected output: %s", out)
	}
	if strings.HasSuffix(string(out), "\n") {
		t.Errorf("Expected no trailing newline")
	}
}

func TestPKCS7Unpad(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"Full padding block", bytes.Repeat([]byte{16}, 16), false},
		{"Zero pad byte", append(bytes.Repeat([]byte{'a'}, 15), 0), true},
		{"Pad larger than block", append(bytes.Repeat([]byte{'a'}, 15), 17), true},
		{"Inconsistent pad bytes", append(bytes.Repeat([]byte{'a'}, 13), 1, 2, 3), true},
		{"Not block aligned", []byte{1, 1, 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pkcs7Unpad(tt.data, 16)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func normalize(t *testing.T, v any) any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	return out
}

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	if _, err := ParseKey(a); err != nil {
		t.Errorf("generated key does not parse: %v", err)
	}
	b, _ := GenerateKey()
	if a == b {
		t.Error("expected two generated keys to differ")
	}
}
