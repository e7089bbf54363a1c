package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	logger "github.com/PolarWolf314/sfcpay/internal/logging"
	"github.com/PolarWolf314/sfcpay/internal/testutil"
	"github.com/spf13/cobra"
)

// setupCommandTest resets every command's globals and silences the spinner.
func setupCommandTest(t *testing.T) {
	t.Helper()
	ResetGlobalState()
	ResetConfigState()
	SetLogger(logger.Logger{})

	previous := statusOut
	statusOut = io.Discard
	t.Cleanup(func() {
		statusOut = previous
		ResetGlobalState()
		ResetConfigState()
	})
}

// execute runs root with args and returns what it wrote to stdout and stderr.
func execute(t *testing.T, root *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	t.Cleanup(func() {
		root.SetOut(nil)
		root.SetErr(nil)
		root.SetArgs(nil)
	})
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig writes a UAT config with a fresh certificate and an inline key.
func writeTestConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	cert := testutil.NewClientCertificate(t, "training-provider", 365*24*time.Hour)
	certPath := filepath.Join(dir, "client.crt")
	keyPath := filepath.Join(dir, "client.key")
	if err := os.WriteFile(certPath, cert.CertificatePEM, 0600); err != nil {
		t.Fatalf("Failed to write certificate: %v", err)
	}
	if err := os.WriteFile(keyPath, cert.PrivateKeyPEM, 0600); err != nil {
		t.Fatalf("Failed to write key: %v", err)
	}

	content := fmt.Sprintf(`[credentials]
certificate_file = %q
private_key_file = %q
encryption_key = %q
use_test_environment = true

[audit]
path = %q
%s`, certPath, keyPath, testutil.EncryptionKey(), filepath.Join(dir, "audit.jsonl"), extra)

	path := filepath.Join(dir, "sfcpay.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// captureProcessStdout redirects os.Stdout for the duration of fn and returns what was written.
func captureProcessStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	previous := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = previous }()

	fn()

	w.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("Failed to read captured stdout: %v", err)
	}
	r.Close()
	return buf.String()
}
