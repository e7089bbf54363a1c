package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PolarWolf314/sfcpay/internal/testutil"
)

func writeConfig(t *testing.T, dir string, validFor time.Duration, extra string) string {
	t.Helper()
	certPath, keyPath := writeCertificate(t, dir, validFor)

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

func findCheck(t *testing.T, report *CheckReport, name string) CheckResult {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("No check named %q in %+v", name, report.Checks)
	return CheckResult{}
}

func TestCheckHealthyConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), 365*24*time.Hour, "")

	report, err := Check(context.Background(), CheckOptions{ConfigPath: path, Explicit: true})
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	if report.HasErrors() || report.Summary.Warnings != 0 {
		t.Errorf("Expected a clean report, got %+v", report.Checks)
	}
	if report.Environment != "uat" {
		t.Errorf("Expected uat environment, got %q", report.Environment)
	}
	if len(report.Suggestions) != 0 {
		t.Errorf("Expected no suggestions, got %v", report.Suggestions)
	}
	if got := findCheck(t, report, "Encryption key"); got.Status != CheckPass {
		t.Errorf("Expected encryption key to pass, got %+v", got)
	}
}

func TestCheckExpiringCertificate(t *testing.T) {
	path := writeConfig(t, t.TempDir(), 10*24*time.Hour, "")

	report, err := Check(context.Background(), CheckOptions{ConfigPath: path, Explicit: true})
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	cert := findCheck(t, report, "Client certificate")
	if cert.Status != CheckWarning || !strings.Contains(cert.Message, "expires on") {
		t.Errorf("Expected expiry warning, got %+v", cert)
	}

	later, err := Check(context.Background(), CheckOptions{ConfigPath: path, Explicit: true, Now: time.Now().Add(20 * 24 * time.Hour)})
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if cert := findCheck(t, later, "Client certificate"); cert.Status != CheckError {
		t.Errorf("Expected expired certificate error, got %+v", cert)
	}
}

func TestCheckMissingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	report, err := Check(context.Background(), CheckOptions{ConfigPath: path, Explicit: true})
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if !report.HasErrors() || len(report.Checks) != 1 {
		t.Fatalf("Expected a single failing check, got %+v", report.Checks)
	}
	if len(report.Suggestions) != 1 || !strings.Contains(report.Suggestions[0], "config init") {
		t.Errorf("Expected config init suggestion, got %v", report.Suggestions)
	}
}

func TestCheckUnknownKeysAndDisabledAudit(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, 365*24*time.Hour, "disabled = true\ncolour = \"blue\"\n")

	report, err := Check(context.Background(), CheckOptions{ConfigPath: path, Explicit: true})
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}

	if values := findCheck(t, report, "Configuration values"); values.Status != CheckWarning || !strings.Contains(values.Message, "audit.colour") {
		t.Errorf("Expected unknown key warning, got %+v", values)
	}
	if auditCheck := findCheck(t, report, "Audit log"); auditCheck.Status != CheckWarning {
		t.Errorf("Expected disabled audit warning, got %+v", auditCheck)
	}
	if report.Summary.Warnings != 2 {
		t.Errorf("Expected 2 warnings, got %d", report.Summary.Warnings)
	}
}

func TestCheckBadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sfcpay.toml")
	content := `[credentials]
certificate_file = "/nonexistent/client.crt"
private_key_file = "/nonexistent/client.key"

[audit]
disabled = true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	report, err := Check(context.Background(), CheckOptions{ConfigPath: path, Explicit: true})
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if cert := findCheck(t, report, "Client certificate"); cert.Status != CheckError {
		t.Errorf("Expected certificate error, got %+v", cert)
	}
	if report.Environment != "" {
		t.Errorf("Expected no environment without credentials, got %q", report.Environment)
	}
}

func TestCheckStatusJSON(t *testing.T) {
	out, err := CheckWarning.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error: %v", err)
	}
	if string(out) != `"warning"` {
		t.Errorf("Expected \"warning\", got %s", out)
	}
}
