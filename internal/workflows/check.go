package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/sfcpay/internal/configs"
	"github.com/PolarWolf314/sfcpay/internal/credentials"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/keysource"
)

// CertificateExpiryWarning is how early check warns about certificate expiry.
const CertificateExpiryWarning = 30 * 24 * time.Hour

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	CheckPass CheckStatus = iota
	CheckWarning
	CheckError
)

func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// CheckSummary holds counts of checks by status.
type CheckSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// CheckReport is the outcome of the check workflow.
type CheckReport struct {
	ConfigPath  string        `json:"config_path"`
	Environment string        `json:"environment,omitempty"`
	Checks      []CheckResult `json:"checks"`
	Summary     CheckSummary  `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// HasErrors reports whether any check failed.
func (r *CheckReport) HasErrors() bool { return r.Summary.Errors > 0 }

// CheckOptions configures the check workflow.
type CheckOptions struct {
	ConfigPath string
	// Explicit is true when the config path was given on the command line.
	Explicit bool

	Credentials CredentialOptions

	// Now is used for certificate expiry. Zero means time.Now().
	Now time.Time
}

// Check validates the configuration and credentials without calling the API.
//
// The check workflow covers:
//   - Config file presence and syntax
//   - Config values and unknown keys
//   - Client certificate loading and key pairing
//   - Certificate expiry
//   - Encryption key resolution
//   - Audit log and archive settings
func Check(ctx context.Context, opts CheckOptions) (*CheckReport, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	report := &CheckReport{ConfigPath: opts.ConfigPath}

	cfg, configCheck := checkConfigFile(opts.ConfigPath, opts.Explicit)
	report.Checks = append(report.Checks, configCheck)

	if cfg != nil {
		report.Checks = append(report.Checks, checkConfigValues(cfg))

		bundle, credentialChecks := checkCredentials(ctx, cfg, opts.Credentials, now)
		report.Checks = append(report.Checks, credentialChecks...)
		if bundle != nil {
			report.Environment = bundle.Environment()
		}

		report.Checks = append(report.Checks, checkAuditLog(cfg), checkArchive(cfg))
	}

	seen := make(map[string]bool)
	for _, result := range report.Checks {
		switch result.Status {
		case CheckPass:
			report.Summary.Passed++
		case CheckWarning:
			report.Summary.Warnings++
		case CheckError:
			report.Summary.Errors++
		}
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			report.Suggestions = append(report.Suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return report, nil
}

func checkConfigFile(path string, explicit bool) (*configs.Config, CheckResult) {
	const name = "Configuration file"

	cfg, err := configs.Load(path, explicit)
	if err != nil {
		if errors.Is(err, kerrors.ErrConfigNotFound) {
			return nil, CheckResult{
				Name:       name,
				Status:     CheckError,
				Message:    fmt.Sprintf("%s does not exist", path),
				Suggestion: "Run 'sfcpay config init' to create a configuration",
			}
		}
		return nil, CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: "Fix the TOML syntax in " + path,
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: "Fix the SFCPAY_* environment variables",
		}
	}

	if cfg.Path == "" {
		return cfg, CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    "No config file found, using defaults and environment",
			Suggestion: "Run 'sfcpay config init' to create a configuration",
		}
	}
	return cfg, CheckResult{Name: name, Status: CheckPass, Message: "Loaded " + cfg.Path}
}

func checkConfigValues(cfg *configs.Config) CheckResult {
	const name = "Configuration values"

	if err := cfg.Validate(); err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: err.Error()}
	}
	if len(cfg.Unknown) > 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    "Unknown keys: " + strings.Join(cfg.Unknown, ", "),
			Suggestion: "Remove or correct unrecognised keys in the config file",
		}
	}
	return CheckResult{Name: name, Status: CheckPass, Message: "Configuration values valid"}
}

func checkCredentials(ctx context.Context, cfg *configs.Config, opts CredentialOptions, now time.Time) (*credentials.Bundle, []CheckResult) {
	const (
		certName = "Client certificate"
		keyName  = "Encryption key"
	)

	certPEM, keyPEM, err := loadCertificate(cfg.Credentials, opts.PromptPassword)
	if err != nil {
		return nil, []CheckResult{{
			Name:       certName,
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: "Set certificate_file and private_key_file, or pkcs12_file, in [credentials]",
		}}
	}

	bundle := credentials.Bundle{CertificatePEM: certPEM, PrivateKeyPEM: keyPEM, UseTestEnvironment: cfg.Credentials.UseTestEnvironment}
	if opts.UseTestEnvironment != nil {
		bundle.UseTestEnvironment = *opts.UseTestEnvironment
	}

	var results []CheckResult
	results = append(results, checkCertificate(bundle, now, certName))

	client := opts.KMS
	if client == nil && cfg.Credentials.EncryptionKey == "" && cfg.Credentials.EncryptionKeyKMSBlob != "" {
		kmsClient, err := keysource.NewKMSClient(ctx, cfg.Credentials.KMSRegion)
		if err == nil {
			client = kmsClient
		}
	}
	key, err := keysource.Resolve(ctx, keysource.Spec{
		Inline:   cfg.Credentials.EncryptionKey,
		KMSBlob:  cfg.Credentials.EncryptionKeyKMSBlob,
		KMSKeyID: cfg.Credentials.KMSKeyID,
	}, client)
	if err != nil {
		results = append(results, CheckResult{
			Name:       keyName,
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: "Set encryption_key, SFCPAY_ENCRYPTION_KEY or encryption_key_kms_blob",
		})
		return &bundle, results
	}
	bundle.EncryptionKey = key

	source := "inline"
	if cfg.Credentials.EncryptionKey == "" {
		source = "AWS KMS"
	}
	results = append(results, CheckResult{Name: keyName, Status: CheckPass, Message: "256-bit key resolved from " + source})
	return &bundle, results
}

func checkCertificate(bundle credentials.Bundle, now time.Time, name string) CheckResult {
	if _, err := bundle.TLSCertificate(); err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    err.Error(),
			Suggestion: "Make sure the private key belongs to the certificate",
		}
	}

	cert, err := bundle.Certificate()
	if err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: err.Error()}
	}

	subject := cert.Subject.CommonName
	switch {
	case now.After(cert.NotAfter):
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Certificate %q expired on %s", subject, cert.NotAfter.Format("2006-01-02")),
			Suggestion: "Renew the client certificate on the SSG developer portal",
		}
	case now.Before(cert.NotBefore):
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Certificate %q is not valid until %s", subject, cert.NotBefore.Format("2006-01-02")),
		}
	}

	expiring, _ := bundle.ExpiresWithin(CertificateExpiryWarning, now)
	if expiring {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Certificate %q expires on %s", subject, cert.NotAfter.Format("2006-01-02")),
			Suggestion: "Renew the client certificate on the SSG developer portal",
		}
	}
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Certificate %q valid until %s", subject, cert.NotAfter.Format("2006-01-02")),
	}
}

func checkAuditLog(cfg *configs.Config) CheckResult {
	const name = "Audit log"

	path := cfg.AuditPath()
	if path == "" {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    "Audit logging is disabled",
			Suggestion: "Set [audit] disabled = false to keep a record of API calls",
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: fmt.Sprintf("Cannot create %s: %v", dir, err)}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return CheckResult{Name: name, Status: CheckError, Message: fmt.Sprintf("Cannot write %s: %v", path, err)}
	}
	f.Close()
	return CheckResult{Name: name, Status: CheckPass, Message: "Writing to " + path}
}

func checkArchive(cfg *configs.Config) CheckResult {
	const name = "Batch archive"

	if cfg.Archive.S3Bucket == "" {
		return CheckResult{Name: name, Status: CheckPass, Message: "Not configured"}
	}
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("s3://%s/%s", cfg.Archive.S3Bucket, strings.Trim(cfg.Archive.S3Prefix, "/")),
	}
}
