package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/utils"
	"github.com/joho/godotenv"
)

type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Transport   TransportConfig   `toml:"transport"`
	Batch       BatchConfig       `toml:"batch"`
	Archive     ArchiveConfig     `toml:"archive"`
	Audit       AuditConfig       `toml:"audit"`

	// Path is where the config was loaded from, empty for defaults.
	Path string `toml:"-"`
	// Unknown lists keys in the file that were not recognised.
	Unknown []string `toml:"-"`
}

type CredentialsConfig struct {
	CertificateFile      string `toml:"certificate_file"`
	PrivateKeyFile       string `toml:"private_key_file"`
	PKCS12File           string `toml:"pkcs12_file"`
	PKCS12Password       string `toml:"-"`
	EncryptionKey        string `toml:"encryption_key,omitempty"`
	EncryptionKeyKMSBlob string `toml:"encryption_key_kms_blob,omitempty"`
	KMSKeyID             string `toml:"kms_key_id,omitempty"`
	KMSRegion            string `toml:"kms_region,omitempty"`
	UseTestEnvironment   bool   `toml:"use_test_environment"`
}

type TransportConfig struct {
	Timeout        time.Duration `toml:"timeout"`
	ConnectTimeout time.Duration `toml:"connect_timeout"`
	// ProductionURL and TestURL override the API hosts, for proxies and sandboxes.
	ProductionURL string `toml:"production_url,omitempty"`
	TestURL       string `toml:"test_url,omitempty"`
}

type BatchConfig struct {
	Concurrency       int  `toml:"concurrency"`
	AbortOnFirstError bool `toml:"abort_on_first_error"`
}

type ArchiveConfig struct {
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
}

type AuditConfig struct {
	Path     string `toml:"path,omitempty"`
	Disabled bool   `toml:"disabled"`
}

const (
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultConcurrency    = 4
)

// Default returns a config with every default filled in.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			Timeout:        DefaultTimeout,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Batch: BatchConfig{
			Concurrency:       DefaultConcurrency,
			AbortOnFirstError: true,
		},
		Archive: ArchiveConfig{S3Prefix: "sfcpay/batches"},
	}
}

// ResolvePath returns the config file to use: explicit, then the nearest
// project sfcpay.toml, then the user config. The result may not exist.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return utils.ExpandPath(explicit)
	}
	found, err := utils.FindFileUpwards(ProjectConfigName)
	if err != nil {
		return "", err
	}
	if found != "" {
		return found, nil
	}
	return SfcpaySettings.ConfigPath, nil
}

// Load reads the config file at path over the defaults. A missing file
// yields the defaults, unless the path was given explicitly.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrConfigNotFound, path)
		}
		return cfg, nil
	}

	unknown, err := LoadTOML(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	cfg.Path = path
	cfg.Unknown = unknown
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if err := SaveTOML(path, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from SFCPAY_* environment variables.
func (c *Config) ApplyEnv() error {
	c.Credentials.CertificateFile = envOrDefault("SFCPAY_CERTIFICATE_FILE", c.Credentials.CertificateFile)
	c.Credentials.PrivateKeyFile = envOrDefault("SFCPAY_PRIVATE_KEY_FILE", c.Credentials.PrivateKeyFile)
	c.Credentials.PKCS12File = envOrDefault("SFCPAY_PKCS12_FILE", c.Credentials.PKCS12File)
	c.Credentials.PKCS12Password = envOrDefault("SFCPAY_PKCS12_PASSWORD", c.Credentials.PKCS12Password)
	c.Credentials.EncryptionKey = envOrDefault("SFCPAY_ENCRYPTION_KEY", c.Credentials.EncryptionKey)
	c.Credentials.EncryptionKeyKMSBlob = envOrDefault("SFCPAY_ENCRYPTION_KEY_KMS_BLOB", c.Credentials.EncryptionKeyKMSBlob)
	c.Credentials.KMSRegion = envOrDefault("SFCPAY_KMS_REGION", c.Credentials.KMSRegion)
	c.Archive.S3Bucket = envOrDefault("SFCPAY_ARCHIVE_BUCKET", c.Archive.S3Bucket)
	c.Audit.Path = envOrDefault("SFCPAY_AUDIT_PATH", c.Audit.Path)

	if v := os.Getenv("SFCPAY_UAT"); v != "" {
		uat, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SFCPAY_UAT %q: %w", v, err)
		}
		c.Credentials.UseTestEnvironment = uat
	}
	if v := os.Getenv("SFCPAY_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SFCPAY_TIMEOUT %q: %w", v, err)
		}
		c.Transport.Timeout = timeout
	}
	if v := os.Getenv("SFCPAY_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SFCPAY_CONCURRENCY %q: %w", v, err)
		}
		c.Batch.Concurrency = n
	}
	return nil
}

// AuditPath returns the audit log location, or "" when auditing is disabled.
func (c *Config) AuditPath() string {
	if c.Audit.Disabled {
		return ""
	}
	if c.Audit.Path != "" {
		if p, err := utils.ExpandPath(c.Audit.Path); err == nil {
			return p
		}
		return c.Audit.Path
	}
	return SfcpaySettings.AuditPath
}

// Validate checks values that cannot be caught by TOML decoding.
func (c *Config) Validate() error {
	var problems []string
	if c.Transport.Timeout < 0 {
		problems = append(problems, "transport.timeout must not be negative")
	}
	if c.Transport.ConnectTimeout < 0 {
		problems = append(problems, "transport.connect_timeout must not be negative")
	}
	if c.Batch.Concurrency < 0 {
		problems = append(problems, "batch.concurrency must not be negative")
	}
	if c.Credentials.PKCS12File != "" && (c.Credentials.CertificateFile != "" || c.Credentials.PrivateKeyFile != "") {
		problems = append(problems, "set either pkcs12_file or certificate_file/private_key_file, not both")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", kerrors.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
