package cmd

import (
	"fmt"
	"strconv"

	"github.com/PolarWolf314/sfcpay/internal/configs"
	"github.com/PolarWolf314/sfcpay/internal/transport"
	"github.com/PolarWolf314/sfcpay/internal/ui"
	"github.com/PolarWolf314/sfcpay/internal/utils"
	"github.com/spf13/cobra"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Displays the configuration after the config file, .env file and SFCPAY_*
environment variables have been applied. Secrets are masked.

Examples:
  sfcpay config show
  sfcpay config show --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")

		cfg, err := loadConfig(configFile)
		if err != nil {
			cmd.PrintErrln(formatError(err))
			return reported(err)
		}

		sections := configSections(cfg)
		if configShowJSON {
			out := make(map[string]map[string]string, len(sections))
			for _, s := range sections {
				values := make(map[string]string, len(s.rows))
				for _, r := range s.rows {
					values[r.key] = r.value
				}
				out[s.name] = values
			}
			out["source"] = map[string]string{"path": cfg.Path}
			return printJSON(cmd.OutOrStdout(), out)
		}

		w := cmd.OutOrStdout()
		source := cfg.Path
		if source == "" {
			source = "defaults and environment"
		}
		fmt.Fprintf(w, "Configuration %s\n", ui.Muted.Sprint(source))
		for _, s := range sections {
			fmt.Fprintf(w, "\n[%s]\n", s.name)
			for _, r := range s.rows {
				fmt.Fprint(w, ui.KeyValue(r.key, r.value, 24))
			}
		}
		return nil
	},
}

type configRow struct {
	key   string
	value string
}

type configSection struct {
	name string
	rows []configRow
}

func configSections(cfg *configs.Config) []configSection {
	c := cfg.Credentials
	environment := "production"
	if c.UseTestEnvironment {
		environment = "uat"
	}

	productionURL := cfg.Transport.ProductionURL
	if productionURL == "" {
		productionURL = transport.ProductionBaseURL
	}
	testURL := cfg.Transport.TestURL
	if testURL == "" {
		testURL = transport.TestBaseURL
	}

	return []configSection{
		{"credentials", []configRow{
			{"certificate_file", c.CertificateFile},
			{"private_key_file", c.PrivateKeyFile},
			{"pkcs12_file", c.PKCS12File},
			{"encryption_key", utils.MaskSecret(c.EncryptionKey)},
			{"encryption_key_kms_blob", utils.MaskSecret(c.EncryptionKeyKMSBlob)},
			{"kms_key_id", c.KMSKeyID},
			{"kms_region", c.KMSRegion},
			{"environment", environment},
		}},
		{"transport", []configRow{
			{"timeout", cfg.Transport.Timeout.String()},
			{"connect_timeout", cfg.Transport.ConnectTimeout.String()},
			{"production_url", productionURL},
			{"test_url", testURL},
		}},
		{"batch", []configRow{
			{"concurrency", strconv.Itoa(cfg.Batch.Concurrency)},
			{"abort_on_first_error", strconv.FormatBool(cfg.Batch.AbortOnFirstError)},
		}},
		{"archive", []configRow{
			{"s3_bucket", cfg.Archive.S3Bucket},
			{"s3_region", cfg.Archive.S3Region},
			{"s3_prefix", cfg.Archive.S3Prefix},
		}},
		{"audit", []configRow{
			{"path", cfg.AuditPath()},
			{"disabled", strconv.FormatBool(cfg.Audit.Disabled)},
		}},
	}
}
