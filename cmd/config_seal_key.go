package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/sfcpay/internal/configs"
	"github.com/PolarWolf314/sfcpay/internal/keysource"
	"github.com/PolarWolf314/sfcpay/internal/ui"
	"github.com/PolarWolf314/sfcpay/internal/utils"
	"github.com/PolarWolf314/sfcpay/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	sealKMSKeyID string
	sealRegion   string
	sealKey      string
	sealGenerate bool
	sealSave     bool
)

func init() {
	configSealKeyCmd.Flags().StringVar(&sealKMSKeyID, "kms-key-id", "", "KMS key id, ARN or alias (default from kms_key_id)")
	configSealKeyCmd.Flags().StringVar(&sealRegion, "region", "", "AWS region of the KMS key (default from kms_region)")
	configSealKeyCmd.Flags().StringVar(&sealKey, "key", "", "encryption key to seal; - reads stdin, @file reads a file")
	configSealKeyCmd.Flags().BoolVar(&sealGenerate, "generate", false, "generate a new encryption key instead of sealing an existing one")
	configSealKeyCmd.Flags().BoolVar(&sealSave, "save", false, "write the sealed key to the config file and remove encryption_key")
}

func resetSealKeyState() {
	sealKMSKeyID = ""
	sealRegion = ""
	sealKey = ""
	sealGenerate = false
	sealSave = false
}

var configSealKeyCmd = &cobra.Command{
	Use:   "seal-key",
	Short: "Encrypt the API encryption key with AWS KMS",
	Long: `Encrypts the 256-bit API encryption key under an AWS KMS key. The result
goes in encryption_key_kms_blob, so the plain key never has to be stored.

The key to seal is taken from --key, then from the current configuration, and
is otherwise prompted for. With --generate a fresh key is created and printed
once so it can be registered with the API provider.

AWS credentials come from the default chain (environment, shared config, SSO
or instance role).

Examples:
  sfcpay config seal-key --kms-key-id alias/sfcpay --save
  sfcpay config seal-key --kms-key-id alias/sfcpay --generate`,
	Args: cobra.NoArgs,
	RunE: runSealKey,
}

func runSealKey(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting config seal-key command")

	cfg, err := loadConfig(configFile)
	if err != nil {
		cmd.PrintErrln(formatError(err))
		return reported(err)
	}

	keyID := firstNonEmpty(sealKMSKeyID, cfg.Credentials.KMSKeyID)
	region := firstNonEmpty(sealRegion, cfg.Credentials.KMSRegion)
	if keyID == "" {
		return Logger.ErrorfAndReturn("a KMS key is required: pass --kms-key-id or set kms_key_id")
	}

	key := ""
	switch {
	case sealGenerate:
	case sealKey != "":
		data, err := utils.ReadInput(sealKey)
		if err != nil {
			return err
		}
		key = strings.TrimSpace(string(data))
	case cfg.Credentials.EncryptionKey != "":
		Logger.Infof("Sealing the configured encryption key")
		key = cfg.Credentials.EncryptionKey
	default:
		data, err := utils.ReadPassphrase("Encryption key (base64): ")
		if err != nil {
			return err
		}
		key = strings.TrimSpace(string(data))
	}

	ctx := context.Background()
	client, err := keysource.NewKMSClient(ctx, region)
	if err != nil {
		cmd.PrintErrln(formatError(err))
		return reported(err)
	}

	spinner, cleanup := startSpinnerWithFlags("Sealing key with AWS KMS...", configVerbose, configDebug)
	result, err := workflows.SealKey(ctx, workflows.SealKeyOptions{KeyID: keyID, Key: key, Client: client})
	if err != nil {
		spinner.FinalMSG = formatError(err)
		cleanup()
		return reported(err)
	}
	spinner.FinalMSG = ui.Success.Sprint("✓") + " Key sealed with " + ui.Highlight.Sprint(keyID)

	if sealSave {
		path, err := saveSealedKey(configFile, keyID, region, result.Blob)
		if err != nil {
			spinner.FinalMSG = ui.Error.Sprint("✗") + " Failed to update config: " + err.Error()
			cleanup()
			return reported(err)
		}
		spinner.FinalMSG += "\n" + ui.Info.Sprint("→") + " Saved to " + ui.Path.Sprint(path)
	}
	if result.Generated {
		spinner.FinalMSG += "\n" + ui.Warning.Sprint("⚠") + " New encryption key, register it with the API provider: " + result.Key
	}
	cleanup()

	if !sealSave {
		fmt.Fprintln(cmd.OutOrStdout(), result.Blob)
	}
	return nil
}

// saveSealedKey updates the config file itself, not the environment-merged view.
func saveSealedKey(explicit, keyID, region, blob string) (string, error) {
	path, err := configs.ResolvePath(explicit)
	if err != nil {
		return "", err
	}
	cfg, err := configs.Load(path, explicit != "")
	if err != nil {
		return "", err
	}

	cfg.Credentials.EncryptionKey = ""
	cfg.Credentials.EncryptionKeyKMSBlob = blob
	cfg.Credentials.KMSKeyID = keyID
	if region != "" {
		cfg.Credentials.KMSRegion = region
	}
	if err := configs.Save(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
