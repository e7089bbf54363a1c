package cmd

import (
	"strings"

	"github.com/PolarWolf314/sfcpay/internal/claims"
	"github.com/PolarWolf314/sfcpay/internal/utils"
	"github.com/PolarWolf314/sfcpay/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	decryptPayload string
	decryptSchema  string
)

func init() {
	decryptPayloadCmd.Flags().StringVar(&decryptPayload, "payload", "", "encrypted claim status; - reads stdin, @file reads a file")
	decryptPayloadCmd.Flags().StringVar(&decryptSchema, "schema", string(claims.DefaultSchema), "request body layout (v1 or v2)")
}

func resetDecryptPayloadState() {
	decryptPayload = ""
	decryptSchema = string(claims.DefaultSchema)
}

var decryptPayloadCmd = &cobra.Command{
	Use:   "decrypt-payload",
	Short: "Decrypt a claim status returned by the SFC Pay portal",
	Long: `Asks the API to decrypt the claim status the SFC Pay portal posts back
after a learner submits a claim.

Examples:
  sfcpay claims decrypt-payload --payload "$CLAIM_STATUS"
  pbpaste | sfcpay claims decrypt-payload --payload -
  sfcpay claims decrypt-payload --payload @status.txt --schema v1
  sfcpay claims decrypt-payload < status.txt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt-payload command")

		payload, err := utils.ReadInput(payloadSource(decryptPayload))
		if err != nil {
			return err
		}

		return runSingle(cmd, map[string]string{
			workflows.ParamOperation:        string(claims.OpDecryptPayload),
			workflows.ParamEncryptedPayload: strings.TrimSpace(string(payload)),
			workflows.ParamSchemaVersion:    decryptSchema,
		})
	},
}

// payloadSource reads piped stdin when no --payload was given.
func payloadSource(flag string) string {
	if flag == "" && !utils.IsTerminal() {
		return "-"
	}
	return flag
}
