package cmd

import (
	"strings"

	"github.com/PolarWolf314/sfcpay/internal/claims"
	"github.com/PolarWolf314/sfcpay/internal/utils"
	"github.com/PolarWolf314/sfcpay/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	uploadClaimID     string
	uploadNRIC        string
	uploadFiles       []string
	uploadAttachments string
)

func init() {
	uploadDocumentCmd.Flags().StringVar(&uploadClaimID, "claim-id", "", "claim id returned by the portal")
	uploadDocumentCmd.Flags().StringVar(&uploadNRIC, "nric", "", "learner NRIC or FIN")
	uploadDocumentCmd.Flags().StringSliceVarP(&uploadFiles, "file", "f", nil, "document to attach (repeatable)")
	uploadDocumentCmd.Flags().StringVar(&uploadAttachments, "attachments", "", "JSON array of prepared attachments; - reads stdin, @file reads a file")
}

func resetUploadDocumentState() {
	uploadClaimID = ""
	uploadNRIC = ""
	uploadFiles = nil
	uploadAttachments = ""
}

var uploadDocumentCmd = &cobra.Command{
	Use:   "upload-document",
	Short: "Upload supporting documents for a claim",
	Long: `Uploads one or more supporting documents for an existing claim.

Files are read, base64 encoded and given a fresh attachment id. Their type
comes from the file extension.

Examples:
  sfcpay claims upload-document --claim-id 1234567 --nric S1234567A -f invoice.pdf -f receipt.png`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting upload-document command")
		Logger.Debugf("Attaching %d file(s)", len(uploadFiles))

		var inline string
		if uploadAttachments != "" {
			data, err := utils.ReadInput(uploadAttachments)
			if err != nil {
				return err
			}
			inline = string(data)
		}

		return runSingle(cmd, map[string]string{
			workflows.ParamOperation:       string(claims.OpUploadDocument),
			workflows.ParamClaimID:         uploadClaimID,
			workflows.ParamIndividualNRIC:  uploadNRIC,
			workflows.ParamAttachmentFiles: strings.Join(uploadFiles, ","),
			workflows.ParamAttachments:     inline,
		})
	},
}
