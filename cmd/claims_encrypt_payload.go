package cmd

import (
	"github.com/PolarWolf314/sfcpay/internal/claims"
	"github.com/PolarWolf314/sfcpay/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	courseID              string
	courseRunID           string
	courseFee             string
	courseStartDate       string
	individualNRIC        string
	individualEmail       string
	individualHomeNumber  string
	individualMobile      string
	additionalInformation string
)

func init() {
	encryptPayloadCmd.Flags().StringVar(&courseID, "course-id", "", "course reference number, e.g. TGS-2020002106")
	encryptPayloadCmd.Flags().StringVar(&courseRunID, "course-run-id", "", "course run id")
	encryptPayloadCmd.Flags().StringVar(&courseFee, "course-fee", "", "course fee to claim, e.g. 500.00")
	encryptPayloadCmd.Flags().StringVar(&courseStartDate, "course-start-date", "", "course start date (YYYY-MM-DD)")
	encryptPayloadCmd.Flags().StringVar(&individualNRIC, "nric", "", "learner NRIC or FIN")
	encryptPayloadCmd.Flags().StringVar(&individualEmail, "email", "", "learner email")
	encryptPayloadCmd.Flags().StringVar(&individualHomeNumber, "home-number", "", "learner home phone number")
	encryptPayloadCmd.Flags().StringVar(&individualMobile, "mobile-number", "", "learner mobile phone number")
	encryptPayloadCmd.Flags().StringVar(&additionalInformation, "additional-information", "", "free text passed to the portal")
}

func resetEncryptPayloadState() {
	courseID = ""
	courseRunID = ""
	courseFee = ""
	courseStartDate = ""
	individualNRIC = ""
	individualEmail = ""
	individualHomeNumber = ""
	individualMobile = ""
	additionalInformation = ""
}

var encryptPayloadCmd = &cobra.Command{
	Use:   "encrypt-payload",
	Short: "Encrypt a claim request for the SFC Pay portal",
	Long: `Asks the API to encrypt a claim request. The encrypted payload is posted
to the SFC Pay portal to let the learner submit the claim.

The fee is sent with two decimal places and the start date as YYYY-MM-DD.

Examples:
  sfcpay claims encrypt-payload --course-id TGS-2020002106 --course-run-id 10026 \
    --course-fee 500 --course-start-date 2024-03-01 --nric S1234567A --email learner@example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt-payload command")
		return runSingle(cmd, map[string]string{
			workflows.ParamOperation:              string(claims.OpEncryptPayload),
			workflows.ParamCourseID:               courseID,
			workflows.ParamCourseRunID:            courseRunID,
			workflows.ParamCourseFee:              courseFee,
			workflows.ParamCourseStartDate:        courseStartDate,
			workflows.ParamIndividualNRIC:         individualNRIC,
			workflows.ParamIndividualEmail:        individualEmail,
			workflows.ParamIndividualHomeNumber:   individualHomeNumber,
			workflows.ParamIndividualMobileNumber: individualMobile,
			workflows.ParamAdditionalInformation:  additionalInformation,
		})
	},
}
