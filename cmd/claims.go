package cmd

import (
	"time"

	logger "github.com/PolarWolf314/sfcpay/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose           bool
	debug             bool
	useTestEnv        bool
	requestTimeout    time.Duration
	configPath        string
	envFile           string
	continueOnFailure bool
	Logger            logger.Logger

	ClaimsCmd = &cobra.Command{
		Use:   "claims",
		Short: "Call the SkillsFuture Credit claims API",
		Long: `Sends certificate-authenticated, encrypted requests to the SFC Pay claims API.

Credentials come from the config file (see 'sfcpay config init'), from
SFCPAY_* environment variables, or from a .env file in the working directory.

Use these commands to:
  - Encrypt a claim request for the SFC Pay portal (encrypt-payload)
  - Decrypt a claim status returned by the portal (decrypt-payload)
  - Upload supporting documents for a claim (upload-document)
  - Call any endpoint directly (call)
  - Run many requests from an items file (batch)
  - Review past calls (log)

Examples:
  # Encrypt a claim against the UAT environment
  sfcpay claims encrypt-payload --uat --course-id TGS-2020002106 --course-run-id 10026 \
    --course-fee 500 --course-start-date 2024-03-01 --nric S1234567A

  # Run a batch, recording failures instead of stopping
  sfcpay claims batch claims.yaml --continue-on-failure`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     statusOut,
			}
			Logger.Debugf("Initializing claims command with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	ClaimsCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	ClaimsCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	ClaimsCmd.PersistentFlags().BoolVar(&useTestEnv, "uat", false, "use the UAT environment instead of production")
	ClaimsCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 0, "overall timeout for each API call (e.g. 45s)")
	ClaimsCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file")
	ClaimsCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading SFCPAY_* variables")
	ClaimsCmd.PersistentFlags().BoolVar(&continueOnFailure, "continue-on-failure", false, "report failures as {\"error\": ...} output instead of failing")

	ClaimsCmd.AddCommand(encryptPayloadCmd)
	ClaimsCmd.AddCommand(decryptPayloadCmd)
	ClaimsCmd.AddCommand(uploadDocumentCmd)
	ClaimsCmd.AddCommand(callCmd)
	ClaimsCmd.AddCommand(batchCmd)
	ClaimsCmd.AddCommand(logCmd)
}

// Helper functions for testing

// GetClaimsCmd returns the ClaimsCmd for testing.
func GetClaimsCmd() *cobra.Command {
	return ClaimsCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	useTestEnv = false
	requestTimeout = 0
	configPath = ""
	envFile = ".env"
	continueOnFailure = false
	resetEncryptPayloadState()
	resetDecryptPayloadState()
	resetUploadDocumentState()
	resetCallState()
	resetBatchState()
	resetLogCommandState()
	resetCobraFlagState(ClaimsCmd)
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}

// resetCobraFlagState clears Changed on every flag so tests do not leak into each other.
func resetCobraFlagState(root *cobra.Command) {
	reset := func(flag *pflag.Flag) { flag.Changed = false }
	root.PersistentFlags().VisitAll(reset)
	root.Flags().VisitAll(reset)
	for _, c := range root.Commands() {
		c.Flags().VisitAll(reset)
	}
}
