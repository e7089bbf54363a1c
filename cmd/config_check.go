package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/sfcpay/internal/configs"
	"github.com/PolarWolf314/sfcpay/internal/ui"
	"github.com/PolarWolf314/sfcpay/internal/utils"
	"github.com/PolarWolf314/sfcpay/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	checkJSONOutput bool
	// checkExitFunc is the function called to exit with a specific code.
	// Can be overridden for testing.
	checkExitFunc = os.Exit
)

func init() {
	configCheckCmd.Flags().BoolVar(&checkJSONOutput, "json", false, "output in JSON format")
}

func resetConfigCheckState() {
	checkJSONOutput = false
	checkExitFunc = os.Exit
}

// SetCheckExitFunc sets the exit function for testing purposes.
func SetCheckExitFunc(f func(int)) {
	checkExitFunc = f
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and credentials",
	Long: `Runs a series of checks on the configuration without calling the API.

The check command covers:
  - Config file presence, syntax and unknown keys
  - Client certificate and private key pairing
  - Certificate expiry (warns 30 days ahead)
  - Encryption key resolution, including AWS KMS
  - Audit log location and batch archive settings

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting config check command")

	if err := configs.LoadEnvFile(envFile); err != nil {
		Logger.Warnf("%v", err)
	}
	path, err := configs.ResolvePath(configFile)
	if err != nil {
		return err
	}

	spinner, cleanup := startSpinnerWithFlags("Running checks...", configVerbose, configDebug)
	result, err := workflows.Check(context.Background(), workflows.CheckOptions{
		ConfigPath: path,
		Explicit:   configFile != "",
		Credentials: workflows.CredentialOptions{
			PromptPassword: func(prompt string) ([]byte, error) {
				spinner.Stop()
				return utils.ReadPassphrase(prompt)
			},
		},
	})
	if err != nil {
		spinner.FinalMSG = ui.Error.Sprint("✗") + " Failed to run checks: " + err.Error()
		cleanup()
		return reported(err)
	}

	for _, check := range result.Checks {
		Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status.String(), check.Message)
	}

	switch {
	case checkJSONOutput:
	case result.Summary.Errors > 0:
		spinner.FinalMSG = ui.Error.Sprint("✗") + " Checks completed with errors"
	case result.Summary.Warnings > 0:
		spinner.FinalMSG = ui.Warning.Sprint("⚠") + " Checks completed with warnings"
	default:
		spinner.FinalMSG = ui.Success.Sprint("✓") + " Checks completed"
	}
	cleanup()

	if checkJSONOutput {
		if err := printJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		printCheckResults(cmd, result)
	}

	// Set exit code based on results.
	if result.Summary.Errors > 0 {
		checkExitFunc(2)
	} else if result.Summary.Warnings > 0 {
		checkExitFunc(1)
	}
	return nil
}

// printCheckResults prints the check results in a human-readable format.
func printCheckResults(cmd *cobra.Command, result *workflows.CheckReport) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Configuration %s\n\n", ui.Muted.Sprint(result.ConfigPath))

	for _, check := range result.Checks {
		var statusIcon string
		switch check.Status {
		case workflows.CheckPass:
			statusIcon = ui.Success.Sprint("✓")
		case workflows.CheckWarning:
			statusIcon = ui.Warning.Sprint("⚠")
		case workflows.CheckError:
			statusIcon = ui.Error.Sprint("✗")
		}
		fmt.Fprintf(w, "%s %s: %s\n", statusIcon, check.Name, check.Message)
	}

	if result.Environment != "" {
		fmt.Fprintf(w, "\nEnvironment: %s\n", ui.Environment(result.Environment))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Fprintf(w, ", %s", ui.Warning.Sprint(fmt.Sprintf("%d warning(s)", result.Summary.Warnings)))
	}
	if result.Summary.Errors > 0 {
		fmt.Fprintf(w, ", %s", ui.Error.Sprint(fmt.Sprintf("%d error(s)", result.Summary.Errors)))
	}
	fmt.Fprintln(w)

	if len(result.Suggestions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Suggestions:")
		for _, s := range result.Suggestions {
			fmt.Fprintf(w, "  %s %s\n", ui.Info.Sprint("→"), s)
		}
	}
}
