package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/PolarWolf314/sfcpay/cmd"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sfcpay",
	Short: "sfcpay - a client for the SkillsFuture Credit Pay claims API.",
	Long: `sfcpay talks to the SkillsFuture Credit Pay claims API over mutual TLS.

It encrypts claim requests, decrypts claim responses and uploads supporting
documents, one at a time or as a batch from a YAML or JSON file.

Usage:
  sfcpay <command> [flags]

Available Commands:
  claims    Encrypt, decrypt and upload claim data
  config    Create, inspect and check the configuration

Run 'sfcpay help <command>' for more details on a specific command.
`,
	Version:       cmd.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(c *cobra.Command, args []string) {
		figure.NewColorFigure("sfcpay", "small", "green", true).Print()
		fmt.Println()
		_ = c.Help()
	},
}

func init() {
	rootCmd.AddCommand(cmd.ClaimsCmd)
	rootCmd.AddCommand(cmd.ConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *cmd.ExitError
		if !errors.As(err, &exit) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cmd.ExitCode(err))
	}
}
