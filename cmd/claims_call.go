package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PolarWolf314/sfcpay/internal/claims"
	"github.com/PolarWolf314/sfcpay/internal/utils"
	"github.com/PolarWolf314/sfcpay/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	callQuery   []string
	callBody    string
	callEncrypt bool
	callDecrypt bool
)

func init() {
	callCmd.Flags().StringArrayVarP(&callQuery, "query", "q", nil, "query parameter as key=value (repeatable)")
	callCmd.Flags().StringVar(&callBody, "body", "", "JSON request body; - reads stdin, @file reads a file")
	callCmd.Flags().BoolVar(&callEncrypt, "encrypt", false, "encrypt the request body")
	callCmd.Flags().BoolVar(&callDecrypt, "decrypt", false, "decrypt the response body")
}

func resetCallState() {
	callQuery = nil
	callBody = ""
	callEncrypt = false
	callDecrypt = false
}

var callCmd = &cobra.Command{
	Use:   "call METHOD PATH",
	Short: "Call any claims API endpoint",
	Long: `Sends a request to any path on the API with the configured client
certificate. Use --encrypt and --decrypt for endpoints that exchange
encrypted payloads. An empty body ({}, [] or null) is never sent.

Examples:
  sfcpay claims call GET /skillsFutureCredits/claims/1234567 -q nric=S1234567A --decrypt
  sfcpay claims call POST /skillsFutureCredits/claims/1234567 --body @cancel.json --encrypt --decrypt`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting call command")

		query, err := utils.ParseKeyValues(callQuery)
		if err != nil {
			return err
		}
		queryJSON := ""
		if len(query) > 0 {
			raw, err := json.Marshal(query)
			if err != nil {
				return fmt.Errorf("failed to encode query: %w", err)
			}
			queryJSON = string(raw)
		}

		body := ""
		if callBody != "" {
			data, err := utils.ReadInput(callBody)
			if err != nil {
				return err
			}
			body = string(data)
		}

		return runSingle(cmd, map[string]string{
			workflows.ParamOperation: string(claims.OpRaw),
			workflows.ParamMethod:    strings.ToUpper(args[0]),
			workflows.ParamPath:      args[1],
			workflows.ParamQuery:     queryJSON,
			workflows.ParamBody:      body,
			workflows.ParamEncrypt:   strconv.FormatBool(callEncrypt),
			workflows.ParamDecrypt:   strconv.FormatBool(callDecrypt),
		})
	},
}
