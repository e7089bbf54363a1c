package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/PolarWolf314/sfcpay/internal/audit"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/ui"
	"github.com/PolarWolf314/sfcpay/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	logLimit     int
	logReverse   bool
	logOperation string
	logRunID     string
	logFailed    bool
	logSince     string
	logUntil     string
	logOneline   bool
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation (comma-separated)")
	logCmd.Flags().StringVar(&logRunID, "run", "", "filter by batch run id")
	logCmd.Flags().BoolVar(&logFailed, "failed", false, "show only failed calls")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries after date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "show entries before date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "compact one-line format")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

// resetLogCommandState resets the log command's global state for testing.
func resetLogCommandState() {
	logLimit = 0
	logReverse = false
	logOperation = ""
	logRunID = ""
	logFailed = false
	logSince = ""
	logUntil = ""
	logOneline = false
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the audit log of API calls",
	Long: `Displays the audit log of claims API calls.

Shows what was called, against which environment, and how it ended. Payloads
and keys are never written to the log.

Examples:
  sfcpay claims log                                   # View full log
  sfcpay claims log -n 10                             # Last 10 entries
  sfcpay claims log --reverse                         # Most recent first
  sfcpay claims log --operation encrypt_payload       # Filter by operation
  sfcpay claims log --run 6f1c...                     # One batch run
  sfcpay claims log --failed --since 2024-01-01       # Recent failures
  sfcpay claims log --json                            # JSON output`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting log command")

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(statusOut, formatError(err))
		return reported(err)
	}

	result, err := workflows.Log(context.Background(), workflows.LogOptions{
		Path:       cfg.AuditPath(),
		Limit:      logLimit,
		Reverse:    logReverse,
		Operations: logOperation,
		RunID:      logRunID,
		FailedOnly: logFailed,
		Since:      logSince,
		Until:      logUntil,
	})
	if err != nil {
		fmt.Fprintln(statusOut, formatLogError(err))
		if isLogUnexpectedError(err) {
			return reported(err)
		}
		return nil
	}

	Logger.Debugf("Parsed %d entries from audit log", result.TotalEntriesBeforeFilter)
	Logger.Debugf("After filtering: %d entries", len(result.Entries))

	out := cmd.OutOrStdout()
	if logJSON {
		entries := result.Entries
		if entries == nil {
			entries = []audit.Entry{}
		}
		return printJSON(out, entries)
	}

	if len(result.Entries) == 0 {
		if result.TotalEntriesBeforeFilter == 0 {
			fmt.Fprintln(out, "No audit log entries found.")
		} else {
			fmt.Fprintln(out, "No audit log entries found matching the filters.")
		}
		return nil
	}

	for _, e := range result.Entries {
		if logOneline {
			fmt.Fprintf(out, "%s %s %s %s\n", formatDate(e.Timestamp), e.Operation, e.Environment, formatOutcome(e))
			continue
		}
		fmt.Fprintf(out, "%-19s  %-16s  %-10s  %-17s  %s\n",
			formatDateTime(e.Timestamp), e.Operation, e.Environment, formatOutcome(e), formatDetails(e))
	}
	return nil
}

// formatLogError formats a log error for display to the user.
func formatLogError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrFileNotFound):
		return ui.Info.Sprint("ℹ") + " No audit log found. Calls are logged after running any claims command."

	case errors.Is(err, kerrors.ErrInvalidDate):
		return ui.Error.Sprint("✗") + " " + err.Error()

	default:
		return ui.Error.Sprint("✗") + " Failed to read audit log: " + err.Error()
	}
}

// isLogUnexpectedError returns true if the error is unexpected and should cause a non-zero exit.
func isLogUnexpectedError(err error) bool {
	return !errors.Is(err, kerrors.ErrFileNotFound)
}

func formatDate(ts string) string {
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.Local().Format("2006-01-02")
	}
	return ts
}

func formatDateTime(ts string) string {
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.Local().Format("2006-01-02 15:04:05")
	}
	return ts
}

func formatOutcome(e audit.Entry) string {
	switch {
	case e.Succeeded():
		return ui.Success.Sprint("ok")
	case e.ResultCode != nil:
		return ui.Error.Sprint("result " + strconv.Itoa(*e.ResultCode))
	case e.StatusCode != 0:
		return ui.Error.Sprint("HTTP " + strconv.Itoa(e.StatusCode))
	default:
		return ui.Error.Sprint("failed")
	}
}

func formatDetails(e audit.Entry) string {
	details := fmt.Sprintf("%s %s (%dms)", e.Method, e.Path, e.DurationMS)
	if e.Item != nil {
		details = fmt.Sprintf("item %d of %s: %s", *e.Item, shortRunID(e.RunID), details)
	}
	if e.Error != "" {
		details += " " + ui.Muted.Sprint(e.Error)
	}
	return details
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

