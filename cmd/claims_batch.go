package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/PolarWolf314/sfcpay/internal/archive"
	"github.com/PolarWolf314/sfcpay/internal/host"
	"github.com/PolarWolf314/sfcpay/internal/ui"
	"github.com/PolarWolf314/sfcpay/internal/workflows"
	"github.com/spf13/cobra"
)

var (
	batchAbortOnFirstError bool
	batchConcurrency       int
	batchArchive           bool
	batchOutputsOnly       bool
)

func init() {
	batchCmd.Flags().BoolVar(&batchAbortOnFirstError, "abort-on-first-error", false, "stop the batch at the first failed item")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0, "maximum number of calls in flight (default from config)")
	batchCmd.Flags().BoolVar(&batchArchive, "archive", false, "upload the batch result to the configured S3 bucket")
	batchCmd.Flags().BoolVar(&batchOutputsOnly, "outputs", false, "print only the array of item outputs, in file order")
}

func resetBatchState() {
	batchAbortOnFirstError = false
	batchConcurrency = 0
	batchArchive = false
	batchOutputsOnly = false
}

var batchCmd = &cobra.Command{
	Use:   "batch ITEMS_FILE",
	Short: "Run many requests from an items file",
	Long: `Runs one API call per item in a YAML or JSON items file.

Each item is a map of parameters, falling back to the file's defaults:

  operation: encrypt_payload
  continue_on_failure: true
  defaults:
    courseId: TGS-2020002106
    courseRunId: "10026"
  items:
    - individualNric: S1234567A
      courseFee: 500
      courseStartDate: 2024-03-01

By default the first failure stops the batch. With --continue-on-failure (or
continue_on_failure in the file) a failed item's output is {"error": message}
and the remaining items still run.

The result, with one output per item in file order, is printed as JSON. With
--outputs only the array of item outputs is printed.

Examples:
  sfcpay claims batch claims.yaml --uat
  sfcpay claims batch claims.yaml --continue-on-failure --concurrency 8 --archive`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting batch command")

	if batchAbortOnFirstError && continueOnFailure {
		return Logger.ErrorfAndReturn("--abort-on-first-error and --continue-on-failure cannot be used together")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession(ctx)
	if err != nil {
		fmt.Fprintln(statusOut, formatError(err))
		return reported(err)
	}
	defer s.close()

	h, err := host.LoadFile(args[0], s.resolve)
	if err != nil {
		fmt.Fprintln(statusOut, formatError(err))
		return reported(err)
	}
	h.SetDefaultContinueOnFailure(!s.cfg.Batch.AbortOnFirstError)
	switch {
	case continueOnFailure:
		h.SetContinueOnFailure(true)
	case batchAbortOnFirstError:
		h.SetContinueOnFailure(false)
	}

	concurrency := s.cfg.Batch.Concurrency
	if batchConcurrency > 0 {
		concurrency = batchConcurrency
	}
	total := h.GetItemCount()
	Logger.Debugf("Running %d item(s) with concurrency %d, continue on failure: %t", total, concurrency, h.ShouldContinueOnFailure())

	var uploader *archive.Uploader
	if batchArchive {
		if s.cfg.Archive.S3Bucket == "" {
			err := fmt.Errorf("--archive needs [archive] s3_bucket or SFCPAY_ARCHIVE_BUCKET")
			fmt.Fprintln(statusOut, formatError(err))
			return reported(err)
		}
		client, err := archive.NewS3Client(ctx, s.cfg.Archive.S3Region)
		if err != nil {
			fmt.Fprintln(statusOut, formatError(err))
			return reported(err)
		}
		uploader = archive.NewUploader(client, s.cfg.Archive.S3Bucket, s.cfg.Archive.S3Prefix)
	}

	spinner, cleanup := startSpinner(fmt.Sprintf("Running %d item(s) against %s...", total, ui.Environment(s.bundle.Environment())), verbose)
	defer cleanup()

	var done atomic.Int32
	result, err := workflows.RunBatch(ctx, h, s.orch, workflows.BatchOptions{
		Concurrency: concurrency,
		Audit:       s.audit,
		OnItem: func(item workflows.ItemResult) {
			n := done.Add(1)
			if item.Failed() {
				Logger.Warnf("Item %d failed: %v", item.Index, item.Err)
			} else {
				Logger.Debugf("Item %d completed", item.Index)
			}
			spinner.Lock()
			spinner.Suffix = fmt.Sprintf(" Processed %d/%d item(s)...", n, total)
			spinner.Unlock()
		},
	})
	if err != nil {
		var itemErr *workflows.ItemError
		if errors.As(err, &itemErr) {
			spinner.FinalMSG = formatError(itemErr.Err) + "\n" +
				ui.Info.Sprint("→") + fmt.Sprintf(" Batch stopped at item %d; use ", itemErr.Index) +
				ui.Flag.Sprint("--continue-on-failure") + " to record failures and keep going"
		} else {
			spinner.FinalMSG = formatError(err)
		}
		return reported(err)
	}

	summary := fmt.Sprintf("Batch %s: %d succeeded, %d failed", ui.Highlight.Sprint(result.RunID), result.Succeeded, result.Failed)
	if result.Failed > 0 {
		spinner.FinalMSG = ui.Warning.Sprint("⚠") + " " + summary
	} else {
		spinner.FinalMSG = ui.Success.Sprint("✓") + " " + summary
	}

	if uploader != nil {
		uri, err := workflows.ArchiveBatch(ctx, uploader, result)
		if err != nil {
			Logger.WarnfAlways("Batch result was not archived: %v", err)
		} else {
			spinner.FinalMSG += "\n" + ui.Info.Sprint("→") + " Archived to " + ui.Path.Sprint(uri)
		}
	}

	if batchOutputsOnly {
		return printJSON(cmd.OutOrStdout(), result.Outputs())
	}
	return printJSON(cmd.OutOrStdout(), result)
}
