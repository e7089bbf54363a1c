package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PolarWolf314/sfcpay/internal/audit"
	"github.com/PolarWolf314/sfcpay/internal/codec"
	"github.com/PolarWolf314/sfcpay/internal/credentials"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/host"
	"github.com/PolarWolf314/sfcpay/internal/pipeline"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchOptions configures RunBatch.
type BatchOptions struct {
	// Concurrency bounds in-flight calls. Values below 1 run items one at a time.
	Concurrency int

	// Audit receives one entry per item. Nil disables auditing.
	Audit *audit.Writer

	// OnItem is called after each item completes, from the worker goroutine.
	OnItem func(ItemResult)
}

// ItemResult is the outcome of one item.
type ItemResult struct {
	Index     int    `json:"index"`
	Operation string `json:"operation,omitempty"`
	// Output is the decrypted API response, or {"error": message} for a
	// failed item in continue-on-failure mode.
	Output json.RawMessage `json:"output"`
	Err    error           `json:"-"`
}

// Failed reports whether the item recorded an error.
func (r ItemResult) Failed() bool { return r.Err != nil }

// BatchResult is the outcome of a batch run. Items are ordered by index.
type BatchResult struct {
	RunID       string       `json:"run_id"`
	Environment string       `json:"environment"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Items       []ItemResult `json:"items"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
}

// Outputs returns each item's output in order, one JSON value per item.
func (r *BatchResult) Outputs() []json.RawMessage {
	out := make([]json.RawMessage, len(r.Items))
	for i, item := range r.Items {
		out[i] = item.Output
	}
	return out
}

// ItemError identifies the item that aborted a batch.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string { return fmt.Sprintf("item %d: %v", e.Index, e.Err) }

func (e *ItemError) Unwrap() error { return e.Err }

// RunBatch runs one independent pipeline call per host item.
//
// Credentials are fetched once. When the host says to continue on failure,
// a failed item's output becomes {"error": message} and the batch carries on.
// Otherwise the first failure cancels the remaining items and is returned as
// an *ItemError.
func RunBatch(ctx context.Context, h host.Host, orch *pipeline.Orchestrator, opts BatchOptions) (*BatchResult, error) {
	count := h.GetItemCount()
	if count == 0 {
		return nil, kerrors.ErrNoItems
	}

	bundle, err := h.GetCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials: %w", err)
	}

	result := &BatchResult{
		RunID:       uuid.NewString(),
		Environment: bundle.Environment(),
		StartedAt:   time.Now().UTC(),
		Items:       make([]ItemResult, count),
	}
	continueOnFailure := h.ShouldContinueOnFailure()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))

	for i := 0; i < count; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			item := runItem(gctx, h, orch, bundle, i, result.RunID, opts.Audit)
			result.Items[i] = item
			if opts.OnItem != nil {
				opts.OnItem(item)
			}
			if item.Err != nil && !continueOnFailure {
				return &ItemError{Index: i, Err: item.Err}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.FinishedAt = time.Now().UTC()
	for _, item := range result.Items {
		if item.Failed() {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result, nil
}

// Call runs the host's single item. In continue-on-failure mode a failure is
// returned as an {"error": message} output with a nil error.
func Call(ctx context.Context, h host.Host, orch *pipeline.Orchestrator, auditLog *audit.Writer) (*ItemResult, error) {
	bundle, err := h.GetCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials: %w", err)
	}

	item := runItem(ctx, h, orch, bundle, 0, "", auditLog)
	if item.Err != nil && !h.ShouldContinueOnFailure() {
		return nil, item.Err
	}
	return &item, nil
}

func runItem(ctx context.Context, h host.Host, orch *pipeline.Orchestrator, bundle credentials.Bundle, i int, runID string, auditLog *audit.Writer) ItemResult {
	start := time.Now()
	entry := audit.Entry{RunID: runID, Environment: bundle.Environment()}
	if runID != "" {
		entry.Item = &i
	}

	item := ItemResult{Index: i}

	req, err := BuildRequest(h, i)
	if err != nil {
		op, _ := h.GetParameter(ParamOperation, i)
		entry.Operation = op
		item.Operation = op
		item.Err = &kerrors.RequestError{Operation: op, Stage: kerrors.StagePrepare, Err: err}
	} else {
		entry.Operation = string(req.Operation())
		entry.Method = req.Method()
		entry.Path = req.Path()
		item.Operation = string(req.Operation())

		res, err := orch.Do(ctx, bundle, req)
		if err != nil {
			item.Err = err
		} else {
			out, err := json.Marshal(res)
			if err != nil {
				item.Err = fmt.Errorf("rendering response: %w", err)
			} else {
				item.Output = out
				entry.StatusCode = res.StatusCode
				entry.ResultCode = &res.ResultCode
			}
		}
	}

	if item.Err != nil {
		item.Output = errorOutput(item.Err)
		entry.Error = item.Err.Error()
		entry.StatusCode, entry.ResultCode = failureCodes(item.Err)
	}

	entry.DurationMS = time.Since(start).Milliseconds()
	auditLog.Log(entry)
	return item
}

func errorOutput(err error) json.RawMessage {
	out, mErr := codec.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return json.RawMessage(`{"error":"unknown error"}`)
	}
	return out
}

func failureCodes(err error) (status int, result *int) {
	var apiErr *kerrors.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HasResultCode {
			code := apiErr.ResultCode
			result = &code
		}
		return apiErr.StatusCode, result
	}
	var transportErr *kerrors.TransportError
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode, nil
	}
	return 0, nil
}
