package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/sfcpay/internal/audit"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	// Path is the audit log to read.
	Path string

	// Limit is the maximum number of entries to return. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool

	// Operations filters entries by operation (comma-separated).
	Operations string

	// RunID filters entries to one batch run.
	RunID string

	// FailedOnly keeps only entries that did not succeed.
	FailedOnly bool

	// Since filters entries after this date (YYYY-MM-DD format).
	Since string

	// Until filters entries before this date (YYYY-MM-DD format).
	Until string
}

// LogResult contains the outcome of a log operation.
type LogResult struct {
	Entries []audit.Entry

	// TotalEntriesBeforeFilter is the count of entries before filtering.
	TotalEntriesBeforeFilter int
}

// Log reads and filters the audit log.
//
// Returns ErrFileNotFound if no audit log exists.
// Returns ErrInvalidDate if a date filter is malformed.
func Log(ctx context.Context, opts LogOptions) (*LogResult, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: audit logging is disabled", kerrors.ErrFileNotFound)
	}

	entries, err := audit.ReadEntries(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, opts.Path)
	}

	result := &LogResult{TotalEntriesBeforeFilter: len(entries)}

	filtered := entries

	if opts.Operations != "" {
		ops := strings.Split(opts.Operations, ",")
		for i := range ops {
			ops[i] = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ops[i])), "sfc_")
		}
		filtered = filterEntries(filtered, func(e audit.Entry) bool {
			for _, op := range ops {
				if strings.EqualFold(e.Operation, op) {
					return true
				}
			}
			return false
		})
	}

	if opts.RunID != "" {
		filtered = filterEntries(filtered, func(e audit.Entry) bool { return e.RunID == opts.RunID })
	}

	if opts.FailedOnly {
		filtered = filterEntries(filtered, func(e audit.Entry) bool { return !e.Succeeded() })
	}

	if opts.Since != "" {
		since, err := time.Parse("2006-01-02", opts.Since)
		if err != nil {
			return nil, fmt.Errorf("%w: --since date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidDate)
		}
		filtered = filterEntries(filtered, func(e audit.Entry) bool {
			t, ok := entryTime(e)
			return ok && !t.Before(since)
		})
	}

	if opts.Until != "" {
		until, err := time.Parse("2006-01-02", opts.Until)
		if err != nil {
			return nil, fmt.Errorf("%w: --until date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidDate)
		}
		// Include the entire day.
		until = until.Add(24*time.Hour - time.Nanosecond)
		filtered = filterEntries(filtered, func(e audit.Entry) bool {
			t, ok := entryTime(e)
			return ok && !t.After(until)
		})
	}

	if opts.Reverse {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	// Limit always keeps the most recent entries.
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		if opts.Reverse {
			filtered = filtered[:opts.Limit]
		} else {
			filtered = audit.Tail(filtered, opts.Limit)
		}
	}

	result.Entries = filtered
	return result, nil
}

func filterEntries(entries []audit.Entry, keep func(audit.Entry) bool) []audit.Entry {
	var result []audit.Entry
	for _, e := range entries {
		if keep(e) {
			result = append(result, e)
		}
	}
	return result
}

func entryTime(e audit.Entry) (time.Time, bool) {
	t, err := time.Parse("2006-01-02T15:04:05.000000Z", e.Timestamp)
	if err != nil {
		t, err = time.Parse(time.RFC3339, e.Timestamp)
	}
	return t, err == nil
}
