// Package audit records every SSG API call made by sfcpay.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line), by
// default at $XDG_DATA_HOME/sfcpay/audit.jsonl. Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Local user, batch run id and item index
//   - Operation, method, path and environment
//   - HTTP status, API result code and error message
//
// Request and response bodies, NRICs and key material are never logged.
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the call continues without error.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display. Malformed entries are
// silently skipped to handle partial writes.
package audit
