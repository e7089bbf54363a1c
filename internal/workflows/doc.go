// Package workflows provides high-level orchestration for sfcpay commands.
//
// Workflows coordinate the claims, pipeline, host, audit and archive packages
// to implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// spinners, and output formatting.
//
// The cmd/ package should be a thin layer that parses flags, calls the
// appropriate workflow, and formats the result for display. Workflows handle
// loading credentials, building requests from host parameters, running them
// through the pipeline, and recording audit entries.
//
// # Available Workflows
//
//   - BuildRequest: Turns one host item into a typed claims request
//   - Call: Runs a single item through the pipeline
//   - RunBatch: Runs every host item under the host's failure policy
//   - ArchiveBatch: Uploads a batch result to S3
//   - ResolveCredentials: Builds the credential bundle from config
//   - Check: Validates config and credentials without calling the API
//   - InitConfig: Writes a starter config file
//   - SealKey: Wraps the encryption key with AWS KMS
//   - Log: Reads and filters the audit log
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	result, err := workflows.Call(ctx, h, orch, auditLog)
//	var apiErr *kerrors.APIError
//	if errors.As(err, &apiErr) {
//	    // Show the result code returned by the API
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Cancelling it stops a batch from starting further items.
package workflows
