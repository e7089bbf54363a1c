// Package errors provides typed error values for sfcpay.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. Failures
// that carry diagnostics (the remote payload, the HTTP status, the pipeline
// stage) are typed structs that unwrap to their sentinel, so both
// errors.Is() and errors.As() work.
//
// # Error Categories
//
//   - Crypto errors: payload transform failures (ErrInvalidKey, ErrEncryptFailed, ErrDecryptFailed)
//   - Transport errors: TLS, connection, HTTP and timeout failures (TransportError)
//   - API errors: the service answered with a non-zero result code (APIError)
//   - Request errors: invalid or incomplete operation parameters (ErrInvalidRequest)
//   - Credential errors: unusable certificate, key or key source (ErrInvalidCredentials)
//
// # The Pipeline Boundary
//
// Every failure inside a single API call is returned as a *RequestError that
// records the stage it happened in and wraps the original cause:
//
//	res, err := orch.Execute(ctx, bundle, call)
//	var apiErr *kerrors.APIError
//	if errors.As(err, &apiErr) {
//	    // apiErr.Payload holds the full remote response
//	}
//	if errors.Is(err, kerrors.ErrTimeout) {
//	    // the round trip did not complete in time
//	}
package errors
