// Package pipeline runs one logical call against the SSG API: optional body
// encryption, the certificate-authenticated round trip, the result-code check
// and optional response decryption.
//
// # Empty Bodies
//
// A body that is nil or marshals to {}, [] or null is not sent at all and is
// never encrypted. This keeps "no body" distinct from "encrypted empty body".
//
// # Result Codes
//
// The API reports domain failures inside HTTP 200 responses through its
// result field. Any response whose result is missing or non-zero is returned
// as an *errors.APIError carrying the full response payload.
//
// # Errors
//
// Every failure leaves Execute as an *errors.RequestError naming the stage
// that failed. The underlying error stays reachable through errors.Is and
// errors.As:
//
//	var apiErr *kerrors.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Println(apiErr.ResultCode)
//	}
package pipeline
