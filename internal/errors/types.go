package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stage names the pipeline step a RequestError happened in.
type Stage string

const (
	StagePrepare   Stage = "prepare"
	StageEncrypt   Stage = "encrypt"
	StageTransport Stage = "transport"
	StageResult    Stage = "result"
	StageDecrypt   Stage = "decrypt"
)

// TransportError describes a failed round trip.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Timeout    bool
	// Body holds the raw response body for HTTP-level failures.
	Body []byte
	Err  error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("transport failure")
	if e.Method != "" || e.URL != "" {
		fmt.Fprintf(&b, " (%s %s)", e.Method, e.URL)
	}
	switch {
	case e.Timeout:
		b.WriteString(": request timed out")
	case e.StatusCode != 0:
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() []error {
	errs := []error{ErrTransport}
	if e.Timeout {
		errs = append(errs, ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// APIError is returned when the service answers with a result code other than 0.
// The wrapped API reports domain errors inside HTTP 200 responses, so StatusCode
// is usually 200.
type APIError struct {
	ResultCode int
	// HasResultCode is false when the response carried no result field at all.
	HasResultCode bool
	StatusCode    int
	Payload       map[string]json.RawMessage
}

func (e *APIError) Error() string {
	if !e.HasResultCode {
		return fmt.Sprintf("api response has no result code (HTTP %d)", e.StatusCode)
	}
	if msg := e.message(); msg != "" {
		return fmt.Sprintf("api returned result %d: %s", e.ResultCode, msg)
	}
	return fmt.Sprintf("api returned result %d", e.ResultCode)
}

func (e *APIError) Unwrap() error { return ErrAPI }

// message digs a human readable message out of the payload when the service provides one.
func (e *APIError) message() string {
	for _, field := range []string{"message", "error", "errors"} {
		raw, ok := e.Payload[field]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		return string(raw)
	}
	return ""
}

// RequestError is the single failure shape returned by the request pipeline.
type RequestError struct {
	Operation string
	Method    string
	Path      string
	Stage     Stage
	Err       error
}

func (e *RequestError) Error() string {
	op := e.Operation
	if op == "" {
		op = strings.TrimSpace(e.Method + " " + e.Path)
	}
	return fmt.Sprintf("%s failed at %s stage: %v", op, e.Stage, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
