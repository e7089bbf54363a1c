package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/PolarWolf314/sfcpay/internal/claims"
	"github.com/PolarWolf314/sfcpay/internal/codec"
	"github.com/PolarWolf314/sfcpay/internal/credentials"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	logger "github.com/PolarWolf314/sfcpay/internal/logging"
	"github.com/PolarWolf314/sfcpay/internal/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/PolarWolf314/sfcpay/internal/pipeline"

// Sender performs the authenticated round trip. *transport.Client implements it.
type Sender interface {
	Send(ctx context.Context, bundle credentials.Bundle, req transport.Request) (*transport.Response, error)
}

// Call is one logical request before any encryption.
type Call struct {
	Operation string
	Method    string
	Path      string
	Query     map[string]string
	Body      any
	Encrypt   bool
	Decrypt   bool
}

// Result is a successful call's response.
type Result struct {
	Operation  string
	StatusCode int
	ResultCode int
	// Body is the response body, decrypted when the call asked for it.
	// It is nil when the response had no body field.
	Body json.RawMessage
	// Envelope is the full response payload with body replaced by Body.
	Envelope map[string]json.RawMessage
}

// MarshalJSON renders the envelope, so a result prints as the API response
// with its body already decrypted.
func (r *Result) MarshalJSON() ([]byte, error) {
	return codec.Marshal(r.Envelope)
}

// Orchestrator executes calls. It holds no per-call state and is safe for
// concurrent use.
type Orchestrator struct {
	sender Sender
	log    logger.Logger
	tracer trace.Tracer
}

// New returns an orchestrator sending through sender.
func New(sender Sender, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		sender: sender,
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
}

// Do executes a validated claims request.
func (o *Orchestrator) Do(ctx context.Context, bundle credentials.Bundle, req claims.Request) (*Result, error) {
	return o.Execute(ctx, bundle, Call{
		Operation: string(req.Operation()),
		Method:    req.Method(),
		Path:      req.Path(),
		Query:     req.Query(),
		Body:      req.Body(),
		Encrypt:   req.EncryptBody(),
		Decrypt:   req.DecryptResponse(),
	})
}

// Execute runs a call end to end.
func (o *Orchestrator) Execute(ctx context.Context, bundle credentials.Bundle, call Call) (result *Result, err error) {
	if call.Method == "" {
		call.Method = http.MethodPost
	}

	ctx, span := o.tracer.Start(ctx, "sfcpay."+spanName(call),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("sfcpay.operation", call.Operation),
			attribute.String("http.request.method", call.Method),
			attribute.String("sfcpay.path", call.Path),
			attribute.String("sfcpay.environment", bundle.Environment()),
			attribute.Bool("sfcpay.encrypt", call.Encrypt),
			attribute.Bool("sfcpay.decrypt", call.Decrypt),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("sfcpay.result_code", result.ResultCode))
		}
		span.End()
	}()

	fail := func(stage kerrors.Stage, cause error) error {
		return &kerrors.RequestError{
			Operation: call.Operation,
			Method:    call.Method,
			Path:      call.Path,
			Stage:     stage,
			Err:       cause,
		}
	}

	req := transport.Request{Method: call.Method, Path: call.Path, Query: call.Query}

	body, err := prepareBody(call.Body)
	if err != nil {
		return nil, fail(kerrors.StagePrepare, err)
	}
	switch {
	case body == nil:
		o.log.Debugf("%s: empty body, sending without one", describe(call))
	case call.Encrypt:
		ciphertext, err := codec.Encrypt(body, bundle.EncryptionKey)
		if err != nil {
			return nil, fail(kerrors.StageEncrypt, err)
		}
		req.Body = []byte(ciphertext)
		req.ContentType = transport.ContentTypeText
	default:
		req.Body = body
		req.ContentType = transport.ContentTypeJSON
	}

	o.log.Debugf("%s: sending to %s environment", describe(call), bundle.Environment())
	resp, err := o.sender.Send(ctx, bundle, req)
	if err != nil {
		return nil, fail(kerrors.StageTransport, err)
	}

	code, ok := resp.ResultCode()
	if !ok || code != 0 {
		return nil, fail(kerrors.StageResult, &kerrors.APIError{
			ResultCode:    code,
			HasResultCode: ok,
			StatusCode:    resp.StatusCode,
			Payload:       resp.Payload,
		})
	}

	envelope := make(map[string]json.RawMessage, len(resp.Payload))
	for k, v := range resp.Payload {
		envelope[k] = v
	}

	respBody := resp.Body()
	if call.Decrypt {
		plain, err := decryptBody(respBody, bundle.EncryptionKey)
		if err != nil {
			return nil, fail(kerrors.StageDecrypt, err)
		}
		respBody = plain
		envelope["body"] = plain
	}

	o.log.Debugf("%s: completed with result %d", describe(call), code)
	return &Result{
		Operation:  call.Operation,
		StatusCode: resp.StatusCode,
		ResultCode: code,
		Body:       respBody,
		Envelope:   envelope,
	}, nil
}

// prepareBody marshals the body, returning nil when it is empty.
func prepareBody(body any) (json.RawMessage, error) {
	if body == nil {
		return nil, nil
	}

	var raw []byte
	switch b := body.(type) {
	case json.RawMessage:
		raw = bytes.TrimSpace(b)
		if len(raw) > 0 && !json.Valid(raw) {
			return nil, fmt.Errorf("%w: body is not valid JSON", kerrors.ErrInvalidRequest)
		}
	default:
		marshalled, err := codec.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshalling body: %v", kerrors.ErrInvalidRequest, err)
		}
		raw = marshalled
	}

	if isEmptyJSON(raw) {
		return nil, nil
	}
	return raw, nil
}

// isEmptyJSON reports null, "", {} and [] as empty.
func isEmptyJSON(raw []byte) bool {
	if len(raw) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	}
	return false
}

// decryptBody expects the body field to be a JSON string holding ciphertext.
func decryptBody(raw json.RawMessage, key string) (json.RawMessage, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%w: response has no body to decrypt", kerrors.ErrDecryptFailed)
	}
	var ciphertext string
	if err := json.Unmarshal(raw, &ciphertext); err != nil {
		return nil, fmt.Errorf("%w: response body is not a ciphertext string", kerrors.ErrDecryptFailed)
	}
	return codec.Decrypt(ciphertext, key)
}

func spanName(call Call) string {
	if call.Operation != "" {
		return call.Operation
	}
	return "raw"
}

func describe(call Call) string {
	if call.Operation != "" {
		return fmt.Sprintf("%s (%s %s)", call.Operation, call.Method, call.Path)
	}
	return call.Method + " " + call.Path
}
