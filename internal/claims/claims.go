package claims

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
)

// Operation selects one of the known request shapes.
type Operation string

const (
	OpEncryptPayload Operation = "encrypt_payload"
	OpDecryptPayload Operation = "decrypt_payload"
	OpUploadDocument Operation = "upload_document"
	OpRaw            Operation = "raw"
)

// Endpoint paths.
const (
	PathEncryptRequests     = "/skillsFutureCredits/claims/encryptRequests"
	PathDecryptRequests     = "/skillsFutureCredits/claims/decryptRequests"
	pathSupportingDocuments = "/skillsFutureCredits/claims/%s/supportingdocuments"
)

const legacyOperationPrefix = "sfc_"

// ParseOperation resolves an operation selector, accepting the sfc_ prefixed aliases.
func ParseOperation(name string) (Operation, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.TrimPrefix(normalized, legacyOperationPrefix)

	switch op := Operation(normalized); op {
	case OpEncryptPayload, OpDecryptPayload, OpUploadDocument, OpRaw:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", kerrors.ErrUnknownOperation, name)
}

// Request is implemented by every operation shape.
type Request interface {
	Operation() Operation
	Method() string
	Path() string
	Query() map[string]string
	// Body returns the JSON value sent to the API, before encryption.
	Body() any
	EncryptBody() bool
	DecryptResponse() bool
}

// SupportingDocumentsPath returns the upload path for a claim.
func SupportingDocumentsPath(claimID string) string {
	return fmt.Sprintf(pathSupportingDocuments, url.PathEscape(claimID))
}

// Raw is a request against an arbitrary endpoint.
type Raw struct {
	method  string
	path    string
	query   map[string]string
	body    any
	encrypt bool
	decrypt bool
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// NewRaw validates a generic request. A nil or empty body is sent without a body.
func NewRaw(method, path string, query map[string]string, body any, encrypt, decrypt bool) (*Raw, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if !allowedMethods[method] {
		return nil, fmt.Errorf("%w: unsupported method %q", kerrors.ErrInvalidRequest, method)
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: path %q must start with /", kerrors.ErrInvalidRequest, path)
	}
	if strings.Contains(path, "?") {
		return nil, fmt.Errorf("%w: pass query parameters separately, not in the path", kerrors.ErrInvalidRequest)
	}
	return &Raw{method: method, path: path, query: query, body: body, encrypt: encrypt, decrypt: decrypt}, nil
}

func (r *Raw) Operation() Operation     { return OpRaw }
func (r *Raw) Method() string           { return r.method }
func (r *Raw) Path() string             { return r.path }
func (r *Raw) Query() map[string]string { return r.query }
func (r *Raw) Body() any                { return r.body }
func (r *Raw) EncryptBody() bool        { return r.encrypt }
func (r *Raw) DecryptResponse() bool    { return r.decrypt }
