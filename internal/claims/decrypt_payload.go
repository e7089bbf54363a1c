package claims

import (
	"fmt"
	"net/http"
	"strings"

	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
)

// SchemaVersion selects the body layout of a decrypt-payload call.
type SchemaVersion string

const (
	// SchemaV1 nests the status under claimResponse.
	SchemaV1 SchemaVersion = "v1"

	// SchemaV2 sends the status at the top level.
	SchemaV2 SchemaVersion = "v2"

	DefaultSchema = SchemaV2
)

// ParseSchemaVersion resolves a schema selector; empty means DefaultSchema.
func ParseSchemaVersion(s string) (SchemaVersion, error) {
	switch v := SchemaVersion(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return DefaultSchema, nil
	case SchemaV1, SchemaV2:
		return v, nil
	}
	return "", fmt.Errorf("%w: unknown decrypt payload schema %q", kerrors.ErrInvalidRequest, s)
}

// DecryptPayload asks the API to decrypt a claim status returned by the SFC Pay portal.
type DecryptPayload struct {
	ClaimRequestStatus string
	Schema             SchemaVersion
}

// NewDecryptPayload validates a decrypt-payload request.
func NewDecryptPayload(claimRequestStatus string, schema SchemaVersion) (*DecryptPayload, error) {
	claimRequestStatus = strings.TrimSpace(claimRequestStatus)
	if claimRequestStatus == "" {
		return nil, fmt.Errorf("%w: claim request status", kerrors.ErrMissingParameter)
	}
	if schema == "" {
		schema = DefaultSchema
	}
	if schema != SchemaV1 && schema != SchemaV2 {
		return nil, fmt.Errorf("%w: unknown decrypt payload schema %q", kerrors.ErrInvalidRequest, schema)
	}
	return &DecryptPayload{ClaimRequestStatus: claimRequestStatus, Schema: schema}, nil
}

func (p *DecryptPayload) Operation() Operation     { return OpDecryptPayload }
func (p *DecryptPayload) Method() string           { return http.MethodPost }
func (p *DecryptPayload) Path() string             { return PathDecryptRequests }
func (p *DecryptPayload) Query() map[string]string { return nil }
func (p *DecryptPayload) EncryptBody() bool        { return true }
func (p *DecryptPayload) DecryptResponse() bool    { return true }

func (p *DecryptPayload) Body() any {
	status := map[string]string{"claimRequestStatus": p.ClaimRequestStatus}
	if p.Schema == SchemaV1 {
		return map[string]any{"claimResponse": status}
	}
	return status
}
