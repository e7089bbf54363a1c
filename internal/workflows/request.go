package workflows

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PolarWolf314/sfcpay/internal/claims"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/host"
	"github.com/PolarWolf314/sfcpay/internal/utils"
)

// Host parameter names.
const (
	ParamOperation              = "operation"
	ParamCourseID               = "courseId"
	ParamCourseRunID            = "courseRunId"
	ParamCourseFee              = "courseFee"
	ParamCourseStartDate        = "courseStartDate"
	ParamIndividualNRIC         = "individualNric"
	ParamIndividualEmail        = "individualEmail"
	ParamIndividualHomeNumber   = "individualHomeNumber"
	ParamIndividualMobileNumber = "individualMobileNumber"
	ParamAdditionalInformation  = "additionalInformation"
	ParamEncryptedPayload       = "encryptedPayload"
	ParamSchemaVersion          = "schemaVersion"
	ParamClaimID                = "claimId"
	ParamAttachmentFiles        = "attachmentFiles"
	ParamAttachments            = "attachments"
	ParamMethod                 = "method"
	ParamPath                   = "path"
	ParamQuery                  = "query"
	ParamBody                   = "body"
	ParamEncrypt                = "encrypt"
	ParamDecrypt                = "decrypt"
)

// BuildRequest assembles the request for item i from the host's parameters.
func BuildRequest(h host.Host, i int) (claims.Request, error) {
	p := paramReader{host: h, index: i}

	name := p.get(ParamOperation)
	if p.err != nil {
		return nil, p.err
	}
	op, err := claims.ParseOperation(name)
	if err != nil {
		return nil, err
	}

	switch op {
	case claims.OpEncryptPayload:
		claim := claims.ClaimRequest{
			Course: claims.Course{
				ID:        p.get(ParamCourseID),
				RunID:     p.get(ParamCourseRunID),
				Fee:       p.get(ParamCourseFee),
				StartDate: p.get(ParamCourseStartDate),
			},
			Individual: claims.Individual{
				NRIC:         p.get(ParamIndividualNRIC),
				Email:        p.get(ParamIndividualEmail),
				HomeNumber:   p.get(ParamIndividualHomeNumber),
				MobileNumber: p.get(ParamIndividualMobileNumber),
			},
			AdditionalInformation: p.get(ParamAdditionalInformation),
		}
		if p.err != nil {
			return nil, p.err
		}
		return claims.NewEncryptPayload(claim)

	case claims.OpDecryptPayload:
		payload, schemaName := p.get(ParamEncryptedPayload), p.get(ParamSchemaVersion)
		if p.err != nil {
			return nil, p.err
		}
		schema, err := claims.ParseSchemaVersion(schemaName)
		if err != nil {
			return nil, err
		}
		return claims.NewDecryptPayload(payload, schema)

	case claims.OpUploadDocument:
		claimID, nric := p.get(ParamClaimID), p.get(ParamIndividualNRIC)
		files, inline := p.get(ParamAttachmentFiles), p.get(ParamAttachments)
		if p.err != nil {
			return nil, p.err
		}
		attachments, err := buildAttachments(files, inline)
		if err != nil {
			return nil, err
		}
		return claims.NewUploadDocument(claimID, nric, attachments)

	default:
		method, path, query, body := p.get(ParamMethod), p.get(ParamPath), p.get(ParamQuery), p.get(ParamBody)
		encrypt, decrypt := p.get(ParamEncrypt), p.get(ParamDecrypt)
		if p.err != nil {
			return nil, p.err
		}
		return buildRaw(method, path, query, body, encrypt, decrypt)
	}
}

// paramReader keeps the first lookup error so field lists stay readable.
type paramReader struct {
	host  host.Host
	index int
	err   error
}

func (p *paramReader) get(name string) string {
	if p.err != nil {
		return ""
	}
	v, err := p.host.GetParameter(name, p.index)
	if err != nil {
		p.err = fmt.Errorf("reading parameter %s: %w", name, err)
		return ""
	}
	return strings.TrimSpace(v)
}

func buildAttachments(files, inline string) ([]claims.Attachment, error) {
	var attachments []claims.Attachment

	if inline != "" {
		if err := json.Unmarshal([]byte(inline), &attachments); err != nil {
			return nil, fmt.Errorf("%w: attachments must be a JSON array: %v", kerrors.ErrInvalidRequest, err)
		}
		for i := range attachments {
			attachments[i].Complete()
		}
	}

	for _, path := range strings.Split(files, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		expanded, err := utils.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		a, err := claims.AttachmentFromFile(expanded)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, nil
}

func buildRaw(method, path, query, body, encrypt, decrypt string) (*claims.Raw, error) {
	var params map[string]string
	if query != "" {
		if err := json.Unmarshal([]byte(query), &params); err != nil {
			return nil, fmt.Errorf("%w: query must be a JSON object of strings: %v", kerrors.ErrInvalidRequest, err)
		}
	}

	var payload any
	if body != "" {
		if !json.Valid([]byte(body)) {
			return nil, fmt.Errorf("%w: body is not valid JSON", kerrors.ErrInvalidRequest)
		}
		payload = json.RawMessage(body)
	}

	enc, err := parseFlag(ParamEncrypt, encrypt)
	if err != nil {
		return nil, err
	}
	dec, err := parseFlag(ParamDecrypt, decrypt)
	if err != nil {
		return nil, err
	}
	return claims.NewRaw(method, path, params, payload, enc, dec)
}

func parseFlag(name, v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false, got %q", kerrors.ErrInvalidRequest, name, v)
	}
	return b, nil
}
