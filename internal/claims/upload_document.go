package claims

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/google/uuid"
)

// Attachment is a supporting document sent inline as base64.
type Attachment struct {
	FileName       string `json:"fileName"`
	FileType       string `json:"fileType"`
	FileSize       string `json:"fileSize"`
	AttachmentID   string `json:"attachmentId"`
	AttachmentByte string `json:"attachmentByte"`
}

// UnmarshalJSON accepts fileSize as either a string or a number.
func (a *Attachment) UnmarshalJSON(data []byte) error {
	type plain Attachment
	var aux struct {
		plain
		FileSize json.RawMessage `json:"fileSize"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*a = Attachment(aux.plain)

	size := strings.TrimSpace(string(aux.FileSize))
	switch {
	case size == "" || size == "null":
		a.FileSize = ""
	case strings.HasPrefix(size, `"`):
		if err := json.Unmarshal(aux.FileSize, &a.FileSize); err != nil {
			return err
		}
	default:
		n, err := strconv.ParseInt(size, 10, 64)
		if err != nil {
			return fmt.Errorf("fileSize must be a whole number of bytes: %s", size)
		}
		a.FileSize = strconv.FormatInt(n, 10)
	}
	return nil
}

// Complete fills in the size and id of an inline attachment when absent.
func (a *Attachment) Complete() {
	if a.FileSize == "" {
		if data, err := base64.StdEncoding.DecodeString(a.AttachmentByte); err == nil {
			a.FileSize = strconv.Itoa(len(data))
		}
	}
	if a.AttachmentID == "" {
		a.AttachmentID = uuid.NewString()
	}
	if a.FileType == "" {
		a.FileType = strings.ToLower(strings.TrimPrefix(filepath.Ext(a.FileName), "."))
	}
}

// UploadDocument attaches supporting documents to an existing claim.
type UploadDocument struct {
	ClaimID     string       `json:"-"`
	NRIC        string       `json:"nric"`
	Attachments []Attachment `json:"attachments"`
}

// NewUploadDocument validates an upload request.
func NewUploadDocument(claimID, nric string, attachments []Attachment) (*UploadDocument, error) {
	claimID = strings.TrimSpace(claimID)
	if err := requireFields(map[string]string{
		"claim id":        claimID,
		"individual NRIC": nric,
	}); err != nil {
		return nil, err
	}

	normalized, err := NormalizeNRIC(nric)
	if err != nil {
		return nil, err
	}

	if len(attachments) == 0 {
		return nil, fmt.Errorf("%w: at least one attachment", kerrors.ErrMissingParameter)
	}
	for i, a := range attachments {
		if err := requireFields(map[string]string{
			fmt.Sprintf("attachment %d file name", i):     a.FileName,
			fmt.Sprintf("attachment %d file type", i):     a.FileType,
			fmt.Sprintf("attachment %d content", i):       a.AttachmentByte,
			fmt.Sprintf("attachment %d attachment id", i): a.AttachmentID,
		}); err != nil {
			return nil, err
		}
		if _, err := base64.StdEncoding.DecodeString(a.AttachmentByte); err != nil {
			return nil, fmt.Errorf("%w: attachment %q content is not valid base64", kerrors.ErrInvalidRequest, a.FileName)
		}
	}

	return &UploadDocument{ClaimID: claimID, NRIC: normalized, Attachments: attachments}, nil
}

// AttachmentFromFile reads a local file into an Attachment with a fresh id.
func AttachmentFromFile(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Attachment{}, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, path)
		}
		return Attachment{}, fmt.Errorf("failed to read attachment %s: %w", path, err)
	}
	if len(data) == 0 {
		return Attachment{}, fmt.Errorf("%w: attachment %s is empty", kerrors.ErrInvalidRequest, path)
	}

	name := filepath.Base(path)
	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if fileType == "" {
		return Attachment{}, fmt.Errorf("%w: cannot determine file type of %s", kerrors.ErrInvalidRequest, name)
	}

	return Attachment{
		FileName:       name,
		FileType:       fileType,
		FileSize:       strconv.Itoa(len(data)),
		AttachmentID:   uuid.NewString(),
		AttachmentByte: base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (d *UploadDocument) Operation() Operation     { return OpUploadDocument }
func (d *UploadDocument) Method() string           { return http.MethodPost }
func (d *UploadDocument) Path() string             { return SupportingDocumentsPath(d.ClaimID) }
func (d *UploadDocument) Query() map[string]string { return nil }
func (d *UploadDocument) Body() any                { return d }
func (d *UploadDocument) EncryptBody() bool        { return true }
func (d *UploadDocument) DecryptResponse() bool    { return true }
