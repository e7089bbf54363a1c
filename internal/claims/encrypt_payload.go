package claims

import (
	"fmt"
	"net/http"
	"strings"

	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/utils"
)

// Course identifies the course run being claimed for.
type Course struct {
	ID        string `json:"id"`
	RunID     string `json:"runId"`
	Fee       string `json:"fee"`
	StartDate string `json:"startDate"`
}

// Individual identifies the learner making the claim.
type Individual struct {
	NRIC         string `json:"nric"`
	Email        string `json:"email"`
	HomeNumber   string `json:"homeNumber"`
	MobileNumber string `json:"mobileNumber"`
}

// ClaimRequest is the payload of an encrypt-payload call.
type ClaimRequest struct {
	Course                Course     `json:"course"`
	Individual            Individual `json:"individual"`
	AdditionalInformation string     `json:"additionalInformation"`
}

// EncryptPayload asks the API to encrypt a claim request for the SFC Pay portal.
type EncryptPayload struct {
	ClaimRequest ClaimRequest `json:"claimRequest"`
}

// NewEncryptPayload validates and normalizes a claim request.
//
// The fee is normalized to two decimal places, the start date to YYYY-MM-DD
// and the NRIC to upper case.
func NewEncryptPayload(claim ClaimRequest) (*EncryptPayload, error) {
	claim.Course.ID = strings.TrimSpace(claim.Course.ID)
	claim.Course.RunID = strings.TrimSpace(claim.Course.RunID)
	claim.Individual.Email = strings.TrimSpace(claim.Individual.Email)
	claim.Individual.HomeNumber = strings.TrimSpace(claim.Individual.HomeNumber)
	claim.Individual.MobileNumber = strings.TrimSpace(claim.Individual.MobileNumber)

	if err := requireFields(map[string]string{
		"course id":         claim.Course.ID,
		"course run id":     claim.Course.RunID,
		"course fee":        claim.Course.Fee,
		"course start date": claim.Course.StartDate,
		"individual NRIC":   claim.Individual.NRIC,
	}); err != nil {
		return nil, err
	}

	fee, err := NormalizeFee(claim.Course.Fee)
	if err != nil {
		return nil, err
	}
	claim.Course.Fee = fee

	startDate, err := NormalizeDate(claim.Course.StartDate)
	if err != nil {
		return nil, err
	}
	claim.Course.StartDate = startDate

	nric, err := NormalizeNRIC(claim.Individual.NRIC)
	if err != nil {
		return nil, err
	}
	claim.Individual.NRIC = nric

	if claim.Individual.Email != "" && !utils.IsValidEmail(claim.Individual.Email) {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrInvalidEmail, claim.Individual.Email)
	}

	return &EncryptPayload{ClaimRequest: claim}, nil
}

func (p *EncryptPayload) Operation() Operation     { return OpEncryptPayload }
func (p *EncryptPayload) Method() string           { return http.MethodPost }
func (p *EncryptPayload) Path() string             { return PathEncryptRequests }
func (p *EncryptPayload) Query() map[string]string { return nil }
func (p *EncryptPayload) Body() any                { return p }
func (p *EncryptPayload) EncryptBody() bool        { return true }
func (p *EncryptPayload) DecryptResponse() bool    { return true }
