// Package claims defines the request shapes accepted by the SFC Pay claims API.
//
// Each operation is a concrete type implementing Request, validated when it
// is constructed so the pipeline never sends a half-filled body:
//
//   - EncryptPayload: POST /skillsFutureCredits/claims/encryptRequests
//   - DecryptPayload: POST /skillsFutureCredits/claims/decryptRequests
//   - UploadDocument: POST /skillsFutureCredits/claims/{claimId}/supportingdocuments
//   - Raw: any other endpoint, with explicit encryption flags
//
// # Operation Names
//
// Operations were renamed from encrypt_payload to sfc_encrypt_payload (and so
// on) at one point. ParseOperation accepts both spellings and always returns
// the canonical, unprefixed name.
//
// # Decrypt Payload Schema
//
// The decrypt-payload body was sent nested under claimResponse by earlier
// integrations and flat by later ones. Both are available as explicit schema
// versions; SchemaV2 (flat) is the default.
package claims
