package errors

import "errors"

// Cryptographic errors indicate failures while transforming payloads.
var (
	// ErrInvalidKey indicates the encryption key is not valid base64 for a 256-bit key.
	ErrInvalidKey = errors.New("invalid encryption key")

	// ErrEncryptFailed indicates a request payload could not be encrypted.
	ErrEncryptFailed = errors.New("failed to encrypt payload")

	// ErrDecryptFailed indicates a response payload could not be decrypted.
	ErrDecryptFailed = errors.New("failed to decrypt payload")
)

// Transport errors indicate the request did not complete a usable round trip.
var (
	// ErrTransport indicates a connection, TLS or HTTP-level failure.
	ErrTransport = errors.New("transport failure")

	// ErrTimeout indicates the round trip exceeded its deadline.
	ErrTimeout = errors.New("request timed out")
)

// API errors indicate the remote service rejected the request.
var (
	// ErrAPI indicates the response carried a missing or non-zero result code.
	ErrAPI = errors.New("api reported an unsuccessful result")
)

// Credential and configuration errors.
var (
	// ErrInvalidCredentials indicates the credential bundle is incomplete or malformed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCertificateMismatch indicates the certificate and private key do not form a pair.
	ErrCertificateMismatch = errors.New("certificate and private key do not match")

	// ErrConfigNotFound indicates no configuration file exists at the expected path.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrConfigExists indicates a configuration file is already present.
	ErrConfigExists = errors.New("configuration file already exists")

	// ErrInvalidConfig indicates the configuration holds values that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrKeySourceFailed indicates the encryption key could not be resolved from its source.
	ErrKeySourceFailed = errors.New("failed to resolve encryption key")
)

// Request errors indicate invalid operation parameters.
var (
	// ErrInvalidRequest indicates a request shape failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMissingParameter indicates a required parameter was empty.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrUnknownOperation indicates the operation selector is not recognised.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidNRIC indicates the NRIC/FIN does not have the expected format.
	ErrInvalidNRIC = errors.New("invalid NRIC/FIN format")

	// ErrInvalidEmail indicates the email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidFee indicates the course fee is not a non-negative decimal.
	ErrInvalidFee = errors.New("invalid course fee")

	// ErrInvalidDate indicates a date could not be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrFileNotFound indicates a specific file could not be located.
	ErrFileNotFound = errors.New("file not found")
)

// Batch errors indicate problems with the item set handed over by the host.
var (
	// ErrNoItems indicates the host supplied no items to process.
	ErrNoItems = errors.New("no items to process")

	// ErrItemIndexOutOfRange indicates a parameter was requested for a non-existent item.
	ErrItemIndexOutOfRange = errors.New("item index out of range")
)
