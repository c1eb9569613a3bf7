// Package errors provides code-carrying domain errors. Services and handlers
// create them with New and branch on them with Is; the HTTP layer owns the
// translation from codes to status codes.
package errors

import "errors"

// Code classifies a domain error for transport mapping and operator diagnosis.
type Code string

const (
	CodeValidation Code = "validation"
	CodeBadRequest Code = "bad_request"
	CodeNotFound   Code = "not_found"

	// CodeInvalidStatus marks a status transition request outside the
	// recognized complaint status set. Caller error, never retried.
	CodeInvalidStatus Code = "invalid_status"

	// CodeInvalidProof means the verifier oracle ran and rejected the proof.
	// CodeVerifier means the oracle itself failed (config, network, parse);
	// the two must stay distinguishable for operator diagnosis.
	CodeInvalidProof Code = "invalid_proof"
	CodeVerifier     Code = "verifier_error"

	// Commitment tree programmer errors, fatal to the calling operation.
	CodeEmptyInput      Code = "empty_input"
	CodeIndexOutOfRange Code = "index_out_of_range"

	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeRateLimited  Code = "rate_limited"
	CodeInternal     Code = "internal"
	CodeUnavailable  Code = "unavailable"
)

// Error is a domain error with a stable code and an operator-facing message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New builds a domain error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in domain logic.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
