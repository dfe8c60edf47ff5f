// Package domain defines the core business entities and errors.
package domain

import "errors"

// Pipeline error taxonomy. Callers match with errors.Is; KindOf maps an error
// onto the wire kind recorded in a failed task's result.
var (
	// ErrValidation is returned for malformed requests: an unrecognized tool type,
	// a missing document reference, an illegal entity.
	ErrValidation = errors.New("validation failed")

	// ErrAuth is returned when no authenticated owner is available.
	ErrAuth = errors.New("authentication required")

	// ErrDocumentUnavailable is returned when the document collaborator cannot
	// supply the content for a task.
	ErrDocumentUnavailable = errors.New("document unavailable")

	// ErrUpstream is returned when the generative backend fails or times out.
	ErrUpstream = errors.New("generative backend failed")

	// ErrParse is returned when generated output does not match the schema
	// of the requested tool type.
	ErrParse = errors.New("generated output rejected")

	// ErrPersistence is returned when a store read or write fails.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidTransition is returned when a status change would violate the
	// task state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRateLimited is returned when an owner submits requests faster than allowed.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ErrorKind is the stable, serialized name of an error class.
type ErrorKind string

const (
	KindValidation          ErrorKind = "ValidationError"
	KindAuth                ErrorKind = "AuthError"
	KindDocumentUnavailable ErrorKind = "DocumentUnavailable"
	KindUpstream            ErrorKind = "UpstreamError"
	KindParse               ErrorKind = "ParseError"
	KindPersistence         ErrorKind = "PersistenceError"
	KindInvalidTransition   ErrorKind = "InvalidTransitionError"
	KindRateLimited         ErrorKind = "RateLimitError"
	KindInternal            ErrorKind = "InternalError"
)

// KindOf classifies err. Errors outside the taxonomy are KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrDocumentUnavailable):
		return KindDocumentUnavailable
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	default:
		return KindInternal
	}
}
