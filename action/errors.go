package action

import (
	"errors"

	"github.com/syssam/keel"
)

// ErrorEnvelope is the §6 error response shape: { "error": { "type",
// "message", "fields"? } }. A single validation_error's path becomes a
// one-entry Fields map so httpapi can marshal it under the same "fields"
// key a multi-error response would use.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the inner object of ErrorEnvelope.
type ErrorBody struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ToEnvelope converts err into the canonical error envelope. Non-*keel.Error
// values (a connector bug that escaped its own error mapping, for
// instance) are reported as internal_server_error rather than leaking
// their own message shape.
func ToEnvelope(err error) ErrorEnvelope {
	var e *keel.Error
	if !errors.As(err, &e) {
		return ErrorEnvelope{Error: ErrorBody{
			Type:    string(keel.KindInternalServerError),
			Message: err.Error(),
		}}
	}
	body := ErrorBody{Type: string(e.Kind), Message: e.Message}
	if e.Path != "" {
		body.Fields = map[string]string{e.Path: e.Message}
	}
	return ErrorEnvelope{Error: body}
}

// StatusFor maps a canonical error Kind to the HTTP status httpapi should
// respond with, per §6's "HTTP 4xx/5xx" contract.
func StatusFor(kind keel.Kind) int {
	switch kind {
	case keel.KindDestinationNotFound:
		return 404
	case keel.KindObjectNotFound:
		return 404
	case keel.KindIncorrectJSONFormat,
		keel.KindUnexpectedInputRootType,
		keel.KindUnexpectedInputType,
		keel.KindUnexpectedInputKey,
		keel.KindUnexpectedInputValue,
		keel.KindMissingRequiredInput,
		keel.KindValidationError,
		keel.KindUniqueValueDuplicated,
		keel.KindObjectNotSavedCantDelete,
		keel.KindObjectIsDeleted:
		return 422
	case keel.KindInvalidAuthToken, keel.KindInvalidAuthorizationFormat:
		return 401
	case keel.KindWrongIdentityModel:
		return 403
	default:
		return 500
	}
}
