package flows

import (
	"errors"
	"fmt"

	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
	"github.com/alangunning/nomulus/pkg/epp"
)

// ResultCode is an EPP result code as reported to registrars.
type ResultCode = epp.ResultCode

const (
	ResultSuccess                  = epp.ResultSuccess
	ResultCommandSyntaxError       = epp.ResultCommandSyntaxError
	ResultCommandUseError          = epp.ResultCommandUseError
	ResultAuthenticationError      = epp.ResultAuthenticationError
	ResultAuthorizationError       = epp.ResultAuthorizationError
	ResultInvalidAuthorizationInfo = epp.ResultInvalidAuthorizationInfo
	ResultObjectDoesNotExist       = epp.ResultObjectDoesNotExist
	ResultCommandFailed            = epp.ResultCommandFailed
	ResultSessionLimitExceeded     = epp.ResultSessionLimitExceeded
)

// Kind enumerates the business outcomes a flow can fail with.
type Kind string

const (
	KindResourceNotFound  Kind = "resource_not_found"
	KindBadCredential     Kind = "bad_credential"
	KindNoTransferHistory Kind = "no_transfer_history"
	KindNotAuthorized     Kind = "not_authorized"
)

// Error is the typed failure returned by flows. Exactly one Kind applies per
// invocation. It unwraps to a domain error so transport code can use
// dErrors.CodeOf without knowing about flows.
type Error struct {
	Kind       Kind
	ResultCode ResultCode
	Message    string
	domain     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.ResultCode, e.Message)
}

func (e *Error) Unwrap() error { return e.domain }

func newError(kind Kind, result ResultCode, code dErrors.Code, msg string) *Error {
	return &Error{
		Kind:       kind,
		ResultCode: result,
		Message:    msg,
		domain:     dErrors.New(code, msg),
	}
}

func ErrResourceNotFound(targetID string) *Error {
	return newError(KindResourceNotFound, ResultObjectDoesNotExist, dErrors.CodeNotFound,
		fmt.Sprintf("The domain with given ID (%s) doesn't exist.", targetID))
}

func ErrBadCredential() *Error {
	return newError(KindBadCredential, ResultInvalidAuthorizationInfo, dErrors.CodeForbidden,
		"Authorization information for accessing resource is invalid")
}

func ErrNoTransferHistory() *Error {
	return newError(KindNoTransferHistory, ResultCommandUseError, dErrors.CodeBadRequest,
		"Object has no transfer history")
}

func ErrNotAuthorized() *Error {
	return newError(KindNotAuthorized, ResultAuthorizationError, dErrors.CodeForbidden,
		"Registrar is not authorized to view transfer status")
}

// KindOf returns the flow error kind carried by err, or "" if err is not a flow error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// ResultCodeOf maps any error to the EPP result code the transport reports.
// Errors that are not flow outcomes report ResultCommandFailed.
func ResultCodeOf(err error) ResultCode {
	if err == nil {
		return ResultSuccess
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.ResultCode
	}
	return ResultCommandFailed
}
