// Package epp holds the EPP result codes and the <result> element every
// endpoint and middleware reports them in.
package epp

import (
	"net/http"

	"github.com/alangunning/nomulus/pkg/platform/httputil"
)

// ResultCode is an EPP result code as reported to registrars.
type ResultCode int

const (
	ResultSuccess                  ResultCode = 1000
	ResultCommandSyntaxError       ResultCode = 2001
	ResultCommandUseError          ResultCode = 2002
	ResultAuthenticationError      ResultCode = 2200
	ResultAuthorizationError       ResultCode = 2201
	ResultInvalidAuthorizationInfo ResultCode = 2202
	ResultObjectDoesNotExist       ResultCode = 2303
	ResultCommandFailed            ResultCode = 2400
	ResultSessionLimitExceeded     ResultCode = 2502
)

// Message is the standard EPP text for the code.
func (c ResultCode) Message() string {
	switch c {
	case ResultSuccess:
		return "Command completed successfully"
	case ResultCommandSyntaxError:
		return "Command syntax error"
	case ResultCommandUseError:
		return "Command use error"
	case ResultAuthenticationError:
		return "Authentication error"
	case ResultAuthorizationError:
		return "Authorization error"
	case ResultInvalidAuthorizationInfo:
		return "Invalid authorization information"
	case ResultObjectDoesNotExist:
		return "Object does not exist"
	case ResultSessionLimitExceeded:
		return "Session limit exceeded; server closing connection"
	default:
		return "Command failed"
	}
}

// Result is the EPP <result> element.
type Result struct {
	Code   ResultCode `json:"code"`
	Msg    string     `json:"msg"`
	Reason string     `json:"reason,omitempty"`
}

// NewResult fills Msg from the code's standard text.
func NewResult(code ResultCode, reason string) Result {
	return Result{Code: code, Msg: code.Message(), Reason: reason}
}

// WriteResult writes a response carrying only a result element.
func WriteResult(w http.ResponseWriter, status int, code ResultCode, reason string) {
	httputil.WriteJSON(w, status, struct {
		Result Result `json:"result"`
	}{NewResult(code, reason)})
}
