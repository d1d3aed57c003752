package handler

import (
	"errors"
	"net/http"

	"github.com/alangunning/nomulus/internal/flows"
	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
	"github.com/alangunning/nomulus/pkg/epp"
	"github.com/alangunning/nomulus/pkg/platform/httputil"
)

// Result is the EPP <result> element.
type Result = epp.Result

// Envelope is the response body for every EPP endpoint.
type Envelope struct {
	Result  Result                  `json:"result"`
	ResData *flows.TransferResponse `json:"res_data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, data *flows.TransferResponse) {
	httputil.WriteJSON(w, http.StatusOK, Envelope{
		Result:  epp.NewResult(flows.ResultSuccess, ""),
		ResData: data,
	})
}

// writeFailure reports err with the HTTP status of its domain code. Only flow
// errors expose a reason.
func writeFailure(w http.ResponseWriter, err error) {
	result := epp.NewResult(flows.ResultCodeOf(err), "")

	var fe *flows.Error
	if errors.As(err, &fe) {
		result.Reason = fe.Message
	}
	httputil.WriteJSON(w, dErrors.HTTPStatus(dErrors.CodeOf(err)), Envelope{Result: result})
}

func writeSyntaxError(w http.ResponseWriter, err error) {
	result := epp.NewResult(flows.ResultCommandSyntaxError, "")
	var de *dErrors.Error
	if errors.As(err, &de) {
		result.Reason = de.Message
	}
	httputil.WriteJSON(w, http.StatusBadRequest, Envelope{Result: result})
}
