package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alangunning/nomulus/internal/flows"
	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
	"github.com/alangunning/nomulus/pkg/epp"
	"github.com/alangunning/nomulus/pkg/platform/httputil"
	"github.com/alangunning/nomulus/pkg/requestcontext"
)

// TransferQuerier runs the domain transfer query flow.
type TransferQuerier interface {
	Run(ctx context.Context, cmd flows.Command) (*flows.TransferResponse, error)
}

// Handler wires EPP domain endpoints to their flows.
type Handler struct {
	transferQuery TransferQuerier
	logger        *slog.Logger
}

// New constructs an EPP handler.
func New(transferQuery TransferQuerier, logger *slog.Logger) *Handler {
	return &Handler{
		transferQuery: transferQuery,
		logger:        logger,
	}
}

// Register mounts EPP endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/epp/domain/transfer/query", h.HandleTransferQuery)
}

// HandleTransferQuery handles POST /epp/domain/transfer/query.
func (h *Handler) HandleTransferQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	registrarID := requestcontext.RegistrarID(ctx)
	if registrarID.IsNil() {
		epp.WriteResult(w, http.StatusUnauthorized, flows.ResultAuthenticationError, "")
		return
	}

	req, err := httputil.DecodeJSON[TransferQueryRequest](r)
	if err != nil {
		h.logger.WarnContext(ctx, "rejected transfer query body",
			"request_id", requestID,
			"registrar_id", registrarID,
			"error", err,
		)
		writeSyntaxError(w, err)
		return
	}

	cmd := req.ToCommand(registrarID)
	cmd.Now = requestcontext.Now(ctx)

	resp, err := h.transferQuery.Run(ctx, cmd)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeUnavailable {
			h.logger.ErrorContext(ctx, "transfer query failed",
				"request_id", requestID,
				"registrar_id", registrarID,
				"domain", req.Name,
				"error", err,
			)
		}
		writeFailure(w, err)
		return
	}

	h.logger.DebugContext(ctx, "transfer query served",
		"request_id", requestID,
		"registrar_id", registrarID,
		"domain", resp.Name,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeSuccess(w, resp)
}
