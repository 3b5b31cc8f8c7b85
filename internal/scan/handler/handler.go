// Package handler exposes the kiosk scan endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taptrail/internal/scan/service"
	"taptrail/pkg/platform/httputil"
	"taptrail/pkg/requestcontext"
)

// Service defines the sequencer operations the kiosk endpoints need.
type Service interface {
	SubmitScan(ctx context.Context, rawUID string) (*service.Result, error)
	SubmitBreak(ctx context.Context, rawUID string) (*service.Result, error)
}

// Handler wires scan endpoints to the sequencer.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a scan handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts scan endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/scan", h.HandleScan)
	r.Post("/scan/break", h.HandleBreak)
}

// HandleScan handles POST /scan requests from kiosks.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.service.SubmitScan)
}

// HandleBreak handles POST /scan/break requests from kiosks.
func (h *Handler) HandleBreak(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.service.SubmitBreak)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*service.Result, error)) {
	ctx := r.Context()
	start := time.Now()

	var req ScanRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	result, err := op(ctx, req.UID)
	if err != nil {
		h.logger.WarnContext(ctx, "scan rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "scan handled",
		"request_id", requestcontext.RequestID(ctx),
		"subject_id", result.Subject.ID.String(),
		"kind", result.Event.Kind,
		"suppressed", result.Suppressed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
