// Package handler exposes the day-override admin endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"taptrail/internal/override/models"
	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/platform/httputil"
	"taptrail/pkg/requestcontext"
)

// Service defines the override operations the endpoints need.
type Service interface {
	Set(ctx context.Context, subjectID id.SubjectID, day string, status models.Status, notes string) (*models.Override, error)
	Remove(ctx context.Context, subjectID id.SubjectID, day string) error
	Get(ctx context.Context, subjectID id.SubjectID, day string) (*models.Override, error)
	ListMonth(ctx context.Context, subjectID id.SubjectID, month string) ([]models.Override, error)
}

// Handler wires override endpoints to the override service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an override handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts override endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/subjects/{subjectID}/overrides", h.HandleListMonth)
	r.Get("/subjects/{subjectID}/overrides/{day}", h.HandleGet)
	r.Put("/subjects/{subjectID}/overrides/{day}", h.HandleSet)
	r.Delete("/subjects/{subjectID}/overrides/{day}", h.HandleRemove)
}

// SetOverrideRequest is the HTTP request body for PUT .../overrides/{day}.
type SetOverrideRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// Validate checks required fields. Status values are checked by the service.
func (r *SetOverrideRequest) Validate() error {
	if r.Status == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "status is required")
	}
	return nil
}

// OverrideResponse is the HTTP representation of a day override.
type OverrideResponse struct {
	SubjectID string    `json:"subject_id"`
	Day       string    `json:"day"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func fromOverride(o *models.Override) OverrideResponse {
	resp := OverrideResponse{
		SubjectID: o.SubjectID.String(),
		Day:       o.Day,
		Status:    string(o.Status),
		Notes:     o.Notes,
		CreatedAt: o.CreatedAt,
	}
	if !o.CreatedBy.IsNil() {
		resp.CreatedBy = o.CreatedBy.String()
	}
	return resp
}

// HandleListMonth handles GET .../overrides?month=YYYY-MM requests.
func (h *Handler) HandleListMonth(w http.ResponseWriter, r *http.Request) {
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		month = requestcontext.Now(r.Context()).Format("2006-01")
	}

	overrides, err := h.service.ListMonth(r.Context(), subjectID, month)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]OverrideResponse, 0, len(overrides))
	for i := range overrides {
		out = append(out, fromOverride(&overrides[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"overrides": out})
}

// HandleGet handles GET .../overrides/{day} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	override, err := h.service.Get(r.Context(), subjectID, chi.URLParam(r, "day"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromOverride(override))
}

// HandleSet handles PUT .../overrides/{day} requests.
func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req SetOverrideRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	override, err := h.service.Set(r.Context(), subjectID, chi.URLParam(r, "day"), models.Status(req.Status), req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromOverride(override))
}

// HandleRemove handles DELETE .../overrides/{day} requests.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Remove(r.Context(), subjectID, chi.URLParam(r, "day")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "override request failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
