// Package handler exposes the schedule admin endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"taptrail/internal/schedule/models"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/platform/httputil"
	"taptrail/pkg/requestcontext"
)

// Service defines the schedule operations the endpoints need.
type Service interface {
	Get(ctx context.Context) (models.Schedule, error)
	Replace(ctx context.Context, next models.Schedule) (models.Schedule, error)
}

// Handler wires schedule endpoints to the schedule service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a schedule handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts schedule endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/schedule", h.HandleGet)
	r.Put("/schedule", h.HandleReplace)
}

// ScheduleRequest is the HTTP request body for PUT /schedule.
type ScheduleRequest struct {
	WorkStart           string `json:"work_start"`
	WorkEnd             string `json:"work_end"`
	GraceMinutes        int    `json:"grace_minutes"`
	TimezoneOffsetHours int    `json:"timezone_offset_hours"`
}

// Validate checks required fields. Range checks live in models.Validate.
func (r *ScheduleRequest) Validate() error {
	r.WorkStart = strings.TrimSpace(r.WorkStart)
	r.WorkEnd = strings.TrimSpace(r.WorkEnd)
	if r.WorkStart == "" || r.WorkEnd == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "work_start and work_end are required")
	}
	return nil
}

// ScheduleResponse is the HTTP representation of the schedule snapshot.
type ScheduleResponse struct {
	WorkStart           string    `json:"work_start"`
	WorkEnd             string    `json:"work_end"`
	GraceMinutes        int       `json:"grace_minutes"`
	TimezoneOffsetHours int       `json:"timezone_offset_hours"`
	Version             int64     `json:"version"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func fromSchedule(s models.Schedule) ScheduleResponse {
	return ScheduleResponse{
		WorkStart:           s.WorkStart,
		WorkEnd:             s.WorkEnd,
		GraceMinutes:        s.GraceMinutes,
		TimezoneOffsetHours: s.TimezoneOffsetHours,
		Version:             s.Version,
		UpdatedAt:           s.UpdatedAt,
	}
}

// HandleGet handles GET /schedule requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sched, err := h.service.Get(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSchedule(sched))
}

// HandleReplace handles PUT /schedule requests.
func (h *Handler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	updated, err := h.service.Replace(r.Context(), models.Schedule{
		WorkStart:           req.WorkStart,
		WorkEnd:             req.WorkEnd,
		GraceMinutes:        req.GraceMinutes,
		TimezoneOffsetHours: req.TimezoneOffsetHours,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSchedule(updated))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "schedule request failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
