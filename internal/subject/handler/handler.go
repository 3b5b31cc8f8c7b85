// Package handler exposes the subject directory admin endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taptrail/internal/subject/models"
	"taptrail/internal/subject/store"
	id "taptrail/pkg/domain"
	"taptrail/pkg/platform/httputil"
	"taptrail/pkg/requestcontext"
)

// Service defines the directory operations the endpoints need.
type Service interface {
	Create(ctx context.Context, uid, displayName, department string) (*models.Subject, error)
	Get(ctx context.Context, subjectID id.SubjectID) (*models.Subject, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.Subject, error)
	Update(ctx context.Context, subjectID id.SubjectID, displayName, department string) (*models.Subject, error)
	Deactivate(ctx context.Context, subjectID id.SubjectID) error
	ReassignUID(ctx context.Context, subjectID id.SubjectID, newUID string) (*models.Subject, error)
}

// Handler wires subject admin endpoints to the directory service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a subject handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts subject endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/subjects", h.HandleList)
	r.Post("/subjects", h.HandleCreate)
	r.Get("/subjects/{subjectID}", h.HandleGet)
	r.Put("/subjects/{subjectID}", h.HandleUpdate)
	r.Delete("/subjects/{subjectID}", h.HandleDeactivate)
	r.Put("/subjects/{subjectID}/uid", h.HandleReassignUID)
}

// HandleList handles GET /subjects requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := store.ListFilter{Search: q.Get("search")}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	subjects, err := h.service.List(ctx, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSubjects(subjects))
}

// HandleCreate handles POST /subjects requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSubjectRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	subject, err := h.service.Create(ctx, req.UID, req.DisplayName, req.Department)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromSubject(subject))
}

// HandleGet handles GET /subjects/{subjectID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	subject, err := h.service.Get(ctx, subjectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSubject(subject))
}

// HandleUpdate handles PUT /subjects/{subjectID} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req UpdateSubjectRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	subject, err := h.service.Update(ctx, subjectID, req.DisplayName, req.Department)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSubject(subject))
}

// HandleDeactivate handles DELETE /subjects/{subjectID} requests.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Deactivate(ctx, subjectID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReassignUID handles PUT /subjects/{subjectID}/uid requests.
func (h *Handler) HandleReassignUID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req ReassignUIDRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	subject, err := h.service.ReassignUID(ctx, subjectID, req.UID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSubject(subject))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "subject request failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
