// Package handler exposes the reporting endpoints.
package handler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"taptrail/internal/reports/service"
	id "taptrail/pkg/domain"
	dErrors "taptrail/pkg/domain-errors"
	"taptrail/pkg/platform/httputil"
	"taptrail/pkg/requestcontext"
)

// Service defines the report operations the endpoints need.
type Service interface {
	Daily(ctx context.Context, day string, live bool) (*service.DailyReport, error)
	SubjectDaily(ctx context.Context, subjectID id.SubjectID, day string, live bool) (*service.SubjectDay, error)
	Monthly(ctx context.Context, year int, month time.Month) (*service.MonthlyReport, error)
	SubjectMonthly(ctx context.Context, subjectID id.SubjectID, year int, month time.Month) (*service.SubjectMonth, error)
	Live(ctx context.Context) (*service.LiveStats, error)
	TodayFeed(ctx context.Context) ([]service.FeedEntry, error)
	Analytics(ctx context.Context, subjectID id.SubjectID, days int) ([]service.SubjectDay, error)
}

// Handler wires report endpoints to the report service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a reports handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts report endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reports/daily", h.HandleDaily)
	r.Get("/reports/daily.csv", h.HandleDailyCSV)
	r.Get("/reports/monthly", h.HandleMonthly)
	r.Get("/reports/today", h.HandleTodayFeed)
	r.Get("/reports/subjects/{subjectID}/daily", h.HandleSubjectDaily)
	r.Get("/reports/subjects/{subjectID}/monthly", h.HandleSubjectMonthly)
	r.Get("/reports/subjects/{subjectID}/analytics", h.HandleAnalytics)
	r.Get("/stats/live", h.HandleLiveStats)
}

// HandleDaily handles GET /reports/daily?date=YYYY-MM-DD&live=true.
func (h *Handler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.service.Daily(ctx, r.URL.Query().Get("date"), r.URL.Query().Get("live") == "true")
	if err != nil {
		h.writeError(ctx, w, "daily report failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleDailyCSV handles GET /reports/daily.csv?date=YYYY-MM-DD. The report
// is streamed row by row; CSV shaping stays at this boundary.
func (h *Handler) HandleDailyCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.service.Daily(ctx, r.URL.Query().Get("date"), false)
	if err != nil {
		h.writeError(ctx, w, "daily csv failed", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="daily-`+report.Date+`.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "subject_id", "display_name", "department",
		"first_in", "last_out", "worked_minutes", "break_minutes", "is_late", "present"})
	for _, row := range report.PerSubject {
		_ = cw.Write([]string{
			row.Date,
			row.SubjectID.String(),
			row.DisplayName,
			row.Department,
			formatTime(row.FirstIn),
			formatTime(row.LastOut),
			strconv.Itoa(row.WorkedMinutes),
			strconv.Itoa(row.BreakMinutes),
			strconv.FormatBool(row.IsLate),
			strconv.FormatBool(row.Present),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.WarnContext(ctx, "csv stream interrupted",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// HandleMonthly handles GET /reports/monthly?month=YYYY-MM.
func (h *Handler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	year, month, err := parseMonth(ctx, r.URL.Query().Get("month"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	report, err := h.service.Monthly(ctx, year, month)
	if err != nil {
		h.writeError(ctx, w, "monthly report failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleTodayFeed handles GET /reports/today.
func (h *Handler) HandleTodayFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	feed, err := h.service.TodayFeed(ctx)
	if err != nil {
		h.writeError(ctx, w, "today feed failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": feed})
}

// HandleSubjectDaily handles GET /reports/subjects/{subjectID}/daily.
func (h *Handler) HandleSubjectDaily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	row, err := h.service.SubjectDaily(ctx, subjectID, r.URL.Query().Get("date"), r.URL.Query().Get("live") == "true")
	if err != nil {
		h.writeError(ctx, w, "subject daily failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, row)
}

// HandleSubjectMonthly handles GET /reports/subjects/{subjectID}/monthly.
func (h *Handler) HandleSubjectMonthly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	year, month, err := parseMonth(ctx, r.URL.Query().Get("month"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	row, err := h.service.SubjectMonthly(ctx, subjectID, year, month)
	if err != nil {
		h.writeError(ctx, w, "subject monthly failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, row)
}

// HandleAnalytics handles GET /reports/subjects/{subjectID}/analytics?days=30.
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 366 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "days must be a positive integer up to 366"))
			return
		}
		days = parsed
	}
	rows, err := h.service.Analytics(ctx, subjectID, days)
	if err != nil {
		h.writeError(ctx, w, "analytics failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"days": rows})
}

// HandleLiveStats handles GET /stats/live.
func (h *Handler) HandleLiveStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Live(ctx)
	if err != nil {
		h.writeError(ctx, w, "live stats failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// parseMonth resolves a YYYY-MM string; empty means the current month.
func parseMonth(ctx context.Context, raw string) (int, time.Month, error) {
	if raw == "" {
		now := requestcontext.Now(ctx)
		return now.Year(), now.Month(), nil
	}
	parsed, err := time.Parse("2006-01", raw)
	if err != nil {
		return 0, 0, dErrors.New(dErrors.CodeInvalidInput, "month must be YYYY-MM")
	}
	return parsed.Year(), parsed.Month(), nil
}
