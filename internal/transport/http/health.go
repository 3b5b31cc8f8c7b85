package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"taptrail/internal/schedule/models"
	"taptrail/pkg/platform/httputil"
	"taptrail/pkg/requestcontext"
)

// Pinger is a dependency that can answer a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain probe function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type activeCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type scanCounter interface {
	CountRange(ctx context.Context, from, to time.Time) (int, error)
}

type scheduleSource interface {
	Get(ctx context.Context) (models.Schedule, error)
}

// Health reports process and dependency status plus a couple of cheap
// business counters kiosks use as a smoke check.
type Health struct {
	subjects  activeCounter
	events    scanCounter
	schedules scheduleSource
	logger    *slog.Logger

	// nil entries mean the dependency is not configured and is skipped.
	probes map[string]Pinger
}

// NewHealth constructs the health endpoint.
func NewHealth(subjects activeCounter, events scanCounter, schedules scheduleSource, logger *slog.Logger) *Health {
	return &Health{
		subjects:  subjects,
		events:    events,
		schedules: schedules,
		logger:    logger,
		probes:    map[string]Pinger{},
	}
}

// AddProbe registers a named dependency probe. Nil probes are ignored.
func (h *Health) AddProbe(name string, p Pinger) {
	if p != nil {
		h.probes[name] = p
	}
}

type healthResponse struct {
	Status         string            `json:"status"`
	Dependencies   map[string]string `json:"dependencies,omitempty"`
	ActiveSubjects int               `json:"active_subjects"`
	ScansToday     int               `json:"scans_today"`
}

// Handle handles GET /health requests.
func (h *Health) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Dependencies: map[string]string{}}
	status := http.StatusOK

	for name, probe := range h.probes {
		if err := probe.Ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "health probe failed", "dependency", name, "error", err)
			resp.Dependencies[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = "up"
	}

	if count, err := h.subjects.CountActive(ctx); err == nil {
		resp.ActiveSubjects = count
	}
	if sched, err := h.schedules.Get(ctx); err == nil {
		now := requestcontext.Now(ctx)
		local := now.In(sched.Location())
		dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, sched.Location())
		if count, err := h.events.CountRange(ctx, dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC()); err == nil {
			resp.ScansToday = count
		}
	}

	httputil.WriteJSON(w, status, resp)
}
