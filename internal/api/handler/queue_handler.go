package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/service"
)

// QueueHandler serves the admin surface: queue stats, send quota, routing
// table, pause/resume, clean and job lookup.
// Raw Prometheus metrics are available at /metrics and are separate from
// these endpoints.
type QueueHandler struct {
	svc    *service.EmailService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.EmailService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

type categoryStats struct {
	Category domain.Category    `json:"category"`
	Stats    *domain.QueueStats `json:"stats"`
}

// Stats handles GET /api/v1/emails/stats
//
// @Summary  Queue counts for one category, or for all of them
// @Tags     queues
// @Produce  json
// @Param    category  query     string  false  "Restrict to one category"
// @Success  200       {object}  map[string]any
// @Router   /api/v1/emails/stats [get]
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if c := r.URL.Query().Get("category"); c != "" {
		stats, err := h.svc.Stats(r.Context(), domain.Category(c))
		if err != nil {
			mapError(w, err)
			return
		}
		respondData(w, http.StatusOK, "", categoryStats{Category: domain.Category(c), Stats: stats})
		return
	}
	respondData(w, http.StatusOK, "", h.svc.AllStats(r.Context()))
}

// Usage handles GET /api/v1/emails/usage
//
// @Summary  Today's send counts and the active credential slot
// @Tags     queues
// @Produce  json
// @Success  200  {object}  sender.Usage
// @Router   /api/v1/emails/usage [get]
func (h *QueueHandler) Usage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.svc.Usage(r.Context())
	if err != nil {
		h.logger.Error("read send usage", zap.Error(err))
		mapError(w, err)
		return
	}
	respondData(w, http.StatusOK, "", usage)
}

// Routes handles GET /api/v1/emails/routes
func (h *QueueHandler) Routes(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, "", h.svc.Routes())
}

// Pause handles POST /api/v1/emails/queues/{category}/pause
func (h *QueueHandler) Pause(w http.ResponseWriter, r *http.Request) {
	c := domain.Category(chi.URLParam(r, "category"))
	if err := h.svc.Pause(r.Context(), c); err != nil {
		mapError(w, err)
		return
	}
	respondData(w, http.StatusOK, "Queue paused", map[string]domain.Category{"category": c})
}

// Resume handles POST /api/v1/emails/queues/{category}/resume
func (h *QueueHandler) Resume(w http.ResponseWriter, r *http.Request) {
	c := domain.Category(chi.URLParam(r, "category"))
	if err := h.svc.Resume(r.Context(), c); err != nil {
		mapError(w, err)
		return
	}
	respondData(w, http.StatusOK, "Queue resumed", map[string]domain.Category{"category": c})
}

// Clean handles POST /api/v1/emails/queues/{category}/clean
//
// @Summary  Remove completed and failed jobs that finished more than grace ago
// @Tags     queues
// @Produce  json
// @Param    category  path      string  true   "Category"
// @Param    grace     query     int     false  "Grace period in milliseconds (default 3600000)"
// @Success  200       {object}  domain.CleanResult
// @Router   /api/v1/emails/queues/{category}/clean [post]
func (h *QueueHandler) Clean(w http.ResponseWriter, r *http.Request) {
	c := domain.Category(chi.URLParam(r, "category"))

	grace := service.DefaultCleanGrace
	if g := r.URL.Query().Get("grace"); g != "" {
		ms, err := strconv.ParseInt(g, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "grace must be an integer number of milliseconds")
			return
		}
		grace = time.Duration(ms) * time.Millisecond
	}

	res, err := h.svc.Clean(r.Context(), c, grace)
	if err != nil {
		mapError(w, err)
		return
	}
	respondData(w, http.StatusOK, "Queue cleaned", res)
}

// GetJob handles GET /api/v1/emails/queues/{category}/jobs/{id}
//
// @Summary  Look up a job within its category
// @Tags     queues
// @Produce  json
// @Success  200  {object}  domain.JobView
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/emails/queues/{category}/jobs/{id} [get]
func (h *QueueHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	c := domain.Category(chi.URLParam(r, "category"))
	job, err := h.svc.GetJob(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	if job == nil {
		mapError(w, domain.ErrNotFound)
		return
	}
	respondData(w, http.StatusOK, "", job)
}
