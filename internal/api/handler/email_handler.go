package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/mail-dispatcher/internal/api/middleware"
	"github.com/notifyhub/mail-dispatcher/internal/domain"
	"github.com/notifyhub/mail-dispatcher/internal/service"
)

// EmailHandler handles the producer-facing enqueue endpoints.
type EmailHandler struct {
	svc    *service.EmailService
	logger *zap.Logger
}

func NewEmailHandler(svc *service.EmailService, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{svc: svc, logger: logger}
}

type queuedResponse struct {
	JobID    string           `json:"jobId"`
	Category domain.Category  `json:"category"`
	Type     domain.EmailType `json:"type"`
}

// Send handles POST /api/v1/emails/send
//
// @Summary  Queue a single email
// @Tags     emails
// @Accept   json
// @Produce  json
// @Param    body  body      domain.SendEmailRequest  true  "Category, type and payload"
// @Success  202   {object}  queuedResponse
// @Failure  404   {object}  map[string]string  "Unknown category"
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/emails/send [post]
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.send(w, r, req)
}

// SendCategory handles POST /api/v1/emails/send/{category}
//
// @Summary  Queue an email for the category named in the path
// @Tags     emails
// @Accept   json
// @Produce  json
// @Param    category  path      string  true  "account, subscription, security, project, payment or storage"
// @Success  202       {object}  queuedResponse
// @Router   /api/v1/emails/send/{category} [post]
func (h *EmailHandler) SendCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type    domain.EmailType `json:"type"`
		Payload domain.Payload   `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.send(w, r, domain.SendEmailRequest{
		Category: domain.Category(chi.URLParam(r, "category")),
		Type:     body.Type,
		Payload:  body.Payload,
	})
}

func (h *EmailHandler) send(w http.ResponseWriter, r *http.Request, req domain.SendEmailRequest) {
	job, err := h.svc.Send(r.Context(), req)
	if err != nil {
		h.logger.Warn("queue email failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("category", string(req.Category)),
			zap.String("type", string(req.Type)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondData(w, http.StatusAccepted, "Email queued successfully", queuedResponse{
		JobID:    job.ID,
		Category: job.Category,
		Type:     job.Type,
	})
}

// SendBatch handles POST /api/v1/emails/batch
//
// @Summary  Queue up to 100 emails; each entry is accepted or rejected on its own
// @Tags     emails
// @Accept   json
// @Produce  json
// @Param    body  body      domain.SendBatchRequest  true  "Batch payload"
// @Success  202   {object}  service.BatchResult
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/emails/batch [post]
func (h *EmailHandler) SendBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.SendBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.svc.SendBatch(r.Context(), req.Emails)
	if err != nil {
		h.logger.Warn("queue batch failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondData(w, http.StatusAccepted, "Batch processed", res)
}
