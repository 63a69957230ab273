package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/repositories"
	"github.com/govoffice/docdesk/utils"
	"go.uber.org/zap"
)

// AuditHandler serves the audit trail to administrators
type AuditHandler struct {
	auditRepo repositories.AuditRepository
	logger    *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditRepo repositories.AuditRepository, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// HandleListLogs handles GET /api/v1/audit/logs
// Filters: action, user_id, start and end (RFC 3339), request_id.
func (h *AuditHandler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if requestID := q.Get("request_id"); requestID != "" {
		logs, err := h.auditRepo.GetByRequestID(ctx, requestID)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		_ = utils.WriteOK(w, nonNilLogs(logs))
		return
	}

	limit, offset, err := utils.ParsePagination(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	filter := repositories.AuditFilter{
		Action: models.AuditAction(q.Get("action")),
		Limit:  limit,
		Offset: offset,
	}
	if v := q.Get("user_id"); v != "" {
		id, err := utils.ParseUUID(v, "user_id")
		if err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}
		filter.UserID = &id
	}
	for name, dst := range map[string]**time.Time{"start": &filter.Start, "end": &filter.End} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			_ = utils.WriteBadRequest(w, name+" must be an RFC 3339 timestamp", nil)
			return
		}
		*dst = &t
	}
	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		_ = utils.WriteBadRequest(w, "end must not be before start", nil)
		return
	}

	logs, err := h.auditRepo.List(ctx, filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, nonNilLogs(logs))
}

// HandleGetLog handles GET /api/v1/audit/logs/{id}
func (h *AuditHandler) HandleGetLog(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	log, err := h.auditRepo.GetByID(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, log)
}

func nonNilLogs(logs []*models.AuditLog) []*models.AuditLog {
	if logs == nil {
		return []*models.AuditLog{}
	}
	return logs
}
