package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/govoffice/docdesk/middleware"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/repositories"
	"github.com/govoffice/docdesk/services/audit"
	"github.com/govoffice/docdesk/utils"
	"go.uber.org/zap"
)

// DocumentAuditor records register changes.
type DocumentAuditor interface {
	LogDocumentChange(action models.AuditAction, doc *models.Document, actor audit.Actor, meta audit.RequestMeta) error
}

// CreateDocumentRequest represents a request to register a document
type CreateDocumentRequest struct {
	Reference    string                   `json:"reference" validate:"required,max=64"`
	Direction    models.DocumentDirection `json:"direction" validate:"required,oneof=incoming outgoing"`
	Subject      string                   `json:"subject" validate:"required,max=512"`
	Counterparty string                   `json:"counterparty" validate:"required,max=255"`
	AssignedTo   *uuid.UUID               `json:"assigned_to,omitempty"`
	DueDate      *time.Time               `json:"due_date,omitempty"`
}

// UpdateDocumentRequest represents a partial document update
type UpdateDocumentRequest struct {
	Subject      *string                `json:"subject,omitempty" validate:"omitempty,max=512"`
	Counterparty *string                `json:"counterparty,omitempty" validate:"omitempty,max=255"`
	Status       *models.DocumentStatus `json:"status,omitempty" validate:"omitempty,oneof=registered in_progress dispatched archived"`
	AssignedTo   *uuid.UUID             `json:"assigned_to,omitempty"`
	DueDate      *time.Time             `json:"due_date,omitempty"`
}

// DocumentHandler handles correspondence register requests
type DocumentHandler struct {
	docRepo repositories.DocumentRepository
	auditor DocumentAuditor
	logger  *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler. auditor may be nil.
func NewDocumentHandler(docRepo repositories.DocumentRepository, auditor DocumentAuditor, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		docRepo: docRepo,
		auditor: auditor,
		logger:  logger,
	}
}

// HandleListDocuments handles GET /api/v1/documents
func (h *DocumentHandler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := utils.ParsePagination(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	filter := repositories.DocumentFilter{Limit: limit, Offset: offset}

	q := r.URL.Query()
	if v := q.Get("direction"); v != "" {
		filter.Direction = models.DocumentDirection(v)
		if !filter.Direction.IsValid() {
			_ = utils.WriteBadRequest(w, "direction must be incoming or outgoing", nil)
			return
		}
	}
	if v := q.Get("status"); v != "" {
		filter.Status = models.DocumentStatus(v)
		if !filter.Status.IsValid() {
			_ = utils.WriteBadRequest(w, "Invalid status", nil)
			return
		}
	}
	if v := q.Get("assigned_to"); v != "" {
		id, err := utils.ParseUUID(v, "assigned_to")
		if err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}
		filter.AssignedTo = &id
	}

	docs, err := h.docRepo.List(r.Context(), filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	_ = utils.WriteOK(w, docs)
}

// HandleGetDocument handles GET /api/v1/documents/{id}
func (h *DocumentHandler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	doc, err := h.docRepo.GetByID(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, doc)
}

// HandleCreateDocument handles POST /api/v1/documents
func (h *DocumentHandler) HandleCreateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if actor.UserID == nil {
		_ = utils.WriteForbidden(w, "A signed-in user is required to register documents")
		return
	}

	var req CreateDocumentRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	doc := models.NewDocument(req.Reference, req.Direction, req.Subject, req.Counterparty, *actor.UserID)
	doc.DueDate = req.DueDate
	if req.AssignedTo != nil {
		doc.Assign(*req.AssignedTo)
	}

	if err := h.docRepo.Create(ctx, doc); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("document registered",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("document_id", doc.ID.String()),
		zap.String("reference", doc.Reference))
	h.audit(models.AuditActionDocumentCreated, doc, r)

	_ = utils.WriteCreated(w, doc)
}

// HandleUpdateDocument handles PATCH /api/v1/documents/{id}
func (h *DocumentHandler) HandleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var req UpdateDocumentRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	doc, err := h.docRepo.GetByID(ctx, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if req.Subject != nil {
		doc.Subject = *req.Subject
	}
	if req.Counterparty != nil {
		doc.Counterparty = *req.Counterparty
	}
	if req.DueDate != nil {
		doc.DueDate = req.DueDate
	}
	if req.AssignedTo != nil {
		doc.Assign(*req.AssignedTo)
	}
	// An explicit status wins over the one implied by assignment.
	if req.Status != nil {
		doc.Status = *req.Status
	}
	doc.UpdatedAt = time.Now()

	if err := h.docRepo.Update(ctx, doc); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	h.audit(models.AuditActionDocumentUpdated, doc, r)

	_ = utils.WriteOK(w, doc)
}

// HandleDeleteDocument handles DELETE /api/v1/documents/{id}
func (h *DocumentHandler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	doc, err := h.docRepo.GetByID(ctx, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if err := h.docRepo.Delete(ctx, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	h.audit(models.AuditActionDocumentDeleted, doc, r)

	utils.WriteNoContent(w)
}

func (h *DocumentHandler) audit(action models.AuditAction, doc *models.Document, r *http.Request) {
	if h.auditor == nil {
		return
	}
	if err := h.auditor.LogDocumentChange(action, doc, middleware.ActorFromContext(r.Context()), middleware.RequestMeta(r)); err != nil {
		h.logger.Warn("failed to queue document audit event", zap.String("action", string(action)), zap.Error(err))
	}
}
