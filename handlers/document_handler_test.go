package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/guard"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/repositories"
	"github.com/govoffice/docdesk/services"
	"github.com/govoffice/docdesk/services/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	args := m.Called(ctx, id)
	if d := args.Get(0); d != nil {
		return d.(*models.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, filter repositories.DocumentFilter) ([]*models.Document, error) {
	args := m.Called(ctx, filter)
	if d := args.Get(0); d != nil {
		return d.([]*models.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDocumentRepository) WithTx(tx repositories.Transaction) repositories.DocumentRepository {
	return m
}

type MockDocumentAuditor struct {
	mock.Mock
}

func (m *MockDocumentAuditor) LogDocumentChange(action models.AuditAction, doc *models.Document, actor audit.Actor, meta audit.RequestMeta) error {
	return m.Called(action, doc, actor, meta).Error(0)
}

func TestDocumentHandler_List(t *testing.T) {
	assignee := uuid.New()

	tests := []struct {
		name       string
		query      string
		wantFilter *repositories.DocumentFilter
		wantStatus int
	}{
		{
			name:       "defaults",
			query:      "",
			wantFilter: &repositories.DocumentFilter{Limit: 50},
			wantStatus: http.StatusOK,
		},
		{
			name:  "all filters",
			query: "?direction=incoming&status=in_progress&assigned_to=" + assignee.String() + "&limit=5&offset=10",
			wantFilter: &repositories.DocumentFilter{
				Direction:  models.DirectionIncoming,
				Status:     models.DocumentStatusInProgress,
				AssignedTo: &assignee,
				Limit:      5,
				Offset:     10,
			},
			wantStatus: http.StatusOK,
		},
		{name: "bad direction", query: "?direction=sideways", wantStatus: http.StatusBadRequest},
		{name: "bad status", query: "?status=lost", wantStatus: http.StatusBadRequest},
		{name: "bad assignee", query: "?assigned_to=me", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockDocumentRepository)
			if tt.wantFilter != nil {
				repo.On("List", mock.Anything, *tt.wantFilter).Return(nil, nil)
			}

			w := httptest.NewRecorder()
			NewDocumentHandler(repo, nil, zap.NewNop()).HandleListDocuments(w, newRequest(http.MethodGet, "/api/v1/documents"+tt.query, "", nil, nil))

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"data":[]}`, w.Body.String())
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestDocumentHandler_Create(t *testing.T) {
	body := `{"reference":"IN-2026-0042","direction":"incoming","subject":"Budget request","counterparty":"Ministry of Finance"}`

	t.Run("registers and audits", func(t *testing.T) {
		state := adminState()
		repo := new(MockDocumentRepository)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(d *models.Document) bool {
			return d.Reference == "IN-2026-0042" && d.CreatedBy == *state.UserID && d.Status == models.DocumentStatusRegistered
		})).Return(nil)
		auditor := new(MockDocumentAuditor)
		auditor.On("LogDocumentChange", models.AuditActionDocumentCreated, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

		w := httptest.NewRecorder()
		NewDocumentHandler(repo, auditor, zap.NewNop()).HandleCreateDocument(w, newRequest(http.MethodPost, "/api/v1/documents", body, nil, state))

		require.Equal(t, http.StatusCreated, w.Code)
		repo.AssertExpectations(t)
		auditor.AssertExpectations(t)
	})

	t.Run("assignment moves document in progress", func(t *testing.T) {
		assignee := uuid.New()
		repo := new(MockDocumentRepository)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(d *models.Document) bool {
			return d.AssignedTo != nil && *d.AssignedTo == assignee && d.Status == models.DocumentStatusInProgress
		})).Return(nil)

		withAssignee := `{"reference":"OUT-7","direction":"outgoing","subject":"Reply","counterparty":"City Hall","assigned_to":"` + assignee.String() + `"}`
		w := httptest.NewRecorder()
		NewDocumentHandler(repo, nil, zap.NewNop()).HandleCreateDocument(w, newRequest(http.MethodPost, "/api/v1/documents", withAssignee, nil, adminState()))

		require.Equal(t, http.StatusCreated, w.Code)
		repo.AssertExpectations(t)
	})

	t.Run("capability-less session cannot register", func(t *testing.T) {
		degraded := &guard.AuthState{IsAuthenticated: true}
		w := httptest.NewRecorder()
		NewDocumentHandler(new(MockDocumentRepository), nil, zap.NewNop()).HandleCreateDocument(w, newRequest(http.MethodPost, "/api/v1/documents", body, nil, degraded))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("invalid direction", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewDocumentHandler(new(MockDocumentRepository), nil, zap.NewNop()).HandleCreateDocument(w,
			newRequest(http.MethodPost, "/api/v1/documents", `{"reference":"X","direction":"both","subject":"s","counterparty":"c"}`, nil, adminState()))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate reference", func(t *testing.T) {
		repo := new(MockDocumentRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(services.ErrDuplicateReference)

		w := httptest.NewRecorder()
		NewDocumentHandler(repo, nil, zap.NewNop()).HandleCreateDocument(w, newRequest(http.MethodPost, "/api/v1/documents", body, nil, adminState()))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown assignee", func(t *testing.T) {
		repo := new(MockDocumentRepository)
		repo.On("Create", mock.Anything, mock.Anything).
			Return(fmt.Errorf("failed to create document: %w", services.ErrUnknownAssignee.WithDetail("field", "assigned_to")))

		withAssignee := `{"reference":"OUT-7","direction":"outgoing","subject":"Reply","counterparty":"City Hall","assigned_to":"` + uuid.NewString() + `"}`
		w := httptest.NewRecorder()
		NewDocumentHandler(repo, nil, zap.NewNop()).HandleCreateDocument(w, newRequest(http.MethodPost, "/api/v1/documents", withAssignee, nil, adminState()))

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"bad_request","message":"assigned user does not exist","details":{"field":"assigned_to"}}`, w.Body.String())
	})
}

func TestDocumentHandler_Update(t *testing.T) {
	doc := models.NewDocument("IN-1", models.DirectionIncoming, "Subject", "Sender", uuid.New())
	params := map[string]string{"id": doc.ID.String()}

	t.Run("explicit status wins over assignment", func(t *testing.T) {
		assignee := uuid.New()
		repo := new(MockDocumentRepository)
		repo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(d *models.Document) bool {
			return d.Status == models.DocumentStatusDispatched && *d.AssignedTo == assignee
		})).Return(nil)

		body := `{"status":"dispatched","assigned_to":"` + assignee.String() + `"}`
		w := httptest.NewRecorder()
		NewDocumentHandler(repo, nil, zap.NewNop()).HandleUpdateDocument(w, newRequest(http.MethodPatch, "/api/v1/documents/"+doc.ID.String(), body, params, adminState()))

		require.Equal(t, http.StatusOK, w.Code)
		repo.AssertExpectations(t)
	})

	t.Run("missing document", func(t *testing.T) {
		repo := new(MockDocumentRepository)
		repo.On("GetByID", mock.Anything, doc.ID).Return(nil, services.ErrDocumentNotFound)

		w := httptest.NewRecorder()
		NewDocumentHandler(repo, nil, zap.NewNop()).HandleUpdateDocument(w, newRequest(http.MethodPatch, "/api/v1/documents/"+doc.ID.String(), `{"subject":"x"}`, params, adminState()))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDocumentHandler_Delete(t *testing.T) {
	doc := models.NewDocument("IN-1", models.DirectionIncoming, "Subject", "Sender", uuid.New())
	params := map[string]string{"id": doc.ID.String()}

	repo := new(MockDocumentRepository)
	repo.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	repo.On("Delete", mock.Anything, doc.ID).Return(nil)
	auditor := new(MockDocumentAuditor)
	auditor.On("LogDocumentChange", models.AuditActionDocumentDeleted, doc, mock.Anything, mock.Anything).Return(nil).Once()

	w := httptest.NewRecorder()
	NewDocumentHandler(repo, auditor, zap.NewNop()).HandleDeleteDocument(w, newRequest(http.MethodDelete, "/api/v1/documents/"+doc.ID.String(), "", params, adminState()))

	assert.Equal(t, http.StatusNoContent, w.Code)
	repo.AssertExpectations(t)
	auditor.AssertExpectations(t)
}
