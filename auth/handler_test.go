package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/guard"
	"github.com/govoffice/docdesk/internal/permission"
	"github.com/govoffice/docdesk/middleware"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/services"
	"github.com/govoffice/docdesk/services/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogLoginSucceeded(user *models.User, meta audit.RequestMeta) error {
	return m.Called(user, meta).Error(0)
}

func (m *MockAuditor) LogLoginFailed(username, reason string, meta audit.RequestMeta) error {
	return m.Called(username, reason, meta).Error(0)
}

func (m *MockAuditor) LogLogout(actor audit.Actor, meta audit.RequestMeta) error {
	return m.Called(actor, meta).Error(0)
}

var testHasher = NewPasswordHasher(bcrypt.MinCost)

func newTestHandler(users UserStore, auditor Auditor) *Handler {
	store, _ := newStore(new(MockUserLoader), time.Second)
	return NewHandler(users, store, testHasher, auditor, Paths{Login: "/login", Landing: "/documents"}, zap.NewNop())
}

func userWithPassword(t *testing.T, password string, role permission.Role) *models.User {
	t.Helper()
	hash, err := testHasher.Hash(password)
	require.NoError(t, err)
	return models.NewUser("clerk", "clerk@office.gov", "Clerk", hash, role)
}

func postLogin(h *Handler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleLogin(w, r)
	return w
}

func TestHandleLogin_Success(t *testing.T) {
	tests := []struct {
		name         string
		returnURL    string
		wantRedirect string
	}{
		{"returns to requested screen", "/admin/users?page=2", "/admin/users?page=2"},
		{"no return url goes to landing", "", "/documents"},
		{"external url goes to landing", "https://evil.example/", "/documents"},
		{"scheme-relative url goes to landing", "//evil.example/", "/documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := userWithPassword(t, "s3cret-pass", permission.RoleUser)
			users := new(MockUserStore)
			users.On("GetByUsername", mock.Anything, "clerk").Return(user, nil)
			users.On("TouchLastLogin", mock.Anything, user.ID, mock.AnythingOfType("time.Time")).Return(nil)
			auditor := new(MockAuditor)
			auditor.On("LogLoginSucceeded", user, mock.Anything).Return(nil).Once()

			body, _ := json.Marshal(LoginRequest{Username: "clerk", Password: "s3cret-pass", ReturnURL: tt.returnURL})
			w := postLogin(newTestHandler(users, auditor), string(body))

			require.Equal(t, http.StatusOK, w.Code)
			var resp struct {
				Data LoginResponse `json:"data"`
			}
			raw := w.Body.String()
			require.NoError(t, json.Unmarshal([]byte(raw), &resp))
			assert.Equal(t, tt.wantRedirect, resp.Data.Redirect)
			require.NotNil(t, resp.Data.Session)
			assert.Equal(t, "clerk", resp.Data.Session.Username)
			assert.NotEmpty(t, resp.Data.Session.Permissions)

			require.Len(t, w.Result().Cookies(), 1)
			cookie := w.Result().Cookies()[0]
			assert.Equal(t, cookieName, cookie.Name)
			assert.True(t, cookie.HttpOnly)
			assert.NotContains(t, raw, cookie.Value)
			assert.NotContains(t, raw, `"token"`)
			users.AssertExpectations(t)
			auditor.AssertExpectations(t)
		})
	}
}

func TestHandleLogin_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(users *MockUserStore, auditor *MockAuditor)
		wantStatus int
	}{
		{
			name:       "malformed body",
			body:       `{"username":`,
			setup:      func(*MockUserStore, *MockAuditor) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing password",
			body:       `{"username":"clerk"}`,
			setup:      func(*MockUserStore, *MockAuditor) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown user",
			body: `{"username":"ghost","password":"x"}`,
			setup: func(users *MockUserStore, auditor *MockAuditor) {
				users.On("GetByUsername", mock.Anything, "ghost").Return(nil, services.ErrUserNotFound)
				auditor.On("LogLoginFailed", "ghost", "invalid_credentials", mock.Anything).Return(nil).Once()
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong password",
			body: `{"username":"clerk","password":"wrong"}`,
			setup: func(users *MockUserStore, auditor *MockAuditor) {
				users.On("GetByUsername", mock.Anything, "clerk").Return(userWithPassword(t, "right", permission.RoleUser), nil)
				auditor.On("LogLoginFailed", "clerk", "invalid_credentials", mock.Anything).Return(nil).Once()
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "unverified account",
			body: `{"username":"clerk","password":"right"}`,
			setup: func(users *MockUserStore, auditor *MockAuditor) {
				users.On("GetByUsername", mock.Anything, "clerk").Return(userWithPassword(t, "right", permission.RoleUnverified), nil)
				auditor.On("LogLoginFailed", "clerk", "inactive", mock.Anything).Return(nil).Once()
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "repository failure",
			body: `{"username":"clerk","password":"right"}`,
			setup: func(users *MockUserStore, auditor *MockAuditor) {
				users.On("GetByUsername", mock.Anything, "clerk").Return(nil, errors.New("connection refused"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserStore)
			auditor := new(MockAuditor)
			tt.setup(users, auditor)

			w := postLogin(newTestHandler(users, auditor), tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Empty(t, w.Result().Cookies())
			users.AssertExpectations(t)
			auditor.AssertExpectations(t)
		})
	}
}

func TestHandleLogout(t *testing.T) {
	user := models.NewUser("clerk", "clerk@office.gov", "Clerk", "", permission.RoleUser)
	auditor := new(MockAuditor)
	auditor.On("LogLogout", audit.Actor{UserID: &user.ID}, mock.Anything).Return(nil).Once()
	h := newTestHandler(new(MockUserStore), auditor)

	token, _, err := h.sessions.tokens.Issue(user)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	w := httptest.NewRecorder()

	h.HandleLogout(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"redirect":"/login"}}`, w.Body.String())
	auditor.AssertExpectations(t)
}

func TestHandleMe(t *testing.T) {
	h := newTestHandler(new(MockUserStore), nil)

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleMe(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":{"is_authenticated":false,"is_admin":false,"permissions":[]}}`, w.Body.String())
	})

	t.Run("formats granted permissions", func(t *testing.T) {
		id := uuid.New()
		state := guard.AuthState{
			IsAuthenticated: true,
			UserID:          &id,
			Username:        "clerk",
			Role:            permission.RoleUser,
			Permissions:     permission.NewSet("admin:backup", "documents:read", "role:auditor"),
		}
		r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		r = r.WithContext(middleware.WithAuthState(r.Context(), state))
		w := httptest.NewRecorder()

		h.HandleMe(w, r)

		var resp struct {
			Data SessionView `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Data.Permissions, 3)
		assert.Equal(t, "System: backup", resp.Data.Permissions[0].Text)
		assert.Equal(t, permission.ColorRed, resp.Data.Permissions[0].Color)
		assert.Equal(t, "Documents: View", resp.Data.Permissions[1].Text)
		assert.Equal(t, "Role: auditor", resp.Data.Permissions[2].Text)
	})
}
