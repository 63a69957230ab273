package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/govoffice/docdesk/auth"
	"github.com/govoffice/docdesk/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAuthDeps struct {
	handler *auth.Handler
}

func (d stubAuthDeps) AuthHandler() *auth.Handler { return d.handler }

func TestAuthHandlers_NotConfigured(t *testing.T) {
	deps := stubAuthDeps{}

	for name, endpoint := range map[string]AuthEndpoint{
		"login":  AuthLogin,
		"logout": AuthLogout,
		"me":     AuthMe,
	} {
		h := AuthHandlerFunc(deps, endpoint)
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodPost, "/auth/"+name, nil))

			require.Equal(t, http.StatusInternalServerError, w.Code)
			var resp utils.ErrorResponse
			require.NoError(t, jsonDecode(w, &resp))
			assert.Equal(t, "Authentication not configured", resp.Message)
		})
	}
}

func TestAuthHandlerFunc_Delegates(t *testing.T) {
	h := auth.NewHandler(nil, nil, auth.NewPasswordHasher(0), nil, auth.Paths{}, zap.NewNop())

	w := httptest.NewRecorder()
	AuthHandlerFunc(stubAuthDeps{handler: h}, AuthMe)(w, newRequest(http.MethodGet, "/auth/me", "", nil, adminState()))

	require.Equal(t, http.StatusOK, w.Code)
	var view auth.SessionView
	decodeData(t, w, &view)
	assert.True(t, view.IsAuthenticated)
	assert.Equal(t, "chief", view.Username)
}
