package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/guard"
	"github.com/govoffice/docdesk/internal/permission"
	"github.com/govoffice/docdesk/middleware"
	"github.com/stretchr/testify/require"
)

// newRequest builds a request carrying chi URL params and, when state is
// non-nil, a resolved auth state.
func newRequest(method, target, body string, params map[string]string, state *guard.AuthState) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if state != nil {
		ctx = middleware.WithAuthState(ctx, *state)
	}
	return r.WithContext(ctx)
}

func adminState() *guard.AuthState {
	id := uuid.New()
	return &guard.AuthState{
		IsAuthenticated: true,
		IsAdmin:         true,
		UserID:          &id,
		Username:        "chief",
		Role:            permission.RoleAdmin,
		Permissions:     permission.ExpandDefaults(permission.RoleAdmin),
	}
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	envelope := struct {
		Data interface{} `json:"data"`
	}{Data: dst}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
}

func jsonDecode(w *httptest.ResponseRecorder, dst interface{}) error {
	return json.NewDecoder(w.Body).Decode(dst)
}
