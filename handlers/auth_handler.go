package handlers

import (
	"net/http"

	"github.com/govoffice/docdesk/auth"
	"github.com/govoffice/docdesk/utils"
)

// AuthDeps provides the auth handler for route wiring.
type AuthDeps interface {
	AuthHandler() *auth.Handler
}

// AuthEndpoint is one of the auth.Handler methods.
type AuthEndpoint func(h *auth.Handler, w http.ResponseWriter, r *http.Request)

var (
	AuthLogin  AuthEndpoint = (*auth.Handler).HandleLogin
	AuthLogout AuthEndpoint = (*auth.Handler).HandleLogout
	AuthMe     AuthEndpoint = (*auth.Handler).HandleMe
)

// AuthHandlerFunc serves endpoint on the handler deps provides, or 500 when
// none is wired. The handler is looked up per request.
func AuthHandlerFunc(deps AuthDeps, endpoint AuthEndpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := deps.AuthHandler()
		if h == nil {
			_ = utils.WriteInternalServerError(w, "Authentication not configured")
			return
		}
		endpoint(h, w, r)
	}
}
