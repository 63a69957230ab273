package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/govoffice/docdesk/internal/guard"
	"github.com/govoffice/docdesk/internal/observability"
	"github.com/govoffice/docdesk/services/audit"
	"github.com/govoffice/docdesk/utils"
	"go.uber.org/zap"
)

// AccessAuditor records gate denials.
type AccessAuditor interface {
	LogAccessDenied(actor audit.Actor, meta audit.RequestMeta, path, outcome string) error
}

// Gate turns guard decisions into HTTP responses.
type Gate struct {
	evaluator *guard.Evaluator
	auditor   AccessAuditor
	logger    *zap.Logger
}

// NewGate creates a Gate. auditor may be nil.
func NewGate(evaluator *guard.Evaluator, auditor AccessAuditor, logger *zap.Logger) *Gate {
	return &Gate{
		evaluator: evaluator,
		auditor:   auditor,
		logger:    logger,
	}
}

// Protect returns middleware enforcing opts. It must run after AuthMiddleware.LoadAuthState.
func (g *Gate) Protect(opts guard.GateOptions) func(http.Handler) http.Handler {
	mode := modeName(opts.Mode)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := GetAuthState(r.Context())
			outcome := guard.Decide(opts, state, g.evaluator)
			observability.RecordGateDecision(mode, outcome.String(), routePattern(r))

			switch outcome {
			case guard.OutcomeAllowed:
				next.ServeHTTP(w, r)
			case guard.OutcomeDeniedUnauthenticated:
				g.denyUnauthenticated(w, r, opts)
			case guard.OutcomeDeniedInsufficient:
				g.denyInsufficient(w, r, opts, state)
			default:
				g.logger.Error("gate reached without auth state",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("path", r.URL.Path))
				_ = utils.WriteInternalServerError(w, "")
			}
		})
	}
}

func (g *Gate) denyUnauthenticated(w http.ResponseWriter, r *http.Request, opts guard.GateOptions) {
	path, search := guard.RequestTarget(r)
	loginURL := guard.LoginRedirect(opts.LoginPath(), path, search)

	g.audit(r, guard.OutcomeDeniedUnauthenticated)

	if opts.Mode == guard.ModeJSON {
		_ = utils.WriteUnauthorized(w, "", map[string]interface{}{"login_url": loginURL})
		return
	}
	http.Redirect(w, r, loginURL, http.StatusFound)
}

func (g *Gate) denyInsufficient(w http.ResponseWriter, r *http.Request, opts guard.GateOptions, state *guard.AuthState) {
	g.logger.Warn("access denied: insufficient privileges",
		zap.String("request_id", GetRequestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
		zap.String("username", state.Username),
		zap.String("role", string(state.Role)),
		zap.Strings("required_permissions", permissionStrings(opts)))

	g.audit(r, guard.OutcomeDeniedInsufficient)

	if opts.Mode == guard.ModeJSON {
		_ = utils.WriteForbidden(w, "Insufficient permissions")
		return
	}
	http.Redirect(w, r, opts.Landing(), http.StatusFound)
}

func (g *Gate) audit(r *http.Request, outcome guard.Outcome) {
	if g.auditor == nil {
		return
	}
	err := g.auditor.LogAccessDenied(ActorFromContext(r.Context()), RequestMeta(r), r.URL.Path, outcome.String())
	if err != nil {
		g.logger.Debug("access denial not audited", zap.Error(err))
	}
}

func modeName(m guard.GateMode) string {
	if m == guard.ModeJSON {
		return "json"
	}
	return "redirect"
}

// routePattern keeps metric cardinality bounded by using the chi pattern instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func permissionStrings(opts guard.GateOptions) []string {
	out := make([]string, len(opts.Permissions))
	for i, p := range opts.Permissions {
		out[i] = string(p)
	}
	return out
}
