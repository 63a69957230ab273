package guard

import "github.com/govoffice/docdesk/internal/permission"

// Outcome is the state a gated route ends up in.
type Outcome int

const (
	// OutcomePending means the auth state has not been resolved yet.
	OutcomePending Outcome = iota
	OutcomeAllowed
	OutcomeDeniedUnauthenticated
	OutcomeDeniedInsufficient
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeAllowed:
		return "allowed"
	case OutcomeDeniedUnauthenticated:
		return "denied_unauthenticated"
	case OutcomeDeniedInsufficient:
		return "denied_insufficient"
	default:
		return "pending"
	}
}

// Default redirect targets.
const (
	DefaultLoginPath   = "/login"
	DefaultLandingPath = "/"
)

// GateMode selects how denials are reported.
type GateMode int

const (
	// ModeRedirect answers denials with 302 redirects (navigable screens).
	ModeRedirect GateMode = iota
	// ModeJSON answers denials with 401/403 JSON bodies (API routes).
	ModeJSON
)

// GateOptions configures one gated route.
type GateOptions struct {
	RequireAuth bool
	Roles       []permission.Role
	Permissions []permission.Permission

	// RedirectTo is the login path. Defaults to DefaultLoginPath.
	RedirectTo string
	// LandingPath receives users who are signed in but lack privilege.
	LandingPath string
	// Disabled turns the gate off for conditionally public routes.
	Disabled bool
	Mode     GateMode
}

// Enabled reports whether the gate evaluates requests.
func (o GateOptions) Enabled() bool {
	return !o.Disabled
}

// Requirement extracts the evaluator input.
func (o GateOptions) Requirement() Requirement {
	return Requirement{
		RequireAuth: o.RequireAuth,
		Roles:       o.Roles,
		Permissions: o.Permissions,
	}
}

// LoginPath returns RedirectTo or the default login path.
func (o GateOptions) LoginPath() string {
	if o.RedirectTo == "" {
		return DefaultLoginPath
	}
	return o.RedirectTo
}

// Landing returns LandingPath or the default landing path.
func (o GateOptions) Landing() string {
	if o.LandingPath == "" {
		return DefaultLandingPath
	}
	return o.LandingPath
}

// Decide maps a gate configuration and an auth state to exactly one outcome.
// A nil state has not been resolved and yields OutcomePending.
func Decide(opts GateOptions, state *AuthState, evaluator *Evaluator) Outcome {
	if !opts.Enabled() {
		return OutcomeAllowed
	}
	if evaluator.AuthDisabled() {
		return OutcomeAllowed
	}
	if state == nil {
		return OutcomePending
	}

	if opts.RequireAuth && !state.IsAuthenticated {
		return OutcomeDeniedUnauthenticated
	}

	decision := evaluator.Evaluate(opts.Requirement(), *state)
	if !decision.HasRole || !decision.HasAllPermissions {
		return OutcomeDeniedInsufficient
	}
	return OutcomeAllowed
}
