package vitalband

// GateOutcome classifies a gate decision.
type GateOutcome string

const (
	// GateAllow renders the guarded subtree.
	GateAllow GateOutcome = "allow"
	// GatePending renders a neutral placeholder; never a redirect. Emitted
	// only while session state is still hydrating.
	GatePending GateOutcome = "pending"
	// GateRedirect sends the caller to Target.
	GateRedirect GateOutcome = "redirect"
)

// GateDecision is the result of evaluating a gate against the requested
// location. Gates hold no state of their own; they are pure derivations of
// the controller's current state and must be re-evaluated when it changes.
type GateDecision struct {
	Outcome GateOutcome
	// Target is the redirect destination; for login redirects it carries the
	// requested location under the return-to parameter.
	Target string
}

// Allowed reports whether the guarded subtree should render.
func (d GateDecision) Allowed() bool { return d.Outcome == GateAllow }

// Gate evaluates access to a requested location (path plus query).
type Gate func(requested string) GateDecision

// AuthenticationGate admits authenticated sessions. While hydrating it emits
// Pending so storage can be read before any redirect happens; anonymous
// callers are sent to login with their destination preserved.
func AuthenticationGate(ctrl *SessionController) Gate {
	return func(requested string) GateDecision {
		switch ctrl.State() {
		case StateHydrating:
			return GateDecision{Outcome: GatePending}
		case StateAuthenticated:
			return GateDecision{Outcome: GateAllow}
		default:
			return GateDecision{
				Outcome: GateRedirect,
				Target:  LoginRedirect(ctrl.LoginPath(), requested),
			}
		}
	}
}

// RoleGate composes the authentication gate with a role check. An
// authenticated user outside the allowed set is sent to the landing view, not
// to login: they are authenticated, merely unauthorized for this subtree.
func RoleGate(ctrl *SessionController, allowed ...UserRole) Gate {
	authGate := AuthenticationGate(ctrl)
	return func(requested string) GateDecision {
		if decision := authGate(requested); !decision.Allowed() {
			return decision
		}
		user, ok := ctrl.CurrentUser()
		if !ok || !user.Role.In(allowed...) {
			return GateDecision{
				Outcome: GateRedirect,
				Target:  ctrl.LandingPath(),
			}
		}
		return GateDecision{Outcome: GateAllow}
	}
}

// Compose chains gates; the first non-allow decision wins.
func Compose(gates ...Gate) Gate {
	return func(requested string) GateDecision {
		for _, gate := range gates {
			if gate == nil {
				continue
			}
			if decision := gate(requested); !decision.Allowed() {
				return decision
			}
		}
		return GateDecision{Outcome: GateAllow}
	}
}
