package auth

// DecisionKind is the outcome of a gate check.
type DecisionKind int

const (
	DecisionAllow DecisionKind = iota
	DecisionRedirectToLogin
	DecisionForbidden
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAllow:
		return "allow"
	case DecisionRedirectToLogin:
		return "redirect_to_login"
	case DecisionForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decision is returned by the session gate for every gated request.
type Decision struct {
	Kind DecisionKind
	// ReturnURL is the original request URI, set for RedirectToLogin.
	ReturnURL string
	// Session is the session that was evaluated, if any.
	Session *Session
	// Bypassed is true when a no-redirect override allowed the request without judgment.
	Bypassed bool
}

func Allow(s *Session) Decision { return Decision{Kind: DecisionAllow, Session: s} }

func Bypass(s *Session) Decision { return Decision{Kind: DecisionAllow, Session: s, Bypassed: true} }

func RedirectToLogin(returnURL string) Decision {
	return Decision{Kind: DecisionRedirectToLogin, ReturnURL: returnURL}
}

func Forbidden(s *Session) Decision { return Decision{Kind: DecisionForbidden, Session: s} }
