package session

// Capability is the access level a page declares it needs.
type Capability int

const (
	CapabilityNone Capability = iota
	CapabilityAuthenticated
	CapabilityAdmin
)

// Redirect targets for denied navigations.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

type (
	// Attempt is a single navigation: where to, and what the page requires.
	Attempt struct {
		TargetPath string
		Required   Capability
	}

	// Decision is the guard's verdict. When Allow is false, RedirectPath names
	// the page to send the user to and From carries the originally attempted
	// path, kept for display only.
	Decision struct {
		Allow        bool
		RedirectPath string
		From         string
	}
)

func allow() Decision {
	return Decision{Allow: true}
}

func redirectTo(path, from string) Decision {
	return Decision{RedirectPath: path, From: from}
}

// Decide maps a navigation attempt and a session snapshot to a decision. It is
// a pure function: no I/O, no side effects, safe to re-evaluate on every
// render pass.
func Decide(attempt Attempt, snap Snapshot) Decision {
	switch attempt.Required {
	case CapabilityNone:
		return allow()

	case CapabilityAuthenticated:
		if !snap.Authenticated {
			return redirectTo(LoginPath, attempt.TargetPath)
		}
		return allow()

	case CapabilityAdmin:
		// Authentication is checked before the admin role: an unauthenticated
		// caller must get the same redirect as for any protected page, and
		// must not learn from a different target that the path needs admin.
		if !snap.Authenticated {
			return redirectTo(LoginPath, attempt.TargetPath)
		}
		if !snap.IsAdmin() {
			return redirectTo(UnauthorizedPath, attempt.TargetPath)
		}
		return allow()
	}

	// unknown capability: treat as protected
	return redirectTo(LoginPath, attempt.TargetPath)
}
