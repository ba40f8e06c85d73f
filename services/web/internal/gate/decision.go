package gate

import (
	"net/url"
	"strings"
)

// State is the visitor's standing as far as page access is concerned.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StatePending         State = "pending"
	StateApproved        State = "approved"
)

const (
	loginPath     = "/login"
	pendingPath   = "/pending-approval"
	dashboardPath = "/dashboard"
)

// Decision is the gate outcome for one request.
type Decision struct {
	Allow    bool
	Location string
}

func allow() Decision { return Decision{Allow: true} }

func redirect(location string) Decision { return Decision{Location: location} }

// Decide applies the access rules for a request to u in category cat.
func Decide(cat Category, state State, u *url.URL) Decision {
	switch cat {
	case CategoryAuth:
		if state == StateUnauthenticated {
			return allow()
		}
		if target := SafeRedirect(u.Query().Get("redirectTo")); target != "" {
			return redirect(target)
		}
		return redirect(dashboardPath)

	case CategoryProtected:
		switch state {
		case StateApproved:
			return allow()
		case StatePending:
			return redirect(pendingPath)
		default:
			return redirect(LoginURL(u.Path))
		}

	case CategoryPendingApproval:
		switch state {
		case StatePending:
			return allow()
		case StateApproved:
			return redirect(dashboardPath)
		default:
			return redirect(loginPath)
		}

	default:
		return allow()
	}
}

// LoginURL returns the login page carrying path as the post-login target.
func LoginURL(path string) string {
	return loginPath + "?redirectTo=" + url.QueryEscape(path)
}

// SafeRedirect returns target when it is a local absolute path and "" otherwise.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return ""
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return ""
	}
	if u, err := url.Parse(target); err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return target
}
