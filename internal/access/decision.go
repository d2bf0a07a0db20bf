package access

import "github.com/noah-isme/complaint-desk-api/internal/models"

// Outcome is what the gate does with a request.
type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "allow"
	}
}

// Decision carries the outcome and, for redirects, its target.
type Decision struct {
	Outcome  Outcome
	Location string
}

var (
	allow         = Decision{Outcome: Allow}
	redirectLogin = Decision{Outcome: RedirectLogin, Location: LoginPath}
)

// HomeFor returns the landing path of role, or "" for unknown roles.
func HomeFor(role models.Role) string {
	switch {
	case role == models.RoleStudent:
		return StudentRoot
	case role.IsStaff():
		return AdminRoot
	default:
		return ""
	}
}

// NeedsSession reports whether deciding for class requires resolving the principal.
func NeedsSession(class RouteClass) bool {
	return class != Public && class != Passthrough
}

// Decide is total over (session, class). A nil session, or one without a valid
// role, is treated as unauthenticated. Wrong-role requests go to login rather
// than the caller's own home so protected sections do not reveal themselves.
func Decide(session *models.Session, class RouteClass) Decision {
	var role models.Role
	if session != nil && session.UserID != "" && session.Role.Valid() {
		role = session.Role
	}

	switch class {
	case Public, Passthrough:
		return allow
	case AuthPages:
		if role == "" {
			return allow
		}
		return Decision{Outcome: RedirectHome, Location: HomeFor(role)}
	case StudentArea:
		if role == models.RoleStudent {
			return allow
		}
		return redirectLogin
	case AdminArea:
		if role.IsStaff() {
			return allow
		}
		return redirectLogin
	default:
		if role != "" {
			return allow
		}
		return redirectLogin
	}
}
