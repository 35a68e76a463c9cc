package auth

import "smartid-server-go/models"

// Principal is the authenticated user of a request. It is passed explicitly
// to every decision that depends on who is asking.
type Principal struct {
	ID       string      `json:"id"`
	Username string      `json:"username,omitempty"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

// PrincipalOf builds the principal for a stored user.
func PrincipalOf(u *models.User) *Principal {
	return &Principal{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// Authenticated reports whether p identifies a logged-in user.
func (p *Principal) Authenticated() bool {
	return p != nil && p.Email != ""
}

// HasRole reports whether p holds one of roles. An empty list matches any role.
func (p *Principal) HasRole(roles ...models.Role) bool {
	if !p.Authenticated() {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// LoginPath is where unauthenticated users are sent.
const LoginPath = "/login"

// DashboardPath returns the landing page of role.
func DashboardPath(role models.Role) string {
	switch role {
	case models.RoleAdmin:
		return "/admin/dashboard"
	case models.RoleProfessor:
		return "/professor/dashboard"
	case models.RoleStudent:
		return "/student/dashboard"
	}
	return LoginPath
}

// Decision is the outcome of a route guard check.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

// Resolve decides whether p may open a page restricted to allowed roles.
// Anonymous users go to the login page; users with the wrong role go back to
// their own dashboard.
func Resolve(p *Principal, allowed ...models.Role) Decision {
	if !p.Authenticated() {
		return Decision{Redirect: LoginPath}
	}
	if !p.HasRole(allowed...) {
		return Decision{Redirect: DashboardPath(p.Role)}
	}
	return Decision{Allowed: true}
}

// NavItem is one entry of the sidebar.
type NavItem struct {
	To    string `json:"to"`
	Label string `json:"label"`
}

// Navigation returns the sidebar entries for role.
func Navigation(role models.Role) []NavItem {
	items := []NavItem{{To: "/", Label: "Dashboard"}}
	switch role {
	case models.RoleAdmin:
		items = append(items,
			NavItem{To: "/enroll", Label: "Enroll Users"},
			NavItem{To: "/admin/accounts", Label: "User Accounts"},
			NavItem{To: "/admin/students", Label: "Manage Students"},
			NavItem{To: "/admin/attendance-methods", Label: "Attendance Methods"},
			NavItem{To: "/reports", Label: "Reports"},
			NavItem{To: "/notifications", Label: "Notifications"},
			NavItem{To: "/settings", Label: "Settings"},
		)
	case models.RoleProfessor:
		items = append(items,
			NavItem{To: "/sessions", Label: "Sessions"},
			NavItem{To: "/today", Label: "Today"},
			NavItem{To: "/reports", Label: "Reports"},
			NavItem{To: "/notifications", Label: "Notifications"},
			NavItem{To: "/settings", Label: "Settings"},
		)
	case models.RoleStudent:
		items = append(items,
			NavItem{To: "/authenticate", Label: "Authenticate"},
			NavItem{To: "/today", Label: "My Attendance"},
			NavItem{To: "/notifications", Label: "Notifications"},
			NavItem{To: "/settings", Label: "Settings"},
		)
	}
	return items
}
