package authclient

import (
	"sort"
	"strings"
	"sync"
)

// Decision is the route guard's verdict for a navigation attempt.
type Decision string

const (
	// Allow renders the requested view.
	Allow Decision = "allow"
	// ShowLoading means the session is still resolving; the caller must
	// re-evaluate once it settles.
	ShowLoading Decision = "loading"
	// RedirectToLogin sends an unauthenticated visitor to the login view.
	RedirectToLogin Decision = "redirect_login"
	// RedirectToUnauthorized sends an authenticated visitor whose role does
	// not cover the route to the unauthorized view.
	RedirectToUnauthorized Decision = "redirect_unauthorized"
)

// Guard is the pure access decision. It has no side effects and always
// produces the same output for the same inputs. An empty requiredRoles set
// means any authenticated user may pass.
func Guard(session Session, requiredRoles []Role) Decision {
	if session.IsLoading() {
		return ShowLoading
	}
	if !session.IsAuthenticated() {
		return RedirectToLogin
	}
	if len(requiredRoles) > 0 && !RoleIn(session.Role(), requiredRoles) {
		return RedirectToUnauthorized
	}
	return Allow
}

// RouteRule grants a path prefix to a set of roles. An empty role set means
// authenticated-only with no role restriction.
type RouteRule struct {
	Prefix string
	Roles  []Role
}

// RouteTable is the static path-to-roles mapping the guard consults. Longest
// matching prefix wins, so /admin/users can be stricter than /admin.
type RouteTable struct {
	rules []RouteRule
}

// NewRouteTable builds a table from rules. Rules are matched longest prefix
// first regardless of the order given.
func NewRouteTable(rules []RouteRule) *RouteTable {
	sorted := make([]RouteRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &RouteTable{rules: sorted}
}

// RolesFor returns the role set guarding path and whether the path is
// guarded at all. Unlisted paths are public.
func (t *RouteTable) RolesFor(path string) ([]Role, bool) {
	for _, rule := range t.rules {
		if rule.Prefix == path || strings.HasPrefix(path, strings.TrimRight(rule.Prefix, "/")+"/") {
			return rule.Roles, true
		}
	}
	return nil, false
}

// ConsoleRouteTable is the facilities console's route map.
func ConsoleRouteTable() *RouteTable {
	return NewRouteTable([]RouteRule{
		{Prefix: "/admin", Roles: []Role{RoleAdmin}},
		{Prefix: "/manager", Roles: []Role{RoleAdmin, RoleManager}},
		{Prefix: "/technician", Roles: []Role{RoleAdmin, RoleManager, RoleTechnician}},
		{Prefix: "/dashboard", Roles: nil},
		{Prefix: "/work-orders", Roles: nil},
		{Prefix: "/locations", Roles: nil},
		{Prefix: "/profile", Roles: nil},
	})
}

// RouteGuard binds the pure Guard decision to a route table and remembers
// the path a login redirect interrupted, so a successful login can send the
// user back where they were headed.
type RouteGuard struct {
	mu           sync.Mutex
	table        *RouteTable
	session      func() Session
	rejectedPath string
}

// NewRouteGuard wires a guard over a session source, typically
// SessionMachine.Snapshot.
func NewRouteGuard(table *RouteTable, session func() Session) *RouteGuard {
	return &RouteGuard{table: table, session: session}
}

// Evaluate decides access for path against the current session. Public
// paths are always allowed. A RedirectToLogin records path for later.
func (g *RouteGuard) Evaluate(path string) Decision {
	roles, guarded := g.table.RolesFor(path)
	if !guarded {
		return Allow
	}

	decision := Guard(g.session(), roles)
	if decision == RedirectToLogin {
		g.mu.Lock()
		g.rejectedPath = path
		g.mu.Unlock()
	}
	return decision
}

// ConsumeReturnPath hands back the remembered path, falling back to def, and
// forgets it. Call after a successful login.
func (g *RouteGuard) ConsumeReturnPath(def string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	path := g.rejectedPath
	g.rejectedPath = ""
	if path == "" {
		return def
	}
	return path
}
