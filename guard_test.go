package authclient_test

import (
	"testing"

	authclient "github.com/facilitydesk/go-authclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authenticatedSession(role authclient.Role) authclient.Session {
	return authclient.Session{
		User:  testUser(role),
		Token: "tok-1",
		State: authclient.StateAuthenticated,
	}
}

func TestGuardDecisions(t *testing.T) {
	tests := []struct {
		name     string
		session  authclient.Session
		roles    []authclient.Role
		expected authclient.Decision
	}{
		{
			name:     "loading defers the decision",
			session:  authclient.Session{State: authclient.StateLoading},
			roles:    nil,
			expected: authclient.ShowLoading,
		},
		{
			name:     "unauthenticated visitor redirects to login",
			session:  authclient.Session{State: authclient.StateUnauthenticated},
			roles:    nil,
			expected: authclient.RedirectToLogin,
		},
		{
			name:     "errored session redirects to login",
			session:  authclient.Session{State: authclient.StateError, Err: "boom"},
			roles:    nil,
			expected: authclient.RedirectToLogin,
		},
		{
			name:     "authenticated with no role requirement",
			session:  authenticatedSession(authclient.RoleUser),
			roles:    nil,
			expected: authclient.Allow,
		},
		{
			name:     "technician blocked from admin routes",
			session:  authenticatedSession(authclient.RoleTechnician),
			roles:    []authclient.Role{authclient.RoleAdmin},
			expected: authclient.RedirectToUnauthorized,
		},
		{
			name:     "admin passes admin routes",
			session:  authenticatedSession(authclient.RoleAdmin),
			roles:    []authclient.Role{authclient.RoleAdmin},
			expected: authclient.Allow,
		},
		{
			name:     "manager passes multi-role routes",
			session:  authenticatedSession(authclient.RoleManager),
			roles:    []authclient.Role{authclient.RoleAdmin, authclient.RoleManager},
			expected: authclient.Allow,
		},
		{
			name: "token without user is not authenticated",
			session: authclient.Session{
				Token: "tok-1",
				State: authclient.StateAuthenticated,
			},
			roles:    nil,
			expected: authclient.RedirectToLogin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, authclient.Guard(tt.session, tt.roles))
		})
	}
}

func TestGuardIsPure(t *testing.T) {
	session := authenticatedSession(authclient.RoleTechnician)
	roles := []authclient.Role{authclient.RoleAdmin}

	first := authclient.Guard(session, roles)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, authclient.Guard(session, roles))
	}
}

func TestRouteTableLongestPrefixWins(t *testing.T) {
	table := authclient.NewRouteTable([]authclient.RouteRule{
		{Prefix: "/admin", Roles: []authclient.Role{authclient.RoleAdmin}},
		{Prefix: "/admin/reports", Roles: []authclient.Role{authclient.RoleAdmin, authclient.RoleManager}},
	})

	roles, guarded := table.RolesFor("/admin/reports/monthly")
	require.True(t, guarded)
	assert.Equal(t, []authclient.Role{authclient.RoleAdmin, authclient.RoleManager}, roles)

	roles, guarded = table.RolesFor("/admin/users")
	require.True(t, guarded)
	assert.Equal(t, []authclient.Role{authclient.RoleAdmin}, roles)
}

func TestRouteTablePrefixBoundary(t *testing.T) {
	table := authclient.NewRouteTable([]authclient.RouteRule{
		{Prefix: "/admin", Roles: []authclient.Role{authclient.RoleAdmin}},
	})

	_, guarded := table.RolesFor("/administrivia")
	assert.False(t, guarded, "prefix match must respect path segments")

	_, guarded = table.RolesFor("/admin")
	assert.True(t, guarded)

	_, guarded = table.RolesFor("/admin/")
	assert.True(t, guarded)
}

func TestRouteTableUnlistedPathsArePublic(t *testing.T) {
	table := authclient.ConsoleRouteTable()

	_, guarded := table.RolesFor("/login")
	assert.False(t, guarded)

	_, guarded = table.RolesFor("/")
	assert.False(t, guarded)
}

func TestConsoleRouteTable(t *testing.T) {
	table := authclient.ConsoleRouteTable()

	tests := []struct {
		path     string
		session  authclient.Session
		expected authclient.Decision
	}{
		{"/admin/users", authenticatedSession(authclient.RoleAdmin), authclient.Allow},
		{"/admin/users", authenticatedSession(authclient.RoleTechnician), authclient.RedirectToUnauthorized},
		{"/manager", authenticatedSession(authclient.RoleManager), authclient.Allow},
		{"/manager", authenticatedSession(authclient.RoleUser), authclient.RedirectToUnauthorized},
		{"/technician/queue", authenticatedSession(authclient.RoleTechnician), authclient.Allow},
		{"/dashboard", authenticatedSession(authclient.RoleUser), authclient.Allow},
		{"/work-orders/42", authenticatedSession(authclient.RoleUser), authclient.Allow},
	}

	for _, tt := range tests {
		roles, guarded := table.RolesFor(tt.path)
		require.True(t, guarded, tt.path)
		assert.Equal(t, tt.expected, authclient.Guard(tt.session, roles), tt.path)
	}
}

func TestRouteGuardRemembersRejectedPath(t *testing.T) {
	session := authclient.Session{State: authclient.StateUnauthenticated}
	guard := authclient.NewRouteGuard(authclient.ConsoleRouteTable(), func() authclient.Session {
		return session
	})

	assert.Equal(t, authclient.RedirectToLogin, guard.Evaluate("/work-orders/17"))

	session = authenticatedSession(authclient.RoleUser)
	assert.Equal(t, "/work-orders/17", guard.ConsumeReturnPath("/dashboard"))

	// Consumed: the next login falls back to the default.
	assert.Equal(t, "/dashboard", guard.ConsumeReturnPath("/dashboard"))
}

func TestRouteGuardPublicPathsBypassSession(t *testing.T) {
	called := false
	guard := authclient.NewRouteGuard(authclient.ConsoleRouteTable(), func() authclient.Session {
		called = true
		return authclient.Session{}
	})

	assert.Equal(t, authclient.Allow, guard.Evaluate("/login"))
	assert.False(t, called)
}

func TestRouteGuardRoleRejectionDoesNotRecordPath(t *testing.T) {
	guard := authclient.NewRouteGuard(authclient.ConsoleRouteTable(), func() authclient.Session {
		return authenticatedSession(authclient.RoleTechnician)
	})

	assert.Equal(t, authclient.RedirectToUnauthorized, guard.Evaluate("/admin/users"))
	assert.Equal(t, "/dashboard", guard.ConsumeReturnPath("/dashboard"))
}
