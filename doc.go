// Package authclient implements the client half of a bearer-token
// authentication lifecycle: establishing, persisting, revalidating, and
// tearing down an authenticated session against a remote REST API, and
// gating navigation to role-restricted views.
//
// Session lifecycle:
//   - SessionMachine owns the in-memory session and is the single writer.
//     It moves through unauthenticated, loading, authenticated, and error
//     states; the transition table is enforced on every commit so a session
//     can never be half-built.
//   - Bootstrap reconstructs a session from the CredentialStore at process
//     start and revalidates it against the server before trusting it. The
//     server copy of the user record always wins over the cached one.
//   - Logout is optimistic: local state and stored credentials are dropped
//     immediately, then the server is notified best-effort. A logout always
//     wins over any login or bootstrap still in flight.
//
// Forced logout:
//   - APIClient is the single chokepoint for outbound requests. When any
//     call comes back 401 the client clears stored credentials and invokes
//     the UnauthorizedHandler wired into the machine, so expired sessions
//     collapse to unauthenticated no matter which screen triggered the call.
//
// Route gating:
//   - Guard is a pure decision function over a session snapshot and a
//     required-role set. RouteGuard binds it to a static path table and
//     remembers the rejected path so a later login can return the user there.
package authclient
