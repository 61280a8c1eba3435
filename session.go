package authclient

import "fmt"

// SessionState labels the single phase the session is in. Exactly one state
// describes the session at any instant.
type SessionState string

const (
	// StateUnauthenticated means no trusted credentials are held.
	StateUnauthenticated SessionState = "unauthenticated"
	// StateLoading means a bootstrap, login, or register call is in flight.
	StateLoading SessionState = "loading"
	// StateAuthenticated means the server vouched for the held credentials.
	StateAuthenticated SessionState = "authenticated"
	// StateError carries the message of the last failed auth operation. The
	// session data itself is unauthenticated-shaped while in this state.
	StateError SessionState = "error"
)

// Session is an immutable snapshot of the machine's state. Snapshots are
// safe to hand to the UI layer; the user record is cloned on the way out.
type Session struct {
	User  *User
	Token string
	State SessionState
	Err   string
}

// IsAuthenticated is true iff the server check succeeded and both the user
// record and the token are present.
func (s Session) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.User != nil && s.Token != ""
}

// IsLoading is true only during bootstrap or an in-flight login/register.
func (s Session) IsLoading() bool {
	return s.State == StateLoading
}

// Role returns the session user's role, or "" when unauthenticated.
func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s Session) String() string {
	user := "<none>"
	if s.User != nil {
		user = fmt.Sprintf("%s (%s)", s.User.Email, s.User.Role)
	}
	return fmt.Sprintf("session state=%s user=%s err=%q", s.State, user, s.Err)
}

func emptySession() Session {
	return Session{State: StateUnauthenticated}
}
