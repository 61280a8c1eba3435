package authclient

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeOperationInFlight = "AUTH_OPERATION_IN_FLIGHT"

// ErrOperationInFlight is returned when a bootstrap, login, or register is
// requested while another one is still resolving. Callers must serialize
// these; logout and profile updates are exempt.
var ErrOperationInFlight = goerrors.New("another authentication operation is in flight", goerrors.CategoryConflict).
	WithTextCode(textCodeOperationInFlight).
	WithCode(goerrors.CodeConflict)

// approvalSignal is the phrase the backend embeds in registration errors for
// accounts parked behind administrator approval. Matching free text is
// fragile, so the structured requiresApproval flag is checked first and this
// is only the fallback.
const approvalSignal = "pending approval"

// MachineOption customizes session machine construction.
type MachineOption func(*SessionMachine)

// WithMachineClock injects a custom clock (useful for tests).
func WithMachineClock(clock func() time.Time) MachineOption {
	return func(m *SessionMachine) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithMachineLogger overrides the default logger.
func WithMachineLogger(logger Logger) MachineOption {
	return func(m *SessionMachine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMachineActivitySink sets the ActivitySink used to publish session events.
func WithMachineActivitySink(sink ActivitySink) MachineOption {
	return func(m *SessionMachine) {
		m.sink = normalizeActivitySink(sink)
	}
}

// WithMachineNavigator wires the shell's navigation port. Without one, the
// machine still works; it just cannot move the user between views.
func WithMachineNavigator(nav Navigator) MachineOption {
	return func(m *SessionMachine) {
		m.navigator = nav
	}
}

// WithChangeListener registers a callback invoked with a session snapshot
// after every committed state change. This is how a UI shell re-renders.
func WithChangeListener(fn func(Session)) MachineOption {
	return func(m *SessionMachine) {
		m.onChange = fn
	}
}

// WithMachineRoutes overrides the login and post-logout routes.
func WithMachineRoutes(loginRoute string) MachineOption {
	return func(m *SessionMachine) {
		if loginRoute != "" {
			m.loginRoute = loginRoute
		}
	}
}

// SessionMachine owns the process-wide session. It is the single writer:
// every mutation flows through one of its operations and is validated
// against the transition table before it commits.
type SessionMachine struct {
	mu         sync.Mutex
	session    Session
	generation uint64

	transitions map[SessionState]map[SessionState]struct{}

	api        AuthAPI
	store      CredentialStore
	navigator  Navigator
	sink       ActivitySink
	logger     Logger
	now        func() time.Time
	onChange   func(Session)
	loginRoute string
}

// NewSessionMachine builds a machine over the given API surface and
// credential store.
func NewSessionMachine(api AuthAPI, store CredentialStore, opts ...MachineOption) *SessionMachine {
	m := &SessionMachine{
		session: emptySession(),
		transitions: map[SessionState]map[SessionState]struct{}{
			StateUnauthenticated: {
				StateLoading: {},
			},
			StateLoading: {
				StateAuthenticated:   {},
				StateUnauthenticated: {},
				StateError:           {},
			},
			StateAuthenticated: {
				StateLoading:         {},
				StateUnauthenticated: {},
			},
			StateError: {
				StateLoading:         {},
				StateUnauthenticated: {},
			},
		},
		api:        api,
		store:      store,
		sink:       noopActivitySink{},
		logger:     defLogger{},
		now:        time.Now,
		loginRoute: "/login",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Snapshot returns the current session. The user record is cloned, so the
// caller cannot mutate machine state through it.
func (m *SessionMachine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.session
	snap.User = snap.User.Clone()
	return snap
}

// Bootstrap reconstructs the session from persisted credentials and verifies
// them against the server before trusting them. Any failure, including
// unreadable stored data, collapses to a clean unauthenticated session.
// The loading flag is always cleared by the time this returns.
func (m *SessionMachine) Bootstrap(ctx context.Context) Session {
	gen, err := m.beginLoading()
	if err != nil {
		m.logger.Warn("bootstrap skipped: %v", err)
		return m.Snapshot()
	}

	token, user, err := m.store.Load(ctx)
	if err != nil || token == "" || user == nil {
		if err != nil {
			m.logger.Warn("bootstrap could not read stored credentials: %v", err)
		}
		m.clearStore(ctx)
		m.commit(gen, func(s *Session) { *s = emptySession() })
		return m.Snapshot()
	}

	if info, err := InspectToken(token); err == nil && info.ExpiresAt != nil {
		m.logger.Debug("restoring session for %s, token expires %s", user.Email, info.ExpiresAt.Format(time.RFC3339))
	}

	// The server is authoritative over locally cached user fields.
	serverUser, err := m.api.Profile(ctx)
	if err != nil {
		m.logger.Info("stored credentials rejected, starting unauthenticated: %v", err)
		m.clearStore(ctx)
		m.commit(gen, func(s *Session) { *s = emptySession() })
		return m.Snapshot()
	}

	if err := m.store.Save(ctx, token, serverUser); err != nil {
		m.logger.Error("failed to refresh stored user record: %v", err)
	}

	if m.commit(gen, func(s *Session) {
		s.User = serverUser
		s.Token = token
		s.State = StateAuthenticated
		s.Err = ""
	}) {
		m.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventSessionRestored,
			UserID:    serverUser.ID.String(),
		})
	}

	return m.Snapshot()
}

// Login authenticates with the server and, on success, persists the
// credentials and enters the authenticated state. Failures are returned as
// a rendered message, never as an error.
func (m *SessionMachine) Login(ctx context.Context, req LoginRequest) LoginResult {
	// Fail fast on missing fields, before any network call.
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return LoginResult{Success: false, Message: MsgMissingCredential}
	}
	if err := req.Validate(); err != nil {
		return LoginResult{Success: false, Message: err.Error()}
	}

	gen, err := m.beginLoading()
	if err != nil {
		return LoginResult{Success: false, Message: deriveMessage(err, MsgLoginFailed)}
	}

	// Drop any stale persisted session first so a failed attempt cannot
	// resurrect credentials from a prior tab.
	m.clearStore(ctx)

	payload, err := m.api.Login(ctx, req.Email, req.Password)
	if err != nil {
		m.clearStore(ctx)
		message := deriveMessage(err, MsgLoginFailed)
		m.commit(gen, func(s *Session) {
			*s = emptySession()
			s.State = StateError
			s.Err = message
		})
		m.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"email": req.Email, "error": message},
		})
		return LoginResult{Success: false, Message: message}
	}

	if err := m.store.Save(ctx, payload.Token, payload.User); err != nil {
		m.logger.Error("failed to persist credentials: %v", err)
		m.clearStore(ctx)
		message := deriveMessage(err, MsgLoginFailed)
		m.commit(gen, func(s *Session) {
			*s = emptySession()
			s.State = StateError
			s.Err = message
		})
		return LoginResult{Success: false, Message: message}
	}

	committed := m.commit(gen, func(s *Session) {
		s.User = payload.User
		s.Token = payload.Token
		s.State = StateAuthenticated
		s.Err = ""
	})
	if !committed {
		// A logout won the race; do not resurrect the session.
		m.clearStore(ctx)
		return LoginResult{Success: false, Message: "Signed out before login completed"}
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    payload.User.ID.String(),
	})

	return LoginResult{Success: true, User: payload.User.Clone()}
}

// Logout ends the session. The local transition happens immediately, before
// the server is told, so the UI never waits on the network to sign out; the
// server call is best-effort and its failure is swallowed. Unless silent,
// the user is sent to the login route. Always succeeds.
func (m *SessionMachine) Logout(ctx context.Context, silent bool) OpResult {
	m.mu.Lock()
	m.generation++
	uid := ""
	if m.session.User != nil {
		uid = m.session.User.ID.String()
	}
	m.session = emptySession()
	snap := m.session
	m.mu.Unlock()

	m.emitChange(snap)

	// Token is still in the store at this point, so the server call goes out
	// authenticated. Cleared right after, regardless of the outcome.
	if err := m.api.Logout(ctx); err != nil {
		m.logger.Debug("server-side logout failed: %v", err)
	}
	m.clearStore(ctx)

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    uid,
	})

	if !silent {
		m.redirect(m.loginRoute)
	}

	return OpResult{Success: true}
}

// Register creates an account. Registration never auto-authenticates: the
// account may require administrator approval before first login, so the
// session stays unauthenticated even on success.
func (m *SessionMachine) Register(ctx context.Context, req RegisterRequest) RegisterResult {
	if err := req.Validate(); err != nil {
		return RegisterResult{Success: false, Message: err.Error()}
	}

	gen, err := m.beginLoading()
	if err != nil {
		return RegisterResult{Success: false, Message: deriveMessage(err, "Registration failed")}
	}

	payload, err := m.api.Register(ctx, req)
	if err != nil {
		message := deriveMessage(err, "Registration failed")
		pending := strings.Contains(strings.ToLower(message), approvalSignal)
		m.commit(gen, func(s *Session) {
			*s = emptySession()
			s.State = StateError
			s.Err = message
		})
		m.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventRegisterFailure,
			Metadata:  map[string]any{"email": req.Email, "error": message, "pending_approval": pending},
		})
		return RegisterResult{Success: false, Message: message, RequiresApproval: pending}
	}

	m.commit(gen, func(s *Session) { *s = emptySession() })

	message := payload.Message
	if message == "" {
		if payload.RequiresApproval {
			message = "Registration received. An administrator must approve the account before you can log in."
		} else {
			message = "Registration successful. You can now log in."
		}
	}

	if payload.RequiresApproval {
		m.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventRegisterPending,
			Metadata:  map[string]any{"email": req.Email},
		})
	}

	return RegisterResult{Success: true, Message: message, RequiresApproval: payload.RequiresApproval}
}

// UpdateProfile is a background operation: it never touches the loading
// flag and may run while another operation resolves. On success the server's
// record is merged in memory and the persisted copy is overwritten; on
// failure the session is left untouched.
func (m *SessionMachine) UpdateProfile(ctx context.Context, update ProfileUpdate) OpResult {
	if !m.Snapshot().IsAuthenticated() {
		return OpResult{Success: false, Message: "Not authenticated"}
	}

	serverUser, err := m.api.UpdateProfile(ctx, update)
	if err != nil {
		return OpResult{Success: false, Message: deriveMessage(err, "Profile update failed")}
	}

	m.mu.Lock()
	if m.session.State != StateAuthenticated || m.session.User == nil {
		// Session ended while the update was in flight; drop the result.
		m.mu.Unlock()
		return OpResult{Success: true}
	}
	m.session.User.Merge(serverUser)
	merged := m.session.User.Clone()
	token := m.session.Token
	snap := m.session
	snap.User = merged
	m.mu.Unlock()

	if err := m.store.Save(ctx, token, merged); err != nil {
		m.logger.Error("failed to persist updated profile: %v", err)
	}

	m.emitChange(snap)
	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		UserID:    merged.ID.String(),
	})

	return OpResult{Success: true}
}

// ChangePassword rotates the password. Like UpdateProfile, it is a
// background operation with no session transition.
func (m *SessionMachine) ChangePassword(ctx context.Context, current, next string) OpResult {
	if current == "" || next == "" {
		return OpResult{Success: false, Message: "Current and new password are required"}
	}
	if !m.Snapshot().IsAuthenticated() {
		return OpResult{Success: false, Message: "Not authenticated"}
	}

	if err := m.api.ChangePassword(ctx, current, next); err != nil {
		return OpResult{Success: false, Message: deriveMessage(err, "Password change failed")}
	}

	return OpResult{Success: true}
}

// ClearError drops the error message and nothing else. A session in the
// error state returns to unauthenticated, which is the shape its data
// already had.
func (m *SessionMachine) ClearError() {
	m.mu.Lock()
	if m.session.Err == "" && m.session.State != StateError {
		m.mu.Unlock()
		return
	}
	m.session.Err = ""
	if m.session.State == StateError {
		m.session.State = StateUnauthenticated
	}
	snap := m.session
	snap.User = snap.User.Clone()
	m.mu.Unlock()

	m.emitChange(snap)
}

// HandleUnauthorized is the forced-logout entry point the APIClient invokes
// when any authenticated call comes back 401. It wins over whatever else is
// in flight: the generation bump makes any pending commit a no-op.
func (m *SessionMachine) HandleUnauthorized() {
	m.mu.Lock()
	m.generation++
	uid := ""
	if m.session.User != nil {
		uid = m.session.User.ID.String()
	}
	already := m.session.State == StateUnauthenticated && m.session.Err == ""
	m.session = emptySession()
	snap := m.session
	m.mu.Unlock()

	m.clearStore(context.Background())

	if already {
		return
	}

	m.emitChange(snap)
	m.recordActivity(context.Background(), ActivityEvent{
		EventType: ActivityEventSessionRevoked,
		UserID:    uid,
	})
}

// beginLoading moves the session into the loading state and hands back the
// generation a later commit must present. Only one exclusive operation may
// be in flight at a time.
func (m *SessionMachine) beginLoading() (uint64, error) {
	m.mu.Lock()
	if m.session.State == StateLoading {
		m.mu.Unlock()
		return 0, ErrOperationInFlight
	}
	if !m.canTransition(m.session.State, StateLoading) {
		from := m.session.State
		m.mu.Unlock()
		return 0, goerrors.New("invalid session transition", goerrors.CategoryConflict).
			WithMetadata(map[string]any{"from": from, "to": StateLoading})
	}
	m.session.State = StateLoading
	m.session.Err = ""
	gen := m.generation
	snap := m.session
	snap.User = snap.User.Clone()
	m.mu.Unlock()

	m.emitChange(snap)
	return gen, nil
}

// commit applies fn if the generation is unchanged since the operation
// began. A stale generation means a logout (or forced logout) happened in
// between; the result is discarded so the ended session is not resurrected.
func (m *SessionMachine) commit(gen uint64, fn func(*Session)) bool {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		m.logger.Debug("discarding stale session commit")
		return false
	}

	next := m.session
	next.User = m.session.User
	fn(&next)

	if next.State != m.session.State && !m.canTransition(m.session.State, next.State) {
		from := m.session.State
		m.mu.Unlock()
		m.logger.Error("refusing invalid session transition %s -> %s", from, next.State)
		return false
	}

	m.session = next
	snap := m.session
	snap.User = snap.User.Clone()
	m.mu.Unlock()

	m.emitChange(snap)
	return true
}

func (m *SessionMachine) canTransition(from, to SessionState) bool {
	if from == to {
		return true
	}
	if allowed, ok := m.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (m *SessionMachine) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear credential store: %v", err)
	}
}

func (m *SessionMachine) redirect(route string) {
	if m.navigator == nil {
		return
	}
	if m.navigator.CurrentPath() == route {
		return
	}
	m.navigator.Navigate(route)
}

func (m *SessionMachine) emitChange(snap Session) {
	if m.onChange != nil {
		m.onChange(snap)
	}
}

func (m *SessionMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}

	sink := normalizeActivitySink(m.sink)
	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("session activity sink error: %v", err)
	}
}

// deriveMessage turns an operation failure into a safe, rendered message.
// Priority: network > rate limit > server error > field validation errors >
// server-provided message > the error's own message > fallback.
func deriveMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	switch {
	case IsNetworkError(err):
		return MsgNetworkError
	case IsRateLimitError(err):
		return MsgRateLimited
	case IsServerError(err):
		return MsgServerError
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Metadata != nil {
			if fields, ok := richErr.Metadata["field_errors"].([]string); ok && len(fields) > 0 {
				return strings.Join(fields, ", ")
			}
			if msg, ok := richErr.Metadata["server_message"].(string); ok && msg != "" {
				return msg
			}
		}
		if richErr.Message != "" {
			return richErr.Message
		}
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
