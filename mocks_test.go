package authclient_test

import (
	"context"
	"sync"

	authclient "github.com/facilitydesk/go-authclient"
)

// stubAPI implements authclient.AuthAPI with pluggable behavior per call.
type stubAPI struct {
	mu               sync.Mutex
	loginCalls       int
	profileCalls     int
	logoutCalls      int
	loginFn          func(ctx context.Context, email, password string) (*authclient.AuthPayload, error)
	registerFn       func(ctx context.Context, req authclient.RegisterRequest) (*authclient.RegisterPayload, error)
	logoutFn         func(ctx context.Context) error
	profileFn        func(ctx context.Context) (*authclient.User, error)
	updateProfileFn  func(ctx context.Context, update authclient.ProfileUpdate) (*authclient.User, error)
	changePasswordFn func(ctx context.Context, current, next string) error
}

func (s *stubAPI) Login(ctx context.Context, email, password string) (*authclient.AuthPayload, error) {
	s.mu.Lock()
	s.loginCalls++
	fn := s.loginFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, email, password)
}

func (s *stubAPI) Register(ctx context.Context, req authclient.RegisterRequest) (*authclient.RegisterPayload, error) {
	if s.registerFn == nil {
		return &authclient.RegisterPayload{}, nil
	}
	return s.registerFn(ctx, req)
}

func (s *stubAPI) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.logoutCalls++
	fn := s.logoutFn
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (s *stubAPI) Profile(ctx context.Context) (*authclient.User, error) {
	s.mu.Lock()
	s.profileCalls++
	fn := s.profileFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

func (s *stubAPI) UpdateProfile(ctx context.Context, update authclient.ProfileUpdate) (*authclient.User, error) {
	if s.updateProfileFn == nil {
		return nil, nil
	}
	return s.updateProfileFn(ctx, update)
}

func (s *stubAPI) ChangePassword(ctx context.Context, current, next string) error {
	if s.changePasswordFn == nil {
		return nil
	}
	return s.changePasswordFn(ctx, current, next)
}

func (s *stubAPI) calls() (login, profile, logout int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginCalls, s.profileCalls, s.logoutCalls
}

// fakeNavigator records navigation for assertions.
type fakeNavigator struct {
	mu      sync.Mutex
	current string
	visited []string
}

func (f *fakeNavigator) CurrentPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeNavigator) Navigate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = path
	f.visited = append(f.visited, path)
}

func (f *fakeNavigator) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.visited))
	copy(out, f.visited)
	return out
}

// recordingSink collects activity events.
type recordingSink struct {
	mu     sync.Mutex
	events []authclient.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event authclient.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []authclient.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]authclient.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// stubStore lets tests force credential store failures.
type stubStore struct {
	mu      sync.Mutex
	cleared int
	saveFn  func(ctx context.Context, token string, user *authclient.User) error
	loadFn  func(ctx context.Context) (string, *authclient.User, error)
	clearFn func(ctx context.Context) error
}

func (s *stubStore) Save(ctx context.Context, token string, user *authclient.User) error {
	if s.saveFn == nil {
		return nil
	}
	return s.saveFn(ctx, token, user)
}

func (s *stubStore) Load(ctx context.Context) (string, *authclient.User, error) {
	if s.loadFn == nil {
		return "", nil, nil
	}
	return s.loadFn(ctx)
}

func (s *stubStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cleared++
	s.mu.Unlock()
	if s.clearFn == nil {
		return nil
	}
	return s.clearFn(ctx)
}

func (s *stubStore) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared
}
