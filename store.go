package authclient

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process CredentialStore. It backs ephemeral profiles
// and tests; the bun-backed Credentials store is the durable option.
//
// The user record is held serialized, mirroring how a durable store would
// keep it, so the malformed-data path behaves the same everywhere.
type MemoryStore struct {
	mu      sync.Mutex
	token   string
	rawUser []byte
	logger  Logger
}

var _ CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logger: defLogger{}}
}

// WithLogger overrides the logger used to report corrupt entries.
func (s *MemoryStore) WithLogger(l Logger) *MemoryStore {
	if l != nil {
		s.logger = l
	}
	return s
}

// Save writes both values under one lock so a concurrent Load never sees a
// token without its user.
func (s *MemoryStore) Save(_ context.Context, token string, user *User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.rawUser = raw
	return nil
}

// Load returns the stored pair. A user blob that no longer parses is dropped
// and reported as absent.
func (s *MemoryStore) Load(_ context.Context) (string, *User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" || len(s.rawUser) == 0 {
		return "", nil, nil
	}

	user := &User{}
	if err := json.Unmarshal(s.rawUser, user); err != nil {
		s.logger.Warn("discarding corrupt stored user record: %v", err)
		s.token = ""
		s.rawUser = nil
		return "", nil, nil
	}

	return s.token, user, nil
}

// Clear removes both values.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.rawUser = nil
	return nil
}

// seed plants raw bytes for tests exercising the corruption path.
func (s *MemoryStore) seed(token string, rawUser []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.rawUser = rawUser
}
