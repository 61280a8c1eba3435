package authclient

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// CredentialRecord is one persisted key/value pair. The store keeps exactly
// two logical keys: the bearer token and the serialized user record.
type CredentialRecord struct {
	bun.BaseModel `bun:"table:credentials,alias:cred"`
	Key           string    `bun:"key,pk" json:"key"`
	Value         string    `bun:"value,notnull" json:"value"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

var credentialsSchema = `CREATE TABLE IF NOT EXISTS credentials (
	key TEXT NOT NULL PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// Credentials is the durable CredentialStore backed by bun. It survives
// process restarts, which is what lets Bootstrap restore a session.
type Credentials struct {
	db       *bun.DB
	tokenKey string
	userKey  string
	logger   Logger
}

var _ CredentialStore = (*Credentials)(nil)

// CredentialsOption customizes the store.
type CredentialsOption func(*Credentials)

// WithCredentialKeys overrides the storage key names.
func WithCredentialKeys(tokenKey, userKey string) CredentialsOption {
	return func(c *Credentials) {
		if tokenKey != "" {
			c.tokenKey = tokenKey
		}
		if userKey != "" {
			c.userKey = userKey
		}
	}
}

// WithCredentialsLogger overrides the logger used to report corrupt entries.
func WithCredentialsLogger(l Logger) CredentialsOption {
	return func(c *Credentials) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCredentials builds the store on an existing bun handle and ensures the
// backing table exists.
func NewCredentials(db *bun.DB, opts ...CredentialsOption) (*Credentials, error) {
	store := &Credentials{
		db:       db,
		tokenKey: "token",
		userKey:  "user",
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if _, err := db.Exec(credentialsSchema); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to ensure credentials table")
	}

	return store, nil
}

// OpenCredentials opens (or creates) a sqlite-backed store at dsn. Use
// ":memory:" for a throwaway profile.
func OpenCredentials(dsn string, opts ...CredentialsOption) (*Credentials, error) {
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open credential storage")
	}
	db.SetMaxOpenConns(1)

	return NewCredentials(bun.NewDB(db, sqlitedialect.New()), opts...)
}

// Save upserts both rows inside one transaction so readers never observe a
// token without its user.
func (c *Credentials) Save(ctx context.Context, token string, user *User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to serialize user record")
	}

	now := time.Now()
	records := []CredentialRecord{
		{Key: c.tokenKey, Value: token, UpdatedAt: now},
		{Key: c.userKey, Value: string(raw), UpdatedAt: now},
	}

	return c.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := range records {
			_, err := tx.NewInsert().
				Model(&records[i]).
				On("CONFLICT (key) DO UPDATE").
				Set("value = EXCLUDED.value").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return errors.Wrap(err, errors.CategoryInternal, "failed to persist credentials")
			}
		}
		return nil
	})
}

// Load returns the persisted pair. Missing rows mean no session. A user blob
// that no longer parses is deleted and reported as absent so bootstrap never
// trusts a half-readable session.
func (c *Credentials) Load(ctx context.Context) (string, *User, error) {
	records := []CredentialRecord{}
	err := c.db.NewSelect().
		Model(&records).
		Where("key IN (?)", bun.In([]string{c.tokenKey, c.userKey})).
		Scan(ctx)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "failed to read credentials")
	}

	var token, rawUser string
	for _, rec := range records {
		switch rec.Key {
		case c.tokenKey:
			token = rec.Value
		case c.userKey:
			rawUser = rec.Value
		}
	}

	if token == "" || rawUser == "" {
		return "", nil, nil
	}

	user := &User{}
	if err := json.Unmarshal([]byte(rawUser), user); err != nil {
		c.logger.Warn("discarding corrupt stored user record: %v", err)
		if clearErr := c.Clear(ctx); clearErr != nil {
			c.logger.Error("failed to drop corrupt credentials: %v", clearErr)
		}
		return "", nil, nil
	}

	return token, user, nil
}

// Clear removes both rows.
func (c *Credentials) Clear(ctx context.Context) error {
	_, err := c.db.NewDelete().
		Model((*CredentialRecord)(nil)).
		Where("key IN (?)", bun.In([]string{c.tokenKey, c.userKey})).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear credentials")
	}
	return nil
}

// Close releases the underlying database handle. Only call this when the
// store owns the handle (i.e. it was built via OpenCredentials).
func (c *Credentials) Close() error {
	return c.db.Close()
}
