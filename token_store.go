package authclient

import (
	"context"
	"database/sql"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// tokenKey is the fixed key the bearer token is stored under.
const tokenKey = "auth_token"

// MemoryTokenStore keeps the token in memory. Useful for tests and for
// sessions that should not survive a restart.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
	set   bool
}

var _ TokenStore = (*MemoryTokenStore)(nil)

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Get(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Set(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.set = true
	return nil
}

func (m *MemoryTokenStore) Remove(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.set = false
	return nil
}

func (m *MemoryTokenStore) Has(_ context.Context) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set && m.token != ""
}

// TokenRecord is the persisted token row.
type TokenRecord struct {
	bun.BaseModel `bun:"table:auth_tokens,alias:tok"`
	Key           string     `bun:"key,pk" json:"key"`
	Value         string     `bun:"value,notnull" json:"value"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// BunTokenStore persists the bearer token in a local SQLite database, one row
// under a fixed key. It is the durable client-side storage read at process
// start.
type BunTokenStore struct {
	db     *bun.DB
	logger Logger
}

var _ TokenStore = (*BunTokenStore)(nil)

type BunTokenStoreOption func(*BunTokenStore)

func WithTokenStoreLogger(logger Logger) BunTokenStoreOption {
	return func(s *BunTokenStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewBunTokenStore creates the backing table if needed and returns the store.
func NewBunTokenStore(ctx context.Context, db *bun.DB, opts ...BunTokenStoreOption) (*BunTokenStore, error) {
	store := &BunTokenStore{
		db:     db,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if _, err := db.NewCreateTable().
		Model((*TokenRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create token table")
	}

	return store, nil
}

func (s *BunTokenStore) Get(ctx context.Context) (string, error) {
	record := new(TokenRecord)

	err := s.db.NewSelect().
		Model(record).
		Where("key = ?", tokenKey).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read stored token")
	}

	return record.Value, nil
}

func (s *BunTokenStore) Set(ctx context.Context, token string) error {
	now := time.Now()
	record := &TokenRecord{
		Key:       tokenKey,
		Value:     token,
		UpdatedAt: &now,
	}

	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to persist token")
	}

	return nil
}

func (s *BunTokenStore) Remove(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*TokenRecord)(nil)).
		Where("key = ?", tokenKey).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to remove stored token")
	}

	return nil
}

func (s *BunTokenStore) Has(ctx context.Context) bool {
	token, err := s.Get(ctx)
	if err != nil {
		s.logger.Warn("token store read error: %v", err)
		return false
	}
	return token != ""
}
