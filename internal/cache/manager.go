package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Store holds encoded graph documents by key
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store backed by go-cache
type MemoryStore struct {
	memCache *cache.Cache
}

// NewMemoryStore creates an in-process store that purges expired entries every cleanup interval
func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	return &MemoryStore{
		memCache: cache.New(cache.NoExpiration, cleanup),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := s.memCache.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.memCache.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.memCache.Delete(key)
	return nil
}

// ItemCount returns the number of entries, including expired ones not yet purged
func (s *MemoryStore) ItemCount() int {
	return s.memCache.ItemCount()
}

// Manager caches finished graph documents per credential.
// Keys are derived from a hash of the token so tokens never reach the store.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewManager creates a cache manager. A zero ttl or nil store disables caching.
func NewManager(store Store, ttl time.Duration, logger logrus.FieldLogger) *Manager {
	return &Manager{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// Enabled reports whether documents are cached at all
func (m *Manager) Enabled() bool {
	return m.store != nil && m.ttl > 0
}

// TTL returns how long a document stays cached
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Key returns the store key for token
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "octonet:graph:" + hex.EncodeToString(sum[:])
}

// GetDocument returns the cached document for token. Store failures count as a miss.
func (m *Manager) GetDocument(ctx context.Context, token string) ([]byte, bool) {
	if !m.Enabled() {
		return nil, false
	}

	data, ok, err := m.store.Get(ctx, Key(token))
	if err != nil {
		m.logger.WithError(err).Warn("Failed to read cached graph")
		return nil, false
	}
	if ok {
		m.logger.Debug("Graph cache hit")
	}
	return data, ok
}

// SetDocument caches data for token
func (m *Manager) SetDocument(ctx context.Context, token string, data []byte) {
	if !m.Enabled() {
		return
	}

	if err := m.store.Set(ctx, Key(token), data, m.ttl); err != nil {
		m.logger.WithError(err).Warn("Failed to cache graph")
	}
}

// Invalidate drops the cached document for token
func (m *Manager) Invalidate(ctx context.Context, token string) {
	if m.store == nil {
		return
	}
	if err := m.store.Delete(ctx, Key(token)); err != nil {
		m.logger.WithError(err).Warn("Failed to invalidate cached graph")
	}
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck pings the store when it supports it. In-process stores are always healthy.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if hc, ok := m.store.(healthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
