package kvstore

import (
	"context"
	"errors"
	"sync"

	"go-scankey/internal/logger"

	"github.com/sirupsen/logrus"
)

// ErrUnavailable is returned by backends that cannot currently be reached.
var ErrUnavailable = errors.New("store unavailable")

// Store is a string-keyed get/set/remove store. Get reports ok=false for a
// missing key; a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by backends holding connections.
type Closer interface {
	Close() error
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// FallbackStore serves from primary and falls back to memory whenever the
// primary errors. Writes always land in memory too. A key whose last primary
// write failed is stale: reads serve the memory copy (absent for a failed
// Remove) until a later primary write for that key succeeds.
type FallbackStore struct {
	primary Store
	memory  *MemoryStore
	name    string

	mu    sync.RWMutex
	stale map[string]struct{}
}

// NewFallbackStore wraps primary with an in-memory fallback. A nil primary
// yields a pure in-memory store.
func NewFallbackStore(name string, primary Store) *FallbackStore {
	return &FallbackStore{
		primary: primary,
		memory:  NewMemoryStore(),
		name:    name,
		stale:   make(map[string]struct{}),
	}
}

func (s *FallbackStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, stale := s.stale[key]; stale || s.primary == nil {
		return s.memory.Get(ctx, key)
	}
	v, ok, err := s.primary.Get(ctx, key)
	if err != nil {
		s.warn(err, "get", key)
		return s.memory.Get(ctx, key)
	}
	return v, ok, nil
}

func (s *FallbackStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.memory.Set(ctx, key, value)
	if s.primary != nil {
		s.track(key, "set", s.primary.Set(ctx, key, value))
	}
	return nil
}

func (s *FallbackStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.memory.Remove(ctx, key)
	if s.primary != nil {
		s.track(key, "remove", s.primary.Remove(ctx, key))
	}
	return nil
}

// track must be called with mu held.
func (s *FallbackStore) track(key, op string, err error) {
	if err == nil {
		delete(s.stale, key)
		return
	}
	s.stale[key] = struct{}{}
	s.warn(err, op, key)
}

// Close closes the primary when it holds resources.
func (s *FallbackStore) Close() error {
	if c, ok := s.primary.(Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *FallbackStore) warn(err error, op, key string) {
	logger.WithError(err).WithFields(logrus.Fields{
		"backend": s.name,
		"op":      op,
		"key":     key,
	}).Warn("Store backend failed, using in-memory fallback")
}

// Namespaced prefixes every key, so several agents can share one backend.
type Namespaced struct {
	Store
	Prefix string
}

func (n Namespaced) key(k string) string {
	if n.Prefix == "" {
		return k
	}
	return n.Prefix + ":" + k
}

func (n Namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.Store.Get(ctx, n.key(key))
}

func (n Namespaced) Set(ctx context.Context, key, value string) error {
	return n.Store.Set(ctx, n.key(key), value)
}

func (n Namespaced) Remove(ctx context.Context, key string) error {
	return n.Store.Remove(ctx, n.key(key))
}

// Close closes the wrapped store when it holds resources.
func (n Namespaced) Close() error {
	if c, ok := n.Store.(Closer); ok {
		return c.Close()
	}
	return nil
}
