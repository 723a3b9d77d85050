package factory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-scankey/internal/config"
	"go-scankey/internal/kvstore"
	"go-scankey/internal/logger"
	"go-scankey/internal/strategy"

	"github.com/sirupsen/logrus"
)

// StoreType represents the key-value backends the agent can persist to
type StoreType string

const (
	// MemoryStore keeps everything in process memory
	MemoryStore StoreType = "memory"
	// SQLiteStore for a local database file
	SQLiteStore StoreType = "sqlite"
	// RedisStore for a shared Redis instance
	RedisStore StoreType = "redis"
	// MongoStore for a MongoDB collection
	MongoStore StoreType = "mongo"
	// AzureStore for Azure blob storage
	AzureStore StoreType = "azure"
)

// dialTimeout bounds connecting to remote backends at startup.
const dialTimeout = 10 * time.Second

// StoreFactory creates key-value stores
type StoreFactory interface {
	CreateStore(ctx context.Context, storeType StoreType) (kvstore.Store, error)
}

// StrategyFactory creates upload strategies
type StrategyFactory interface {
	CreateStrategy(name string) (strategy.UploadStrategy, error)
}

// storeFactory implements StoreFactory
type storeFactory struct {
	cfg *config.Config
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config) StoreFactory {
	return &storeFactory{cfg: cfg}
}

// CreateStore opens the backend and wraps it with the in-memory fallback and
// the configured key namespace. A backend that cannot be opened is logged and
// replaced by memory only, so the agent keeps working without persistence.
func (f *storeFactory) CreateStore(ctx context.Context, storeType StoreType) (kvstore.Store, error) {
	primary, err := f.open(ctx, storeType)
	if err != nil {
		if !isKnownStore(storeType) {
			return nil, err
		}
		logger.WithError(err).WithField("backend", storeType).Error("Store backend unavailable, running in memory")
		primary = nil
	}

	var store kvstore.Store = kvstore.NewFallbackStore(string(storeType), primary)
	if f.cfg.StoreNamespace != "" {
		store = kvstore.Namespaced{Store: store, Prefix: f.cfg.StoreNamespace}
	}
	logger.WithFields(logrus.Fields{
		"backend":   storeType,
		"namespace": f.cfg.StoreNamespace,
		"durable":   primary != nil,
	}).Info("Key-value store ready")
	return store, nil
}

func (f *storeFactory) open(ctx context.Context, storeType StoreType) (kvstore.Store, error) {
	cfg := f.cfg
	switch storeType {
	case MemoryStore:
		return kvstore.NewMemoryStore(), nil
	case SQLiteStore:
		return kvstore.NewSQLiteStore(cfg.SQLitePath)
	case RedisStore:
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		return kvstore.DialRedis(dctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case MongoStore:
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		return kvstore.DialMongo(dctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case AzureStore:
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		return kvstore.NewAzureStore(dctx, cfg.AzureServiceURL, cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainerName)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}

func isKnownStore(t StoreType) bool {
	switch t {
	case MemoryStore, SQLiteStore, RedisStore, MongoStore, AzureStore:
		return true
	}
	return false
}

// strategyFactory implements StrategyFactory
type strategyFactory struct {
	cfg *config.Config
}

// NewStrategyFactory creates a new strategy factory
func NewStrategyFactory(cfg *config.Config) StrategyFactory {
	return &strategyFactory{cfg: cfg}
}

// CreateStrategy creates an upload strategy by name
func (f *strategyFactory) CreateStrategy(name string) (strategy.UploadStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case strategy.QualityFallbackName, "":
		return strategy.NewQualityFallbackStrategy(
			f.cfg.CompressedAttemptTimeout,
			f.cfg.OriginalAttemptTimeout,
			f.cfg.DuplicateFieldNames,
		), nil
	case strategy.FieldAliasName:
		return strategy.NewFieldAliasStrategy(f.cfg.OriginalAttemptTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported upload strategy: %s", name)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StoreFactory    StoreFactory
	StrategyFactory StrategyFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		StoreFactory:    NewStoreFactory(cfg),
		StrategyFactory: NewStrategyFactory(cfg),
	}
}
