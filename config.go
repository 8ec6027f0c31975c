package torod

import (
	"fmt"
	"time"

	"github.com/ostafen/torod/d2r"
	"github.com/ostafen/torod/storage"
	"github.com/ostafen/torod/store"
	badgerstore "github.com/ostafen/torod/store/badger"
	"go.uber.org/zap"
)

const (
	StoreEngineBadger = "badger"
	StoreEngineBbolt  = "bbolt"
)

const (
	GCReclaimIntervalDefault = badgerstore.GCReclaimIntervalDefault
	GCDiscardRatioDefault    = badgerstore.GCDiscardRatioDefault
	MaxRowSizeDefault        = storage.MaxRowSizeDefault
	MaxDepthDefault          = d2r.MaxDepthDefault
)

// Config contains torod configuration parameters
type Config struct {
	InMemory          bool
	StoreEngine       string
	Store             store.Store
	MaxRowSize        int
	MaxDepth          int
	GCReclaimInterval time.Duration
	GCDiscardRatio    float64
	Logger            *zap.Logger
}

func defaultConfig() *Config {
	return &Config{
		InMemory:          false,
		StoreEngine:       StoreEngineBadger,
		MaxRowSize:        MaxRowSizeDefault,
		MaxDepth:          MaxDepthDefault,
		GCReclaimInterval: GCReclaimIntervalDefault,
		GCDiscardRatio:    GCDiscardRatioDefault,
		Logger:            zap.NewNop(),
	}
}

func (c *Config) applyOptions(opts []Option) (*Config, error) {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Option is a function that takes a config struct and modifies it
type Option func(c *Config) error

// InMemoryMode allows to enable/disable in-memory mode.
// Only the badger engine supports it.
func InMemoryMode(enable bool) Option {
	return func(c *Config) error {
		c.InMemory = enable
		return nil
	}
}

// WithStoreEngine selects the key/value store used to persist documents.
func WithStoreEngine(engine string) Option {
	return func(c *Config) error {
		switch engine {
		case StoreEngineBadger, StoreEngineBbolt:
			c.StoreEngine = engine
			return nil
		}
		return fmt.Errorf("%w: %q", ErrUnknownStore, engine)
	}
}

// WithStore makes the database use s instead of opening a store engine.
// The database takes ownership of s and closes it on Close.
func WithStore(s store.Store) Option {
	return func(c *Config) error {
		if s == nil {
			return fmt.Errorf("nil store")
		}
		c.Store = s
		return nil
	}
}

// WithMaxRowSize sets the maximum encoded size, in bytes, of a single stored row.
func WithMaxRowSize(size int) Option {
	return func(c *Config) error {
		if size <= 0 {
			return fmt.Errorf("max row size must be positive, got %d", size)
		}
		c.MaxRowSize = size
		return nil
	}
}

// WithMaxDepth sets the maximum nesting level of documents.
func WithMaxDepth(depth int) Option {
	return func(c *Config) error {
		if depth <= 0 {
			return fmt.Errorf("max depth must be positive, got %d", depth)
		}
		c.MaxDepth = depth
		return nil
	}
}

func WithGCReclaimInterval(interval time.Duration) Option {
	return func(c *Config) error {
		if interval <= 0 {
			return fmt.Errorf("gc reclaim interval must be positive, got %s", interval)
		}
		c.GCReclaimInterval = interval
		return nil
	}
}

func WithGCDiscardRatio(ratio float64) Option {
	return func(c *Config) error {
		if ratio <= 0 || ratio >= 1 {
			return fmt.Errorf("gc discard ratio must be in (0, 1), got %v", ratio)
		}
		c.GCDiscardRatio = ratio
		return nil
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Config) error {
		if log == nil {
			log = zap.NewNop()
		}
		c.Logger = log
		return nil
	}
}
