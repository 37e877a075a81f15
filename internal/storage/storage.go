package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store remembers the last published fingerprint of each summary rate.
type Store interface {
	Close() error
	SeenRate(key, fingerprint string) (bool, error)
	MarkRate(key, fingerprint string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RateTTL         time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRateTTL         = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RateTTL <= 0 {
		opts.RateTTL = defaultRateTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                          { return nil }
func (noopStore) SeenRate(string, string) (bool, error) { return false, nil }
func (noopStore) MarkRate(string, string) error         { return nil }
