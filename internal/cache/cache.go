// Package cache holds short-lived string values such as resolved apply URLs.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("key not found in cache")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Options struct {
	DefaultTTL    time.Duration
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

func DefaultOptions() Options {
	return Options{DefaultTTL: 24 * time.Hour}
}

// New returns a Redis cache when opts names a server, otherwise an
// in-process one.
func New(opts Options) Cache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultOptions().DefaultTTL
	}
	if opts.RedisURL != "" {
		return NewRedis(opts)
	}
	return NewMemory(opts.DefaultTTL)
}
