// Package cache provides the best-effort cache capability used by the market
// analysis engine. Failures never affect correctness: callers log and carry on.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Store is the minimal capability the engine needs. A nil-safe no-op
// implementation backs environments without a cache backend.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key string, value string, ttl time.Duration) error
}

type noop struct{}

func (noop) Get(ctx context.Context, key string) (string, error) { return "", ErrMiss }

func (noop) SetEx(ctx context.Context, key string, value string, ttl time.Duration) error {
	return nil
}

// NewNoop returns a Store that never hits and swallows writes.
func NewNoop() Store {
	return noop{}
}
