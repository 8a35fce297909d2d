// Package cache keeps the last good data per dashboard category for
// optimistic display. It is a read-through optimization, never the system of
// record.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"course-dashboard/internal/domain"
)

// Entry is what every backend stores under a key.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store is implemented by the memory, Redis and SQLite backends. Get reports
// a miss with ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("cache: store closed")

// Key is the cache key of one category for one user.
func Key(userID int, c domain.Category) string {
	return fmt.Sprintf("dashboard:%d:%s", userID, c)
}

// Put encodes v as the entry for key.
func Put[T any](ctx context.Context, s Store, key string, v T, at time.Time) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, Entry{Data: b, Timestamp: at})
}

// Fetch decodes the entry for key. Entries older than maxAge (when > 0)
// count as misses.
func Fetch[T any](ctx context.Context, s Store, key string, maxAge time.Duration, now time.Time) (T, time.Time, bool, error) {
	var zero T
	e, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return zero, time.Time{}, false, err
	}
	if maxAge > 0 && now.Sub(e.Timestamp) > maxAge {
		return zero, time.Time{}, false, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, time.Time{}, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return v, e.Timestamp, true, nil
}
