// Package storage is the local persistence adapter: a string key-value store
// that survives restarts and is scoped to a single client.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrCorrupt is returned by backends whose underlying data cannot be decoded.
// Callers above the adapter treat it the same as an absent value.
var ErrCorrupt = errors.New("storage: corrupt data")

// Store reads and writes string values under named keys.
// A missing key is reported as ok=false with a nil error.
type Store interface {
	Read(ctx context.Context, key string) (value string, ok bool, err error)
	Write(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend is a Store that owns a connection or file handle.
type Backend interface {
	Store
	io.Closer
}

type scoped struct {
	inner  Store
	prefix string
}

// Scoped namespaces every key of s under scope, so one shared backend can hold
// the storage of many clients without them seeing each other's keys.
func Scoped(s Store, scope string) Store {
	return &scoped{inner: s, prefix: scope + ":"}
}

func (s *scoped) Read(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Read(ctx, s.prefix+key)
}

func (s *scoped) Write(ctx context.Context, key, value string) error {
	return s.inner.Write(ctx, s.prefix+key, value)
}

func (s *scoped) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, s.prefix+key)
}
