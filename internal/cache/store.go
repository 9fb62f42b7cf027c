// Package cache is the coordination store shared by independent job
// invocations: the scenario cycle lock and trigger idempotency keys.
package cache

import (
	"context"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	// DeleteIfValue removes key only while it still holds value, atomically.
	DeleteIfValue(ctx context.Context, key string, value []byte) (bool, error)
}

// Prefixed namespaces every key of an underlying store.
type Prefixed struct {
	Store  Store
	Prefix string
}

func (p Prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.Store.Get(ctx, p.Prefix+key)
}

func (p Prefixed) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.Store.Set(ctx, p.Prefix+key, value, ttl)
}

func (p Prefixed) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.Store.SetNX(ctx, p.Prefix+key, value, ttl)
}

func (p Prefixed) Delete(ctx context.Context, key string) error {
	return p.Store.Delete(ctx, p.Prefix+key)
}

func (p Prefixed) DeleteIfValue(ctx context.Context, key string, value []byte) (bool, error) {
	return p.Store.DeleteIfValue(ctx, p.Prefix+key, value)
}
