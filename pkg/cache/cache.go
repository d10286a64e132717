// Package cache defines the cache component interface and the driver registry.
package cache

import (
	"context"
	"errors"
	"fmt"
)

const (
	// SkipLocal skips the in-process cache tier.
	SkipLocal SkipMode = 1 << iota
	// SkipRemote skips the shared cache tier.
	SkipRemote

	SkipAll = SkipLocal | SkipRemote
)

var (
	ErrCacheMiss      = errors.New("cache: key is missing")
	ErrDriverNameMiss = errors.New("cache: driver name missing")
)

// SkipMode controls which cache tiers an operation touches.
type SkipMode int

// Any reports whether at least one tier is skipped.
func (f SkipMode) Any() bool {
	return f != 0
}

// Is reports whether mode is part of the skip set.
func (f SkipMode) Is(mode SkipMode) bool {
	return f&mode != 0
}

// Cache is the interface for cache drivers.
type Cache interface {
	// Get gets the value for the given key and stores it into v.
	// Returns ErrCacheMiss when the key does not exist.
	Get(ctx context.Context, key string, v any, opts ...Option) error
	// Set sets the value for the given key.
	Set(ctx context.Context, key string, v any, opts ...Option) error
	// Has reports whether the key exists.
	Has(ctx context.Context, key string) bool
	// Del removes the key.
	Del(ctx context.Context, key string) error
	// IsNotFound detects whether the error means the key was not found.
	IsNotFound(err error) bool
}

var (
	_manager       = &manager{drivers: make(map[string]Cache)}
	_defaultDriver Cache
)

type manager struct {
	drivers map[string]Cache
}

// SetDefault sets the default driver used by the package level functions.
func SetDefault(driver string) error {
	drv, err := GetCache(driver)
	if err != nil {
		return err
	}
	_defaultDriver = drv
	return nil
}

// RegisterCache registers a cache driver. The first registered driver becomes
// the default one.
func RegisterCache(name string, cache Cache) error {
	if name == "" {
		return ErrDriverNameMiss
	}
	if _, ok := _manager.drivers[name]; ok {
		return fmt.Errorf("driver already registered for name %q", name)
	}
	_manager.drivers[name] = cache
	if len(_manager.drivers) == 1 {
		return SetDefault(name)
	}
	return nil
}

// UnregisterCache removes a registered driver, mainly for tests.
func UnregisterCache(name string) {
	delete(_manager.drivers, name)
}

// GetCache returns a registered Cache driver.
func GetCache(driver string) (Cache, error) {
	drv, ok := _manager.drivers[driver]
	if !ok {
		return nil, fmt.Errorf("driver %q not registered", driver)
	}
	return drv, nil
}

func Get(ctx context.Context, key string, v any, opts ...Option) error {
	return _defaultDriver.Get(ctx, key, v, opts...)
}

func Set(ctx context.Context, key string, v any, opts ...Option) error {
	return _defaultDriver.Set(ctx, key, v, opts...)
}

func Has(ctx context.Context, key string) bool {
	return _defaultDriver.Has(ctx, key)
}

func Del(ctx context.Context, key string) error {
	return _defaultDriver.Del(ctx, key)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
