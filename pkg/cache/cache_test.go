package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	data map[string]any
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]any)}
}

func (m *mapCache) Get(_ context.Context, key string, v any, _ ...Option) error {
	val, ok := m.data[key]
	if !ok {
		return ErrCacheMiss
	}
	if p, ok := v.(*string); ok {
		*p = val.(string)
	}
	return nil
}

func (m *mapCache) Set(_ context.Context, key string, v any, _ ...Option) error {
	m.data[key] = v
	return nil
}

func (m *mapCache) Has(_ context.Context, key string) bool {
	_, ok := m.data[key]
	return ok
}

func (m *mapCache) Del(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *mapCache) IsNotFound(err error) bool {
	return err == ErrCacheMiss
}

func TestSkipMode(t *testing.T) {
	tests := []struct {
		name string
		mode SkipMode
		is   SkipMode
		want bool
	}{
		{name: "local", mode: SkipLocal, is: SkipLocal, want: true},
		{name: "local-not-remote", mode: SkipLocal, is: SkipRemote, want: false},
		{name: "all-includes-local", mode: SkipAll, is: SkipLocal, want: true},
		{name: "all-includes-remote", mode: SkipAll, is: SkipRemote, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.Is(tt.is))
		})
	}
	assert.False(t, SkipMode(0).Any())
	assert.True(t, SkipLocal.Any())
}

func TestRegisterCache(t *testing.T) {
	t.Run("miss name", func(t *testing.T) {
		assert.ErrorIs(t, RegisterCache("", newMapCache()), ErrDriverNameMiss)
	})
	t.Run("first becomes default", func(t *testing.T) {
		c := newMapCache()
		require.NoError(t, RegisterCache("first", c))
		t.Cleanup(func() { UnregisterCache("first") })

		got, err := GetCache("first")
		require.NoError(t, err)
		assert.Equal(t, c, got)

		require.NoError(t, Set(context.Background(), "k", "v"))
		assert.True(t, Has(context.Background(), "k"))
		var v string
		require.NoError(t, Get(context.Background(), "k", &v))
		assert.Equal(t, "v", v)
		require.NoError(t, Del(context.Background(), "k"))
		assert.ErrorIs(t, Get(context.Background(), "k", &v), ErrCacheMiss)
		assert.True(t, IsNotFound(ErrCacheMiss))
	})
	t.Run("duplicate", func(t *testing.T) {
		require.NoError(t, RegisterCache("dup", newMapCache()))
		t.Cleanup(func() { UnregisterCache("dup") })
		err := RegisterCache("dup", newMapCache())
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "already registered"))
	})
	t.Run("set default", func(t *testing.T) {
		require.Error(t, SetDefault("none"))
		other := newMapCache()
		require.NoError(t, RegisterCache("other", other))
		t.Cleanup(func() { UnregisterCache("other") })
		require.NoError(t, SetDefault("other"))
		require.NoError(t, Set(context.Background(), "ok", "1"))
		assert.True(t, other.Has(context.Background(), "ok"))
	})
}

func TestGetCache(t *testing.T) {
	_, err := GetCache("unknown")
	assert.Error(t, err)
}
