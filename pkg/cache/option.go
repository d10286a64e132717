package cache

import (
	"context"
	"time"
)

const defaultItemTTL = time.Minute

type Option func(*Options)

type Options struct {
	// TTL is how long the entry lives.
	TTL time.Duration
	// Getter loads the value on a miss, the loaded value is stored with the
	// options of this call and written to the receiver.
	Getter func(ctx context.Context, key string) (any, error)
	// SetXX makes Set succeed only for keys that already exist.
	SetXX bool
	// SetNX makes Set succeed only for keys not present yet.
	SetNX bool
	// Skip indicates the cache tiers to skip.
	Skip SkipMode
	// Raw indicates whether to skip serialization. Caches accessed across
	// processes are serialized, the flag is generally used for memory caches
	// holding process-local values.
	Raw bool
	// Group indicates whether concurrent Getter loads for the same key are
	// deduplicated.
	Group bool
}

func ApplyOptions(opts ...Option) *Options {
	o := new(Options)
	for _, apply := range opts {
		apply(o)
	}
	return o
}

// Expiration returns the TTL to store with. Sub-second values fall back to
// the default item TTL.
func (o *Options) Expiration() time.Duration {
	if o.TTL == 0 || o.TTL >= time.Second {
		return o.TTL
	}
	return defaultItemTTL
}

// WithTTL sets how long the entry lives.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// WithGetter sets the loader called on a cache miss.
func WithGetter(getter func(ctx context.Context, key string) (any, error)) Option {
	return func(o *Options) {
		o.Getter = getter
	}
}

// WithSetXX restricts Set to keys that already exist.
func WithSetXX() Option {
	return func(o *Options) {
		o.SetXX = true
	}
}

// WithSetNX restricts Set to keys that do not exist yet.
func WithSetNX() Option {
	return func(o *Options) {
		o.SetNX = true
	}
}

// WithSkip excludes the given tiers from the operation.
func WithSkip(skip SkipMode) Option {
	return func(o *Options) {
		o.Skip = skip
	}
}

// WithRaw stores the value as-is without serialization.
func WithRaw() Option {
	return func(o *Options) {
		o.Raw = true
	}
}

// WithGroup collapses concurrent loads of one key into a single call.
func WithGroup() Option {
	return func(o *Options) {
		o.Group = true
	}
}
