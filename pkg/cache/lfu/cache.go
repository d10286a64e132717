package lfu

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/tsingsun/tcloud/pkg/cache"
	"github.com/tsingsun/tcloud/pkg/conf"
	"github.com/vmihailenco/go-tinylfu"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTTL     = time.Minute
	maxOffset      = 10 * time.Second
	defaultSamples = 100000
)

var ErrValueReceiverNil = errors.New("cache: value receiver must not nil pointer")

var _ cache.Cache = (*TinyLFU)(nil)

// Config holds the tunables of a TinyLFU cache.
type Config struct {
	// DriverName is the name registered to the cache manager. Empty skips registration.
	DriverName string        `yaml:"driverName" json:"driverName"`
	Size       int           `yaml:"size" json:"size"`
	Samples    int           `yaml:"samples" json:"samples"`
	TTL        time.Duration `yaml:"ttl" json:"ttl"`
	Deviation  int64         `yaml:"deviation" json:"deviation"`
	// Subsidiary marks the cache as the local tier in front of a shared one.
	// A subsidiary is never registered and treats TTL as an upper bound.
	Subsidiary bool `yaml:"subsidiary" json:"subsidiary"`
}

// TinyLFU is an in-process cache over the W-TinyLFU admission policy.
// Every entry carries an expiration, one minute when the config does not
// say otherwise. Subsidiary caches shorten each TTL by a random slice of
// the configured offset so that entries do not expire in lockstep.
type TinyLFU struct {
	Config
	mu     sync.Mutex
	rand   *rand.Rand
	lfu    *tinylfu.T
	offset time.Duration

	marshal   cache.MarshalFunc
	unmarshal cache.UnmarshalFunc

	group singleflight.Group
}

// NewTinyLFU builds a cache from the given configuration node and, when
// DriverName is set on a non subsidiary cache, registers it with the
// cache manager.
func NewTinyLFU(cnf *conf.Configuration) (*TinyLFU, error) {
	c := &TinyLFU{
		rand: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
		Config: Config{
			Samples:   defaultSamples,
			Deviation: 10,
			TTL:       defaultTTL,
		},
	}
	if err := c.Apply(cnf); err != nil {
		return nil, err
	}
	if c.marshal == nil {
		c.marshal = cache.DefaultMarshalFunc
		c.unmarshal = cache.DefaultUnmarshalFunc
	}
	if c.DriverName != "" && !c.Subsidiary {
		if err := cache.RegisterCache(c.DriverName, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Apply loads cnf over the current config and sizes the underlying ring.
func (c *TinyLFU) Apply(cnf *conf.Configuration) error {
	if err := cnf.Unmarshal(&c.Config); err != nil {
		return err
	}
	if c.Subsidiary {
		c.offset = c.TTL / time.Duration(c.Deviation)
		if c.offset > maxOffset {
			c.offset = maxOffset
		}
	}
	c.lfu = tinylfu.New(c.Size, c.Samples)
	return nil
}

// Get reads the value at key into value, returning cache.ErrCacheMiss when
// absent. With a Getter option a miss falls through to the loader, whose
// result is stored and handed back. The Group option collapses concurrent
// loads of one key into a single loader call.
func (c *TinyLFU) Get(ctx context.Context, key string, value any, opts ...cache.Option) error {
	opt := cache.ApplyOptions(opts...)
	err := c.read(key, value, opt.Raw)
	if opt.Getter == nil || !errors.Is(err, cache.ErrCacheMiss) {
		return err
	}
	return c.take(ctx, key, value, opt)
}

func (c *TinyLFU) read(key string, value any, raw bool) error {
	if value == nil {
		return ErrValueReceiverNil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	val, ok := c.lfu.Get(key)
	if !ok {
		return cache.ErrCacheMiss
	}
	if val == nil {
		return nil
	}
	if raw {
		return assign(val, value)
	}
	b, ok := val.([]byte)
	if !ok {
		return errors.New("cache: can't unmarshal,value must be []byte")
	}
	return c.unmarshal(b, value)
}

// take loads the value through the getter and stores it. Serialized values are stored
// as marshaled bytes so that each singleflight follower unmarshals into its own receiver.
func (c *TinyLFU) take(ctx context.Context, key string, value any, opt *cache.Options) error {
	load := func() (any, error) {
		v, err := opt.Getter(ctx, key)
		if err != nil {
			return nil, err
		}
		if !opt.Raw {
			b, err := c.marshal(v)
			if err != nil {
				return nil, err
			}
			v = b
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return v, c.store(key, v, c.adjustTTL(opt.Expiration(), opt), true)
	}

	var (
		v   any
		err error
	)
	if opt.Group {
		v, err, _ = c.group.Do(key, load)
	} else {
		v, err = load()
	}
	if err != nil {
		return err
	}
	if opt.Raw {
		return assign(v, value)
	}
	return c.unmarshal(v.([]byte), value)
}

// Set stores value at key. A zero TTL falls back to the configured one, and
// subsidiary caches shave a random slice off the final TTL.
func (c *TinyLFU) Set(ctx context.Context, key string, value any, opts ...cache.Option) error {
	opt := cache.ApplyOptions(opts...)
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case opt.SetXX:
		if _, ok := c.lfu.Get(key); !ok {
			return fmt.Errorf("setxx: key not exist:%s", key)
		}
	case opt.SetNX:
		if _, ok := c.lfu.Get(key); ok {
			return fmt.Errorf("setnx key already exist:%s", key)
		}
	}
	return c.store(key, value, c.adjustTTL(opt.TTL, opt), opt.Raw)
}

// adjustTTL clamps ttl for subsidiary caches, substitutes the default for
// a missing one and applies the anti herd offset.
func (c *TinyLFU) adjustTTL(ttl time.Duration, opt *cache.Options) time.Duration {
	// Skipping the remote tier turns the write into a plain local one, so
	// the subsidiary bound does not apply.
	if c.Subsidiary && !opt.Skip.Is(cache.SkipRemote) && ttl > c.TTL {
		ttl = c.TTL
	}
	if ttl <= 0 {
		ttl = c.TTL
	}
	if c.offset <= 0 {
		return ttl
	}
	if ttl >= c.TTL {
		return ttl + time.Duration(c.rand.Int63n(int64(c.offset)))
	}
	return ttl + time.Duration(c.rand.Int63n(int64(ttl)/c.Deviation))
}

func (c *TinyLFU) store(key string, value any, ttl time.Duration, raw bool) error {
	if !raw {
		b, err := c.marshal(value)
		if err != nil {
			return err
		}
		value = b
	}
	c.lfu.Set(&tinylfu.Item{Key: key, Value: value, ExpireAt: time.Now().Add(ttl)})
	return nil
}

func (c *TinyLFU) Has(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lfu.Get(key)
	return ok
}

func (c *TinyLFU) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lfu.Del(key)
	return nil
}

func (c *TinyLFU) IsNotFound(err error) bool {
	return errors.Is(err, cache.ErrCacheMiss)
}

// assign writes val into the pointer value without a serialization round
// trip. Common scalar receivers are special cased, everything else goes
// through reflection.
func assign(val, value any) error {
	switch value := value.(type) {
	case *string:
		*value = val.(string)
	case *[]byte:
		*value = val.([]byte)
	case *bool:
		*value = val.(bool)
	case *int:
		*value = val.(int)
	case *float64:
		*value = val.(float64)
	default:
		if reflect.TypeOf(value).Kind() != reflect.Ptr {
			return errors.New("cache: output value must be a pointer")
		}
		reflect.ValueOf(value).Elem().Set(reflect.ValueOf(val))
	}
	return nil
}
