package tc3

import (
	"context"
	"strings"
	"time"

	"github.com/tsingsun/tcloud/pkg/cache"
)

// KeyDeriver yields the signing key scoped to one credential pair, one UTC
// day and one service.
type KeyDeriver interface {
	SigningKey(ctx context.Context, cred Credentials, date, service string) ([]byte, error)
}

// directDeriver runs the key chain on every call.
type directDeriver struct{}

func (directDeriver) SigningKey(_ context.Context, cred Credentials, date, service string) ([]byte, error) {
	return DeriveKey(cred.SecretKey, date, service), nil
}

// CachedKeyDeriver memoizes derived keys until the scope date rolls over.
// The scope date is part of the cache key, so a stale entry can never be
// served for a different day, the ttl only bounds residency. Keys are stored
// raw, the material never leaves the process.
type CachedKeyDeriver struct {
	cache cache.Cache
}

func NewCachedKeyDeriver(c cache.Cache) *CachedKeyDeriver {
	return &CachedKeyDeriver{cache: c}
}

func (d *CachedKeyDeriver) SigningKey(ctx context.Context, cred Credentials, date, service string) (signing []byte, err error) {
	key := strings.Join([]string{"tc3", cred.SecretID, date, service}, "|")
	err = d.cache.Get(ctx, key, &signing,
		cache.WithRaw(),
		cache.WithGroup(),
		cache.WithTTL(ttlToNextUTCDay(time.Now())),
		cache.WithGetter(func(context.Context, string) (any, error) {
			return DeriveKey(cred.SecretKey, date, service), nil
		}),
	)
	return signing, err
}

// ttlToNextUTCDay bounds a derived key's cache residency to the rest of the
// current UTC day.
func ttlToNextUTCDay(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next.Sub(now)
}
