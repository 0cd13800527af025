package geodb

import (
	"context"
	"net"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/9seconds/geoipd/mmdb"
)

type cachingLookuper struct {
	Lookuper

	cache *ristretto.Cache
	ttl   time.Duration
}

func (c cachingLookuper) Lookup(ctx context.Context, ip net.IP) (mmdb.Value, error) {
	cacheKey := ip.String()

	if value, ok := c.cache.Get(cacheKey); ok {
		// Absence is a result too and is cached as a nil record.
		if value == nil {
			return nil, nil
		}

		return value.(mmdb.Value), nil
	}

	result, err := c.Lookuper.Lookup(ctx, ip)
	if err != nil {
		return nil, err
	}

	c.cache.SetWithTTL(cacheKey, result, 1, c.ttl)

	return result, nil
}

// NewCachingLookuper wraps a lookuper with a TTLed in-memory cache
// keyed by the ip address.
func NewCachingLookuper(db Lookuper, itemsCount uint, ttl time.Duration) Lookuper {
	cacheConfig := &ristretto.Config{
		MaxCost:     int64(itemsCount),
		NumCounters: 10 * int64(itemsCount),
		Metrics:     false,
		BufferItems: 64,
	}

	cache, err := ristretto.NewCache(cacheConfig)
	if err != nil {
		panic(err)
	}

	return cachingLookuper{
		Lookuper: db,
		cache:    cache,
		ttl:      ttl,
	}
}
