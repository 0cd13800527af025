package geodb

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9seconds/geoipd/mmdb"
)

type countingLookuper struct {
	calls  int
	result mmdb.Value
	err    error
}

func (c *countingLookuper) Lookup(ctx context.Context, ip net.IP) (mmdb.Value, error) {
	c.calls++

	return c.result, c.err
}

func TestCacheHit(t *testing.T) {
	backend := &countingLookuper{
		result: mmdb.Map{{Key: "country", Value: mmdb.String("GB")}},
	}
	lookuper := NewCachingLookuper(backend, 100, time.Minute)
	ip := net.ParseIP("81.2.69.142")

	value, err := lookuper.Lookup(context.Background(), ip)
	require.NoError(t, err)
	assert.Equal(t, backend.result, value)
	assert.Equal(t, 1, backend.calls)

	lookuper.(cachingLookuper).cache.Wait()

	value, err = lookuper.Lookup(context.Background(), ip)
	require.NoError(t, err)
	assert.Equal(t, backend.result, value)
	assert.Equal(t, 1, backend.calls)
}

func TestCacheKeepsAbsence(t *testing.T) {
	backend := &countingLookuper{}
	lookuper := NewCachingLookuper(backend, 100, time.Minute)
	ip := net.ParseIP("9.9.9.9")

	value, err := lookuper.Lookup(context.Background(), ip)
	require.NoError(t, err)
	assert.Nil(t, value)

	lookuper.(cachingLookuper).cache.Wait()

	value, err = lookuper.Lookup(context.Background(), ip)
	require.NoError(t, err)
	assert.Nil(t, value)
	assert.Equal(t, 1, backend.calls)
}

func TestCacheDoesNotKeepErrors(t *testing.T) {
	backend := &countingLookuper{err: ErrDatabaseIsNotReadyYet}
	lookuper := NewCachingLookuper(backend, 100, time.Minute)
	ip := net.ParseIP("81.2.69.142")

	_, err := lookuper.Lookup(context.Background(), ip)
	assert.ErrorIs(t, err, ErrDatabaseIsNotReadyYet)

	lookuper.(cachingLookuper).cache.Wait()

	_, err = lookuper.Lookup(context.Background(), ip)
	assert.ErrorIs(t, err, ErrDatabaseIsNotReadyYet)
	assert.Equal(t, 2, backend.calls)
}
