package main

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseConfigString(t *testing.T, content string) (*config, error) {
	t.Helper()

	fp, err := ioutil.TempFile("", "geoipd_config_")
	require.NoError(t, err)

	defer os.Remove(fp.Name())

	_, err = fp.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, fp.Close())

	return parseConfig(fp.Name())
}

func TestParseConfigMinimal(t *testing.T) {
	conf, err := parseConfigString(t, `{
		listen: "127.0.0.1:8080"
		database: "/data/database.mmdb"
	}`)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", conf.GetListen())
	assert.Equal(t, "/data/database.mmdb", conf.GetDatabase())
	assert.EqualValues(t, DefaultCacheSize, conf.Cache.GetSize())
	assert.Equal(t, DefaultCacheTTL, conf.Cache.GetTTL())
	assert.Equal(t, DefaultUpdateEdition, conf.Update.GetEdition())
	assert.Equal(t, DefaultUpdateEvery, conf.Update.GetEvery())
	assert.Equal(t, DefaultHTTPTimeout, conf.Update.GetHTTPTimeout())
	assert.False(t, conf.Update.Enabled())
}

func TestParseConfigFull(t *testing.T) {
	conf, err := parseConfigString(t, `{
		listen: ":8080"
		database: "/data/database.mmdb"
		worker_pool_size: 128

		auth: {
			user: admin
			password: secret
		}

		cache: {
			size: 1000
			ttl: 5m
		}

		update: {
			edition: GeoLite2-Country
			license_key: apikey
			every: 12h
			rate_limit_interval: 1s
			rate_limit_burst: 5
			http_timeout: 30s
		}
	}`)
	require.NoError(t, err)

	assert.Equal(t, 128, conf.GetWorkerPoolSize())
	assert.Equal(t, "admin", conf.Auth.User)
	assert.Equal(t, "secret", conf.Auth.Password)
	assert.EqualValues(t, 1000, conf.Cache.GetSize())
	assert.Equal(t, 5*time.Minute, conf.Cache.GetTTL())
	assert.True(t, conf.Update.Enabled())
	assert.Equal(t, "GeoLite2-Country", conf.Update.GetEdition())
	assert.Equal(t, 12*time.Hour, conf.Update.GetEvery())
	assert.Equal(t, time.Second, conf.Update.GetRateLimitInterval())
	assert.Equal(t, 5, conf.Update.GetRateLimitBurst())
	assert.Equal(t, 30*time.Second, conf.Update.GetHTTPTimeout())
}

func TestParseConfigBadListen(t *testing.T) {
	_, err := parseConfigString(t, `{
		listen: "nope"
		database: "/data/database.mmdb"
	}`)

	assert.Error(t, err)
}

func TestParseConfigNoDatabase(t *testing.T) {
	_, err := parseConfigString(t, `{
		listen: ":8080"
	}`)

	assert.Error(t, err)
}

func TestParseConfigBadDuration(t *testing.T) {
	_, err := parseConfigString(t, `{
		listen: ":8080"
		database: "/data/database.mmdb"

		cache: {
			ttl: "not-a-duration"
		}
	}`)

	assert.Error(t, err)
}

func TestParseConfigNotAFile(t *testing.T) {
	_, err := parseConfig("/definitely/does/not/exist")

	assert.Error(t, err)
}
