package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net"
	"path/filepath"
	"time"

	"github.com/hjson/hjson-go"
)

const (
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultUpdateEvery       = 24 * time.Hour
	DefaultUpdateEdition     = "GeoLite2-City"
	DefaultRateLimitInterval = 100 * time.Millisecond
	DefaultRateLimitBurst    = 10
	DefaultCacheSize         = 4096
	DefaultCacheTTL          = time.Hour
)

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var v interface{}

	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("cannot unmarshal duration: %w", err)
	}

	vv, ok := v.(string)
	if !ok {
		return fmt.Errorf("incorrect duration: %v", v)
	}

	dur, err := time.ParseDuration(vv)
	if err != nil {
		return fmt.Errorf("cannot parse duration: %w", err)
	}

	d.Duration = dur

	return nil
}

type config struct {
	Listen         string       `json:"listen"`
	Database       string       `json:"database"`
	WorkerPoolSize uint         `json:"worker_pool_size"`
	Auth           configAuth   `json:"auth"`
	Cache          configCache  `json:"cache"`
	Update         configUpdate `json:"update"`
}

func (c config) GetListen() string {
	return c.Listen
}

func (c config) GetDatabase() string {
	return c.Database
}

func (c config) GetWorkerPoolSize() int {
	return int(c.WorkerPoolSize)
}

type configAuth struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type configCache struct {
	Size uint     `json:"size"`
	TTL  duration `json:"ttl"`
}

func (c configCache) GetSize() uint {
	if c.Size == 0 {
		return DefaultCacheSize
	}

	return c.Size
}

func (c configCache) GetTTL() time.Duration {
	if c.TTL.Duration == 0 {
		return DefaultCacheTTL
	}

	return c.TTL.Duration
}

type configUpdate struct {
	Edition           string   `json:"edition"`
	LicenseKey        string   `json:"license_key"`
	Every             duration `json:"every"`
	RateLimitInterval duration `json:"rate_limit_interval"`
	RateLimitBurst    uint     `json:"rate_limit_burst"`
	HTTPTimeout       duration `json:"http_timeout"`
}

func (c configUpdate) Enabled() bool {
	return c.LicenseKey != ""
}

func (c configUpdate) GetEdition() string {
	if c.Edition == "" {
		return DefaultUpdateEdition
	}

	return c.Edition
}

func (c configUpdate) GetEvery() time.Duration {
	if c.Every.Duration == 0 {
		return DefaultUpdateEvery
	}

	return c.Every.Duration
}

func (c configUpdate) GetRateLimitInterval() time.Duration {
	if c.RateLimitInterval.Duration == 0 {
		return DefaultRateLimitInterval
	}

	return c.RateLimitInterval.Duration
}

func (c configUpdate) GetRateLimitBurst() int {
	if c.RateLimitBurst == 0 {
		return DefaultRateLimitBurst
	}

	return int(c.RateLimitBurst)
}

func (c configUpdate) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout.Duration == 0 {
		return DefaultHTTPTimeout
	}

	return c.HTTPTimeout.Duration
}

func parseConfig(path string) (*config, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}

	conf := config{}
	rawMap := map[string]interface{}{}

	if err := hjson.Unmarshal(content, &rawMap); err != nil {
		return nil, fmt.Errorf("cannot parse json: %w", err)
	}

	rawBytes, _ := json.Marshal(rawMap)

	if err := json.Unmarshal(rawBytes, &conf); err != nil {
		return nil, fmt.Errorf("cannot map config values: %w", err)
	}

	if _, _, err := net.SplitHostPort(conf.Listen); err != nil {
		return nil, fmt.Errorf("incorrect host:port for listen: %w", err)
	}

	if conf.Database == "" {
		return nil, errors.New("database path is required")
	}

	conf.Database, err = filepath.Abs(conf.Database)
	if err != nil {
		return nil, fmt.Errorf("incorrect database path: %w", err)
	}

	return &conf, nil
}
