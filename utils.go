package main

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"

	"github.com/9seconds/geoipd/geodb"
)

func makeRootContext() (context.Context, context.CancelFunc) {
	rootCtx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)

	go func() {
		for range sigChan {
			cancel()
		}
	}()

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	return rootCtx, cancel
}

// watchReload re-opens the database on SIGHUP. This covers setups
// where the file is refreshed by an external tool instead of the
// built-in updater.
func watchReload(ctx context.Context, log *logger, store *geodb.Store) {
	sigChan := make(chan os.Signal, 1)

	signal.Notify(sigChan, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigChan)

		for {
			select {
			case <-ctx.Done():
				return
			case <-sigChan:
				if err := store.Open(); err != nil {
					log.UpdateError(err)
				} else {
					log.UpdateInfo("database has been reloaded")
				}
			}
		}
	}()
}

func makeHTTPClient(conf configUpdate) geodb.HTTPClient {
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}

	httpClient := &http.Client{
		Timeout: conf.GetHTTPTimeout(),
		Jar:     jar,
	}

	return geodb.NewHTTPClient(httpClient,
		"geoipd/"+version,
		conf.GetRateLimitInterval(),
		conf.GetRateLimitBurst())
}
