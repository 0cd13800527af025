package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/9seconds/geoipd/geodb"
	"github.com/9seconds/geoipd/server"
)

const version = "0.1.0"

const shutdownTimeout = 10 * time.Second

var (
	app = kingpin.New(
		"geoipd",
		"IP geolocation service speaking the GeoIP2 web service protocol.")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("GEOIPD_DEBUG").
		Bool()
	configFile = app.Arg("config-path", "Path to the config.").
			Envar("GEOIPD_CONFIG").
			Required().
			File()
)

func init() {
	app.Version(version)
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log := newLogger()

	conf, err := parseConfig((*configFile).Name())
	if err != nil {
		log.mainLog.Fatal().Err(err).Msg("cannot parse config")
	}

	rootCtx, cancel := makeRootContext()
	defer cancel()

	fs := afero.NewOsFs()
	store := geodb.NewStore(fs, conf.GetDatabase())
	stats := &geodb.UsageStats{}

	if err := store.Open(); err != nil {
		if !conf.Update.Enabled() {
			log.mainLog.Fatal().Err(err).Msg("cannot open the database")
		}

		log.mainLog.Warn().Err(err).
			Msg("database is not available yet, waiting for the updater")
	}

	if conf.Update.Enabled() {
		updater, err := geodb.NewUpdater(store,
			fs,
			makeHTTPClient(conf.Update),
			log,
			stats,
			conf.Update.GetEdition(),
			conf.Update.LicenseKey,
			conf.Update.GetEvery())
		if err != nil {
			log.mainLog.Fatal().Err(err).Msg("cannot create an updater")
		}

		updater.Start()
		defer updater.Shutdown()
	}

	watchReload(rootCtx, log, store)

	srv := server.New(server.Opts{
		Lookuper: geodb.NewCachingLookuper(store,
			conf.Cache.GetSize(),
			conf.Cache.GetTTL()),
		Store:          store,
		Stats:          stats,
		AuthUser:       conf.Auth.User,
		AuthPassword:   conf.Auth.Password,
		WorkerPoolSize: conf.GetWorkerPoolSize(),
	})
	defer srv.Shutdown()

	httpServer := &http.Server{
		Addr:    conf.GetListen(),
		Handler: srv,
	}

	go func() {
		<-rootCtx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(
			context.Background(), shutdownTimeout)
		defer shutdownCancel()

		httpServer.Shutdown(shutdownCtx) // nolint: errcheck
	}()

	log.mainLog.Info().Str("listen", conf.GetListen()).Msg("start to serve")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.mainLog.Fatal().Err(err).Msg("http server has failed")
	}
}
