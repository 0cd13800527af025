package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/panjf2000/ants/v2"

	"github.com/9seconds/geoipd/geodb"
)

const (
	// DefaultWorkerPoolSize is a size of the worker pool which serves
	// batch lookups.
	DefaultWorkerPoolSize = 4096

	workerPoolExpireTime = time.Minute

	requestTimeout = 60 * time.Second
)

// Opts is a set of dependencies and settings for the server. Lookuper,
// Store and Stats are mandatory; empty AuthUser disables basic auth.
type Opts struct {
	Lookuper       geodb.Lookuper
	Store          *geodb.Store
	Stats          *geodb.UsageStats
	AuthUser       string
	AuthPassword   string
	WorkerPoolSize int
}

func (o Opts) workerPoolSize() int {
	if o.WorkerPoolSize < 1 {
		return DefaultWorkerPoolSize
	}

	return o.WorkerPoolSize
}

type Server struct {
	router     chi.Router
	workerPool *ants.PoolWithFunc
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.router.ServeHTTP(w, req)
}

func (s *Server) Shutdown() {
	s.workerPool.Release()
}

func New(opts Opts) *Server {
	h := &handlers{
		lookuper: opts.Lookuper,
		store:    opts.Store,
		stats:    opts.Stats,
	}
	h.workerPool, _ = ants.NewPoolWithFunc(opts.workerPoolSize(), h.batchLookupIP,
		ants.WithExpiryDuration(workerPoolExpireTime))

	router := chi.NewRouter()

	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(requestTimeout))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RealIP)
	router.Use(middleware.SetHeader("Content-Type", "application/json"))

	router.Route("/geoip/v2.1", func(router chi.Router) {
		if opts.AuthUser != "" {
			router.Use(basicAuth(opts.AuthUser, opts.AuthPassword))
		}

		router.Get("/city/{ip}", h.handleCity)
		router.Get("/country/{ip}", h.handleCountry)
		router.Post("/city", h.handleBatch)
	})

	router.Get("/info", h.handleInfo)
	router.Get("/status", h.handleStatus)

	return &Server{
		router:     router,
		workerPool: h.workerPool,
	}
}
