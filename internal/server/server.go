// Package server exposes the optional admin HTTP API: health, readiness,
// metrics, the adopted route table and a reload trigger.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/danmuck/can2mqtt/internal/auth"
	"github.com/danmuck/can2mqtt/internal/bridge"
	"github.com/danmuck/can2mqtt/internal/observability"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 5 * time.Second
	reloadTimeout   = 2 * time.Second
)

// RouteSource reports the last adopted route generation.
type RouteSource interface {
	Snapshot() (bridge.Snapshot, bool)
}

// Trigger requests one reload; it blocks until the request is queued.
type Trigger func(ctx context.Context) error

// Options configures the admin API. A nil Guard leaves reload open.
type Options struct {
	Addr        string
	CorsOrigins []string
	Routes      RouteSource
	Reload      Trigger
	Guard       auth.Validator
}

type Admin struct {
	addr    string
	router  *gin.Engine
	routes  RouteSource
	reload  Trigger
	guard   auth.Validator
	started time.Time
	log     zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) *Admin {
	observability.RegisterMetrics()
	log := observability.Component(logger, "admin")
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.AdminObserver(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	a := &Admin{
		addr:    opts.Addr,
		router:  r,
		routes:  opts.Routes,
		reload:  opts.Reload,
		guard:   opts.Guard,
		started: time.Now(),
		log:     log,
	}
	a.registerRoutes()
	return a
}

func (a *Admin) HTTPRouter() *gin.Engine {
	return a.router
}

// Run serves until ctx ends, then shuts down gracefully.
func (a *Admin) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.addr).Msg("admin api listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
