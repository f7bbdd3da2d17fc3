// Package runtime wires configuration, stores and services into a running
// gateway process.
package runtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	app "github.com/R3E-Network/offline_gateway/internal/app"
	"github.com/R3E-Network/offline_gateway/internal/app/httpapi"
	"github.com/R3E-Network/offline_gateway/internal/app/storage/postgres"
	redisstore "github.com/R3E-Network/offline_gateway/internal/app/storage/redis"
	"github.com/R3E-Network/offline_gateway/internal/config"
	"github.com/R3E-Network/offline_gateway/internal/httputil"
	"github.com/R3E-Network/offline_gateway/internal/middleware"
	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server
// lifecycle.
type Application struct {
	cfg    *config.Config
	log    *logger.Logger
	app    *app.Application
	server *http.Server

	closers []io.Closer
}

// NewApplication constructs a gateway instance from configuration. A Redis
// address selects the durable cache store; a database DSN selects the
// durable mutation store; both default to in-memory.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig builds the gateway from an explicit config.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	log := logger.New(cfg.Logging)

	var closers []io.Closer
	stores := app.Stores{}

	if cfg.Redis.Addr != "" {
		rs, err := redisstore.New(redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, rs)
		stores.Cache = rs
		stores.Mutations = rs
	}
	if cfg.Database.DSN != "" {
		ps, err := postgres.Open(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			time.Duration(cfg.Database.ConnMaxLifetime)*time.Second,
		)
		if err != nil {
			closeAll(closers, log)
			return nil, fmt.Errorf("open database: %w", err)
		}
		closers = append(closers, ps)
		stores.Mutations = ps
	}

	upstream := httputil.NewClient(httputil.ClientConfig{
		BaseURL:    cfg.Upstream.BaseURL,
		Timeout:    cfg.Upstream.Timeout(),
		MaxRetries: cfg.Upstream.MaxRetries,
	})

	application, err := app.New(cfg, stores, upstream, log)
	if err != nil {
		closeAll(closers, log)
		return nil, fmt.Errorf("build application: %w", err)
	}

	handler := httpapi.NewHandler(application, log.WithField("component", "httpapi"))
	chained := middleware.NewCORSMiddleware([]string{"*"}).Handler(handler)
	chained = middleware.NewRateLimiter(100, 200, log.WithField("component", "ratelimit")).Handler(chained)
	chained = middleware.Metrics()(chained)
	chained = middleware.Tracing(log.WithField("component", "http"))(chained)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      chained,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	return &Application{
		cfg:     cfg,
		log:     log,
		app:     application,
		server:  server,
		closers: closers,
	}, nil
}

// App exposes the wired service aggregate.
func (a *Application) App() *app.Application { return a.app }

// Run installs the mediator, starts background services and serves HTTP
// until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("gateway listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown retires the mediator, stops background services and drains the
// HTTP server.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("http server shutdown failed")
	}
	err := a.app.Stop(shutdownCtx)
	closeAll(a.closers, a.log)
	return err
}

func closeAll(closers []io.Closer, log *logger.Logger) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("error closing store")
		}
	}
}
