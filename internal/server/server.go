// Package server exposes the retrospective service over HTTP and streams
// session changes to browsers as server-sent events.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/scrumkit/scrumkit/internal/events"
	"github.com/scrumkit/scrumkit/internal/retro"
)

const shutdownTimeout = 10 * time.Second

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	Service           *retro.Service
	Bus               *events.Bus
	Port              int
	HeartbeatInterval time.Duration
	StreamBuffer      int
	Logger            *slog.Logger
	Out               io.Writer
}

func (o *StartOpts) applyDefaults() {
	if o.Port <= 0 {
		o.Port = 8080
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.StreamBuffer <= 0 {
		o.StreamBuffer = 64
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

func (o StartOpts) validate() error {
	if o.Service == nil {
		return fmt.Errorf("server: service is required")
	}
	if o.Bus == nil {
		return fmt.Errorf("server: bus is required")
	}
	return nil
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully. Request contexts derive from ctx, so open event
// streams end when ctx does.
func Start(ctx context.Context, opts StartOpts) error {
	if err := opts.validate(); err != nil {
		return err
	}
	opts.applyDefaults()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           newRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			opts.Logger.Warn("http shutdown", "error", err)
		}
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Scrumkit listening on http://localhost:%d\n", opts.Port)
	}
	opts.Logger.Info("http server started", "port", opts.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func newRouter(opts StartOpts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(opts.Logger))

	h := &handlers{
		svc:       opts.Service,
		bus:       opts.Bus,
		heartbeat: opts.HeartbeatInterval,
		buffer:    opts.StreamBuffer,
		log:       opts.Logger,
	}
	registerRoutes(router, h)
	return router
}

// requestLogger logs one line per request once the handler has returned.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		)
	}
}
