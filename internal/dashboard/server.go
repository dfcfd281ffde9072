// Package dashboard serves a read-only HTTP API over the room logs and the
// user/room directory.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/signalbox/internal/directory"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Dir   string           // chat log directory
	Store *directory.Store // optional; adds room metadata and sync status
	Port  int
	Out   io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Dir == "" {
		return fmt.Errorf("dashboard: log directory is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(opts.Dir, opts.Store)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func newRouter(dir string, store *directory.Store) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, &handlers{dir: dir, store: store, poll: 2 * time.Second})
	return router
}
