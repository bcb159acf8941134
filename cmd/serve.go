package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/earshot/internal/server"
	"github.com/desertthunder/earshot/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve exposes discovery and saved runs over HTTP until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify client not configured", shared.ErrServiceUnavailable)
	}

	host := cmd.String("host")
	if host == "" {
		host = r.config.Server.Host
	}
	port := cmd.Int("port")
	if port == 0 {
		port = r.config.Server.Port
	}

	desired := r.config.Discovery.Desired
	if desired <= 0 {
		desired = defaultDesired
	}

	repo, db, err := r.openRepo()
	if err != nil {
		return err
	}
	defer db.Close()

	token := server.TokenFunc(func(ctx context.Context) (string, error) {
		return r.ensureToken(ctx)
	})

	httpLogger := shared.WithLogger(r.logger, "component", "http")

	router := server.NewBasicRouter()
	router.Use(server.RecoveryMiddleware(httpLogger), server.LoggingMiddleware(httpLogger))
	router.Handler(&server.HealthHandler{})
	router.Handler(server.NewDiscoverHandler(r.engine, r.spotify, token, desired, httpLogger))
	router.Handler(server.NewRunsHandler(repo, httpLogger))

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serveCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("serving discovery API", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-serveCtx.Done():
	}

	r.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	return nil
}
