package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/livingpark/ppmi/internal/domain/cohort"
	"github.com/livingpark/ppmi/internal/domain/imaging"
	"github.com/livingpark/ppmi/internal/domain/protocol"
	"github.com/livingpark/ppmi/internal/domain/study"
	"github.com/livingpark/ppmi/internal/platform/db"
	"github.com/livingpark/ppmi/internal/platform/middleware"
)

const (
	requestTimeout  = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if v, _ := cmd.Flags().GetString("port"); v != "" {
				a.cfg.Port = v
			}
			return runServer(cmd.Context(), a)
		},
	}
	cmd.Flags().String("port", "", "Listen port (overrides PORT)")
	return cmd
}

func newServer(ctx context.Context, a *app) (*echo.Echo, error) {
	svc, err := a.studyService(ctx)
	if err != nil {
		return nil, err
	}
	cohortHandler, err := cohort.NewHandler(cohort.Mode(a.cfg.CohortIDMode))
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.RequestTimeout(requestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if a.pool != nil {
		e.GET("/health/db", db.PoolHealthHandler(a.pool))
	}

	api := e.Group("/api/v1")
	cohortHandler.RegisterRoutes(api)
	protocol.RegisterRoutes(api)
	study.NewHandler(svc).RegisterRoutes(api)
	imaging.NewHandler(a.resolver()).RegisterRoutes(api)

	return e, nil
}

func runServer(ctx context.Context, a *app) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := newServer(ctx, a)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.Port
		a.logger.Info().Str("addr", addr).Str("study_dir", a.cfg.StudyDir).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	}

	a.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.logger.Info().Msg("server stopped")
	return nil
}
