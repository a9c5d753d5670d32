package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zachkp/portfolio/internal/analytics"
	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/content"
	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/session"
	"github.com/Zachkp/portfolio/internal/web"
)

const shutdownTimeout = 10 * time.Second

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "portfolio",
		Short:        "Personal portfolio website",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "portfolio.yaml", "path to the YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the portfolio site",
			RunE:  runServe,
		},
		newStatsCmd(),
		newCleanupCmd(),
		newCheckContentCmd(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	gin.SetMode(cfg.Mode)

	page, err := content.Load(cfg.ContentPath)
	if err != nil {
		return err
	}

	views := session.NewStore(cfg.ViewTTL, logger)
	views.SetReferenceLine(cfg.ReferenceLine)
	views.SetMaxViews(cfg.MaxViews)

	deps := web.Deps{Config: cfg, Views: views, Content: page, Logger: logger}
	var store *analytics.Store
	if cfg.Analytics.Enabled {
		store, err = analytics.Open(cfg.Analytics.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		tracker := analytics.NewTracker(store, logger)
		defer tracker.Wait()
		deps.Store, deps.Tracker = store, tracker
		logger.Info("visitor tracking enabled with hashed IP addresses", zap.String("db", cfg.Analytics.DBPath))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	var bg sync.WaitGroup
	// Runs before the deferred store.Close on every return path.
	defer func() {
		stop()
		bg.Wait()
	}()

	bg.Add(1)
	go func() {
		defer bg.Done()
		views.Run(ctx, cfg.SweepInterval)
	}()
	if store != nil {
		bg.Add(1)
		go func() {
			defer bg.Done()
			analytics.RunCleanup(ctx, store, cfg.Analytics.Retention, 24*time.Hour, logger)
		}()
	}

	srv, err := web.New(deps)
	if err != nil {
		return err
	}

	if cfg.DefaultAdminCredentials() {
		logger.Warn("using default admin credentials; set PORTFOLIO_ADMIN__USERNAME and PORTFOLIO_ADMIN__PASSWORD")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("mode", cfg.Mode))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
