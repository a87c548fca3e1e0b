package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/snooow1029/paper-master/internal/analysis"
	"github.com/snooow1029/paper-master/internal/config"
	"github.com/snooow1029/paper-master/internal/extract"
	"github.com/snooow1029/paper-master/internal/jobs"
	"github.com/snooow1029/paper-master/internal/label"
	"github.com/snooow1029/paper-master/internal/metrics"
	"github.com/snooow1029/paper-master/internal/resolve"
	"github.com/snooow1029/paper-master/internal/s2"
	"github.com/snooow1029/paper-master/internal/server"
	"github.com/snooow1029/paper-master/internal/storage"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the citation-analysis job server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if cfg.Services.ExtractURL == "" {
		return fmt.Errorf("services.extract_url is required (or set EXTRACT_SERVICE_URL)")
	}

	lookupOpts := []s2.ClientOption{}
	if cfg.Lookup.APIKey != "" {
		lookupOpts = append(lookupOpts, s2.WithAPIKey(cfg.Lookup.APIKey))
	}
	if cfg.Lookup.MinInterval > 0 {
		lookupOpts = append(lookupOpts, s2.WithMinInterval(cfg.Lookup.MinInterval))
	}
	if cfg.Lookup.Timeout > 0 {
		lookupOpts = append(lookupOpts, s2.WithTimeout(cfg.Lookup.Timeout))
	}
	lookup := s2.NewClient(lookupOpts...)

	var cache resolve.Cache
	if cfg.Cache.Path != "" {
		c, err := storage.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("opening lookup cache: %w", err)
		}
		defer c.Close()
		cache = c
	}

	var labeler analysis.Labeler
	if cfg.Services.LabelURL != "" {
		labeler = label.NewClient(cfg.Services.LabelURL)
	}

	handler := analysis.NewHandler(
		extract.NewClient(cfg.Services.ExtractURL),
		labeler,
		resolve.New(lookup, cache),
		lookup,
	)

	m := metrics.New()
	scheduler := jobs.NewScheduler(
		jobs.WithMaxConcurrent(cfg.Jobs.MaxConcurrent),
		jobs.WithRetention(cfg.Jobs.Retention),
		jobs.WithSweepInterval(cfg.Jobs.SweepInterval),
		jobs.WithObserver(m),
	)
	handler.Register(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(scheduler, server.WithMetricsHandler(m.Handler()))
	defer srv.Close()

	router := mux.NewRouter()
	srv.RegisterRoutes(router)

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[serve] listening on %s", cfg.Server.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		log.Printf("[serve] received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
	}
	return nil
}
