package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/trusthive/trusthive/api"
	"github.com/trusthive/trusthive/config"
	bboltstorage "github.com/trusthive/trusthive/storage/bbolt"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the TrustHive API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		repo, err := bboltstorage.NewRepositoryFromFile(cfg.DataDir+"/trusthive.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer repo.Close()

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		a := api.New(repo, cfg, api.WithLogger(logger))

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Handle("/metrics", api.MetricsHandler())

		r.Mount("/api", a.Router())

		// Stale tokens are also swept opportunistically on issuance;
		// the scheduled sweep catches shops that stop issuing.
		scheduler := cron.New()
		_, err = scheduler.AddFunc("@every 30m", func() {
			runSweep(a, logger)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule token sweep: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		// Sweep once immediately so tokens that went stale while the
		// server was down do not linger until the first cron fire.
		runSweep(a, logger)

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d (data: %s, env: %s)...\n", cfg.Port, cfg.DataDir, cfg.Environment)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// runSweep executes one full token sweep and logs the outcome. Used
// both at startup and on the cron schedule.
func runSweep(a *api.API, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	count, err := a.Sweeper().SweepAll(ctx)
	if err != nil {
		logger.Error("token sweep failed", "error", err)
		return
	}
	logger.Info("token sweep complete", "cleaned", count)
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
