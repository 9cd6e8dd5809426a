package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/example/workforce-scheduler/internal/audit"
	"github.com/example/workforce-scheduler/internal/logging"
	"github.com/example/workforce-scheduler/internal/metrics"
	"github.com/example/workforce-scheduler/internal/scheduler"
)

// auditInterval is how often the background audit refreshes the health
// gauge while serving.
const auditInterval = 15 * time.Minute

func newServeCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve engine metrics and keep auditing the current day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			registry := prometheus.NewRegistry()
			recorder := metrics.NewRecorder(registry)
			auditor := audit.New(cfg.Scheduling, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = logging.ContextWithLogger(ctx, logger)

			go auditLoop(ctx, auditor, recorder, store)

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()

			logger.Info("metrics server listening", "addr", server.Addr)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	return cmd
}

type snapshotLoader interface {
	LoadSnapshot(ctx context.Context, window scheduler.Window) (*scheduler.Snapshot, error)
}

// auditLoop refreshes the audit metrics for the current day until the
// context is cancelled.
func auditLoop(ctx context.Context, auditor *audit.Auditor, recorder *metrics.Recorder, source snapshotLoader) {
	logger := logging.FromContext(ctx)
	ticker := time.NewTicker(auditInterval)
	defer ticker.Stop()
	for {
		day := scheduler.DateOf(time.Now())
		snap, err := source.LoadSnapshot(ctx, scheduler.Window{From: day, To: day})
		if err != nil {
			logger.Error("audit snapshot load failed", "error", err)
		} else {
			recorder.AuditObserved(auditor.AuditDay(day, snap))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
