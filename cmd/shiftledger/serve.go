package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httptransport "github.com/example/shift-ledger/internal/http"
)

func newServeCommand(rt *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the daily sync schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.load(); err != nil {
				return err
			}
			return serve(cmd.Context(), rt)
		},
	}
}

func serve(ctx context.Context, rt *commandEnv) error {
	logger := rt.logger
	a, err := newApp(ctx, rt.cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(logger)

	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	defer func() {
		select {
		case <-a.scheduler.Stop().Done():
		case <-time.After(30 * time.Second):
			logger.Warn("scheduled sync still running at shutdown")
		}
	}()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Sync:      httptransport.NewSyncHandler(a.scheduler, logger),
		Shifts:    httptransport.NewShiftHandler(a.shifts, logger),
		Reports:   httptransport.NewReportHandler(a.reports, logger),
		Employers: httptransport.NewEmployerHandler(a.employers, logger),
		Entries:   httptransport.NewEntryHandler(a.entries, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireToken(rt.cfg.APITokenHash, logger),
		},
	})
	if rt.cfg.APITokenHash == "" {
		logger.Warn("API token not configured, endpoints are unauthenticated")
	}

	server := &http.Server{
		Addr:              rt.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// POST /sync waits for the whole run.
		WriteTimeout: rt.cfg.SyncTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("shift ledger API listening", "addr", server.Addr, "sync_schedule", rt.cfg.SyncSchedule)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
