package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adperf/internal/api"
	"github.com/sells-group/adperf/internal/dataset"
	"github.com/sells-group/adperf/internal/monitoring"
)

var (
	servePort    int
	serveNoStore bool
	serveAlerts  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the KPI and analysis API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		cache := dataset.NewCache(loadDataset, time.Duration(cfg.Server.CacheTTLSecs)*time.Second)
		// A feed that cannot load fails startup.
		if _, err := cache.Dataset(ctx); err != nil {
			return err
		}

		opts := api.Options{
			Provider:       cache,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}

		if !serveNoStore {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			opts.Store = st
		}
				if n := initNarrator(); n != nil {
			opts.Narrator = n
		}

		if serveAlerts {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(cache),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.New(opts).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Bool("store", opts.Store != nil),
			zap.Bool("narrate", opts.Narrator != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "serve without run history")
	serveCmd.Flags().BoolVar(&serveAlerts, "alerts", false, "run the periodic baseline alert checker")
	rootCmd.AddCommand(serveCmd)
}
