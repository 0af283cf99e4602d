package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aquasim/appdate-engine/api"
	"github.com/aquasim/appdate-engine/config"
	"github.com/aquasim/appdate-engine/store/sqlite"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	servePort int
	serveDB   string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the batch generation API",
	Long: `Starts an HTTP server exposing batch generation, retrieval and
QC over REST, persisting batches to SQLite.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP listen port")
	serveCmd.Flags().StringVar(&serveDB, "db", "appdate.db", "SQLite database path (:memory: for in-memory)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	setLogLevel(cfg.Logging)

	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	store, err := sqlite.New(serveDB)
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(store, eng.expander, eng.records, cfg.RunID, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", servePort),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
