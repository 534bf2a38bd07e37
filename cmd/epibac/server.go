package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nishad/epibac/internal/api"
	"github.com/nishad/epibac/internal/validator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the validation API server",
	Long: `Start an HTTP server exposing manifest validation and the validation
history.

Endpoints:
  POST   /api/v1/validate          validate a manifest on the server's filesystem
  GET    /api/v1/runs              list recorded runs
  GET    /api/v1/runs/{id}         a run and its findings
  GET    /api/v1/runs/{id}/report  the run's text report
  DELETE /api/v1/runs/{id}         delete a run
  GET    /api/v1/stats             history statistics
  GET    /api/v1/health            health check`,
	Example: `  epibac server
  epibac server --host 0.0.0.0 --port 3000
  epibac server --no-history`,
	RunE: runServer,
}

var (
	serverPort       int
	serverHost       string
	serverEnableCORS bool
	serverNoHistory  bool
)

func init() {
	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Port to listen on (default: from config)")
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Host to bind to (default: from config)")
	serverCmd.Flags().BoolVar(&serverEnableCORS, "enable-cors", true, "Enable CORS for web access")
	serverCmd.Flags().BoolVar(&serverNoHistory, "no-history", false, "Do not record or serve validation history")
}

func runServer(cmd *cobra.Command, args []string) error {
	host, port := cfg.Server.Host, cfg.Server.Port
	if cmd.Flags().Changed("host") || host == "" {
		host = serverHost
	}
	if cmd.Flags().Changed("port") || port == 0 {
		port = serverPort
	}

	serverCfg := &api.Config{
		Host:       host,
		Port:       port,
		EnableCORS: serverEnableCORS,
	}
	if cfg.Storage.HistoryEnabled && !serverNoHistory {
		serverCfg.HistoryPath = cfg.Storage.HistoryPath
	}

	v := validator.New(cfg, validator.Options{Logger: logger})
	server, err := api.NewServer(serverCfg, v, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if serverCfg.HistoryPath != "" {
			printInfo("History: %s", serverCfg.HistoryPath)
		} else {
			printInfo("History: disabled")
		}
		printSuccess("Server ready at http://%s", server.Addr())

		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		printInfo("\nShutting down server...")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
		server.Close()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	printSuccess("Server stopped gracefully")
	return nil
}
