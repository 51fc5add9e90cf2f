package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/cmd/cmdutil"
	"github.com/palisadehq/palisade/internal/server"
	"github.com/palisadehq/palisade/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Palisade server",
	Long:  `Starts the HTTP server exposing the login, identity and access-management endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Telemetry first: everything below emits spans and metrics.
		// Init is a noop (and shutdown trivial) when no OTLP endpoint is
		// configured.
		otelShutdown, err := telemetry.Init(cmd.Context(), cfg.Observability)
		if err != nil {
			return fmt.Errorf("initialize telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(ctx); err != nil {
				log.Printf("WARNING: telemetry shutdown: %v", err)
			}
		}()

		bundle, err := cmdutil.NewServiceBundle(cfg)
		if err != nil {
			return err
		}
		defer bundle.Close()

		log.Printf("Connected to database")
		caps := bundle.Service.Capabilities()
		log.Printf("Login paths: managed=%t directory=%t oidc=%t", caps.Managed, caps.Directory, caps.OIDC)

		serverMetrics, err := telemetry.NewServerMetrics()
		if err != nil {
			log.Printf("WARNING: request metrics disabled: %v", err)
		}

		router := server.NewRouter(server.RouterOptions{
			Service: bundle.Service,
			Metrics: serverMetrics,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			serverErrors <- srv.ListenAndServe()
		}()

		// Wait for interrupt signal
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
