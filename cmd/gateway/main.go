package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"osraclinic.com/workbench/internal/clinicapi"
	"osraclinic.com/workbench/internal/config"
	"osraclinic.com/workbench/internal/docproc"
	"osraclinic.com/workbench/internal/gateway"
	"osraclinic.com/workbench/internal/metrics"
	"osraclinic.com/workbench/internal/ontology"
	"osraclinic.com/workbench/internal/session"
	"osraclinic.com/workbench/pkg/zerolog_config"
)

func main() {
	// Load .env file from parent directory
	err := godotenv.Load("../.env")
	if err != nil {
		log.Info().Msg("Not found .env file in parent directory, trying current directory")
		err = godotenv.Load(".env")
		if err != nil {
			log.Info().Msg("Not found .env file in current directory, assuming environment variables are set")
		}
	}

	cfg := config.Load()

	// Set app prefix
	zerolog_config.SetAppPrefix("workbench-gateway")

	// Initialize zerolog with Elasticsearch
	zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, "logs", cfg.LogLevel)

	log.Info().Msg("Starting osra-workbench gateway")

	// Start system metrics collection
	metrics.StartSystemMetrics(30 * time.Second)

	// Upstream clients
	clinic := clinicapi.NewClient(cfg.ClinicAPIURL, cfg.ClinicTimeout)
	processor := docproc.NewClient(cfg.ProcessAPIURL, cfg.ClinicTimeout)
	diseases := ontology.NewClient(cfg.ProcessAPIURL, cfg.ClinicTimeout)

	// Session store, persisted to Couchbase when configured
	var persister session.Persister
	var couchbaseCloser *session.CouchbasePersister
	if cfg.CouchbaseURL != "" {
		cb, err := session.NewCouchbasePersister(cfg.CouchbaseURL, cfg.CouchbaseUsername, cfg.CouchbasePassword, cfg.CouchbaseBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Couchbase")
		}
		persister = cb
		couchbaseCloser = cb
		log.Info().Str("bucket", cfg.CouchbaseBucket).Msg("Session persistence enabled")
	}
	sessions := session.NewStore(persister)

	gw := gateway.New(clinic, diseases, sessions, clinic, clinic, processor, cfg.TokenSecret, cfg.TokenTTL)

	// Create HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.GatewayPort,
		Handler: gw.Routes(),
	}

	// Listen for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Info().
			Str("port", cfg.GatewayPort).
			Str("clinic_api", cfg.ClinicAPIURL).
			Msg("Server starting")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().
				Err(err).
				Msg("Failed to start server")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Shutdown server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	if couchbaseCloser != nil {
		log.Info().Msg("Closing Couchbase connection...")
		if err := couchbaseCloser.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Couchbase connection")
		}
	}

	log.Info().Msg("Gateway shutdown complete")
}
