package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/airtrace-systems/airtrace-telemetry/internal/auth"
	"github.com/airtrace-systems/airtrace-telemetry/internal/buffer"
	"github.com/airtrace-systems/airtrace-telemetry/internal/bus"
	"github.com/airtrace-systems/airtrace-telemetry/internal/config"
	"github.com/airtrace-systems/airtrace-telemetry/internal/dedup"
	"github.com/airtrace-systems/airtrace-telemetry/internal/gis"
	"github.com/airtrace-systems/airtrace-telemetry/internal/handlers"
	"github.com/airtrace-systems/airtrace-telemetry/internal/logging"
	"github.com/airtrace-systems/airtrace-telemetry/internal/models"
	"github.com/airtrace-systems/airtrace-telemetry/internal/server"
	"github.com/airtrace-systems/airtrace-telemetry/internal/service"
	"github.com/airtrace-systems/airtrace-telemetry/internal/storageclient"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("telemetry"))
	logging.SetDefault(logger)

	slog.Info("Starting telemetry service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}
	slog.Info("Service URLs configured",
		slog.String("storage_url", cfg.Storage.URL),
		slog.String("gis_url", cfg.GIS.URL),
		slog.String("bus_url", cfg.Bus.URL),
	)

	// Initialize the dedup cache; the service cannot run without it.
	cache, err := dedup.NewRedisCache(cfg.Redis.URL, cfg.Redis.PoolSize, cfg.Redis.PoolTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()

	// Sinks with no configured URL stay nil; protocols routed to them are
	// refused with 503 at ingestion time.
	var publisher bus.Publisher
	if cfg.Bus.URL != "" {
		publisher, err = bus.NewNATSPublisher(bus.Config{
			URL:           cfg.Bus.URL,
			Name:          cfg.Bus.Name,
			MaxReconnects: cfg.Bus.MaxReconnects,
			ReconnectWait: cfg.Bus.ReconnectWait,
			Timeout:       cfg.Bus.Timeout,
		}, logger.Logger)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
	} else {
		slog.Warn("Bus target not configured; publish fanout disabled")
	}

	var storageClient *storageclient.Client
	if cfg.Storage.URL != "" {
		storageClient = storageclient.New(cfg.Storage.URL, cfg.Storage.Timeout)
	} else {
		slog.Warn("Storage target not configured; storage fanout disabled")
	}

	var gisPusher *gis.Pusher
	pusherCtx, pusherCancel := context.WithCancel(context.Background())
	pusherDone := make(chan struct{})
	if cfg.GIS.URL != "" {
		gisPusher = gis.NewPusher(
			gis.NewClient(cfg.GIS.URL, cfg.GIS.Timeout),
			cfg.GIS.RingCapacity,
			cfg.GIS.MaxBatch,
			cfg.GIS.PushCadence,
			logger.Logger,
		)
		// The GIS pusher flushes on its own cadence until shutdown.
		go func() {
			gisPusher.Run(pusherCtx)
			close(pusherDone)
		}()
	} else {
		slog.Warn("GIS target not configured; map fanout disabled")
		close(pusherDone)
	}

	// Per-protocol fanout routing from config.
	targets := make(map[models.Protocol][]service.Sink, 3)
	for protocol, names := range map[models.Protocol][]string{
		models.ProtocolADSB:        cfg.Fanout.ADSB,
		models.ProtocolMAVLinkADSB: cfg.Fanout.MAVLinkADSB,
		models.ProtocolRemoteID:    cfg.Fanout.RemoteID,
	} {
		sinks, err := service.ParseSinks(names)
		if err != nil {
			log.Fatalf("Invalid fanout configuration for %s: %v", protocol, err)
		}
		targets[protocol] = sinks
	}

	// Initialize the ingestion pipeline
	ingestService := service.NewIngestService(cache, storageClient, gisPusher, publisher,
		targets, service.TTLs{
			ADSB:        cfg.Dedup.ADSBTTL,
			MAVLinkADSB: cfg.Dedup.MAVLinkADSBTTL,
			RemoteID:    cfg.Dedup.RemoteIDTTL,
			CPRPair:     cfg.Dedup.CPRPairTTL,
		}, logger)

	// Initialize HTTP handlers
	issuer := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	gate := buffer.NewGate(cfg.Ingress.MaxInFlight)
	handler := handlers.NewTelemetryHandler(ingestService, issuer, gate, cache, logger)
	router := server.NewRouter(handler, issuer)

	// Create server with config values
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Telemetry service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Stop the pusher after the listener so queued batches drain last.
	pusherCancel()
	<-pusherDone

	log.Println("Server stopped")
}
