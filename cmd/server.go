package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flume-exporter/internal/collector"
	"flume-exporter/internal/config"
	"flume-exporter/internal/flume"
	"flume-exporter/internal/logger"
	"flume-exporter/internal/metrics"
	"flume-exporter/internal/routes"
	"flume-exporter/internal/sink"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogFile)

	// Initialize token manager, API client, and metrics registry
	registry := metrics.NewRegistry()
	tokens := flume.NewTokenManager(cfg.Credentials, cfg.BaseURL, cfg.Timeout)
	client := flume.NewClient(tokens, cfg.BaseURL, cfg.Timeout, registry)

	// Optional InfluxDB mirror of the readings
	var snk sink.Sink
	if cfg.InfluxEnabled() {
		influx := sink.NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		defer influx.Close()
		snk = influx
		logger.Infof("InfluxDB sink enabled, writing to bucket %q", cfg.InfluxBucket)
	}

	// Start the collection loop
	coll := collector.New(client, registry, snk, cfg.Interval)
	stop := coll.Start()
	defer stop()

	// Set up routes
	r := mux.NewRouter()
	routes.RegisterRoutes(r, registry)

	// CORS setup
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Infof("Exporter listening on %s, collection interval %s", srv.Addr, cfg.Interval)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
}
