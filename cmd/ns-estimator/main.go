package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Go2NetModel/internal/alerter"
	"Go2NetModel/internal/api"
	"Go2NetModel/internal/collector"
	"Go2NetModel/internal/config"
	"Go2NetModel/internal/logging"
	"Go2NetModel/internal/manager"
	"Go2NetModel/internal/metrics"
	"Go2NetModel/internal/model"
	"Go2NetModel/internal/notification"
	"Go2NetModel/internal/probe"
	"Go2NetModel/internal/query"
	"Go2NetModel/internal/sink"
	"Go2NetModel/internal/snapshot"
	"Go2NetModel/internal/writer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML or TOML configuration file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logging.Setup(cfg.Log); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	log.Println("Starting ns-estimator...")

	// 2. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	// 3. Sinks: NATS model subject, optional ClickHouse history
	publisher, err := probe.NewPublisher(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	sinks := []model.Sink{publisher}

	var querier query.Querier
	if cfg.ClickHouse.Enabled {
		chWriter, err := writer.NewClickHouseWriter(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create ClickHouse writer: %v", err)
		}
		sinks = append(sinks, chWriter)

		querier, err = query.NewClickHouseQuerier(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create querier: %v", err)
		}
	}

	// 4. Manager and endpoints
	opts := []manager.Option{
		manager.WithCollectorOptions(collector.WithMetrics(recorder)),
	}
	if cfg.Snapshot.Enabled {
		snapWriter, err := snapshot.NewWriter(cfg.Snapshot)
		if err != nil {
			log.Fatalf("Failed to create snapshot writer: %v", err)
		}
		opts = append(opts, manager.WithWriter(snapWriter))
	}
	mgr, err := manager.NewManager(manager.CollectorConfig(cfg.Estimator), sink.NewFanout(sinks...), opts...)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	for _, ep := range cfg.Endpoints {
		if err := mgr.AddEndpoint(ep.Topic); err != nil {
			log.Fatalf("Failed to add endpoint %s: %v", ep.Topic, err)
		}
	}
	mgr.Start()

	var alerts *alerter.Alerter
	if cfg.Alerter.Enabled {
		alerts, err = alerter.NewAlerter(cfg.Alerter, mgr, notification.New(cfg.SMTP), nil)
		if err != nil {
			log.Fatalf("Failed to create alerter: %v", err)
		}
		alerts.Start()
	}

	sub, err := probe.NewSubscriber(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	for _, ep := range cfg.Endpoints {
		if err := sub.Watch(ep.Subject, mgr.Handler(ep.Topic)); err != nil {
			log.Fatalf("Failed to subscribe to %s: %v", ep.Subject, err)
		}
	}
	log.Printf("Estimating %d endpoints, publishing models on '%s'", len(cfg.Endpoints), publisher.Subject())

	// 5. API
	server := api.NewServer(cfg.API, api.NewRouter(mgr, querier, reg))
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	// 6. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, stopping estimator...")

	// Stop arrivals first so no handler races the collectors' teardown.
	if err := sub.Close(); err != nil {
		log.Printf("Error closing subscriber: %v", err)
	}
	if alerts != nil {
		alerts.Stop()
	}
	if err := mgr.Stop(); err != nil {
		log.Printf("Error stopping manager: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}
	if querier != nil {
		querier.Close()
	}
	log.Println("Shutdown complete.")
}
