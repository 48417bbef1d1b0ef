package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Go2NetModel/internal/config"
	"Go2NetModel/internal/logging"
	"Go2NetModel/internal/model"
	"Go2NetModel/internal/probe"

	log "github.com/sirupsen/logrus"
)

func main() {
	// --- Command-Line Flag Parsing ---
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to generate endpoint traffic, 'sub' to print published models.")
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	period := flag.Duration("period", 100*time.Millisecond, "Publish period per endpoint (pub mode)")
	jitter := flag.Duration("jitter", time.Millisecond, "Standard deviation of the publish jitter (pub mode)")
	size := flag.Int("size", 128, "Mean payload size in bytes (pub mode)")
	sizeStd := flag.Float64("size-std", 2, "Standard deviation of payload size (pub mode)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logging.Setup(cfg.Log); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	cfg.NATS.Name = "ns-probe"

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runGenerator(cfg, *period, *jitter, *size, *sizeStd)
	case "sub":
		runSubscriber(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runGenerator publishes periodic payloads on every configured endpoint subject.
func runGenerator(cfg *config.Config, period, jitter time.Duration, size int, sizeStd float64) {
	if len(cfg.Endpoints) == 0 {
		log.Fatalf("No endpoints configured, nothing to publish.")
	}
	log.Printf("Starting ns-probe in PUB mode: %d endpoints every %s", len(cfg.Endpoints), period)

	pub, err := probe.NewPublisher(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	for _, ep := range cfg.Endpoints {
		go generate(pub, ep.Subject, period, jitter, size, sizeStd, done)
	}

	<-sigChan
	close(done)
	log.Println("Shutdown signal received, cleaning up...")
}

func generate(pub *probe.Publisher, subject string, period, jitter time.Duration, size int, sizeStd float64, done <-chan struct{}) {
	next := time.Now()
	published := 0
	for {
		next = next.Add(period)
		wait := time.Until(next) + time.Duration(rand.NormFloat64()*float64(jitter))
		select {
		case <-done:
			return
		case <-time.After(wait):
		}

		n := int(float64(size) + rand.NormFloat64()*sizeStd)
		if n < 0 {
			n = 0
		}
		if err := pub.PublishRaw(subject, make([]byte, n)); err != nil {
			log.Printf("Failed to publish on %s: %v", subject, err)
			continue
		}
		published++
		if published%1000 == 0 {
			log.Printf("%d messages published on %s...", published, subject)
		}
	}
}

// runSubscriber prints every traffic model published by the estimator.
func runSubscriber(cfg *config.Config) {
	log.Println("Starting ns-probe in SUBSCRIBER mode...")

	sub, err := probe.NewSubscriber(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(s model.Snapshot) {
		log.WithField("topic", s.ID).Infof("Received model: a=%.6f b=%.6f sigma_t=%.6f s=%.2f sigma_s=%.2f",
			s.A, s.B, s.SigmaT, s.S, s.SigmaS)
	}
	if err := sub.WatchModels(cfg.NATS.ModelSubject, handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
