package main

import (
	"flag"
	"fmt"
	"os"

	"Go2NetModel/internal/clock"
	"Go2NetModel/internal/collector"
	"Go2NetModel/internal/config"
	"Go2NetModel/internal/logging"
	"Go2NetModel/internal/manager"
	"Go2NetModel/internal/model"
	"Go2NetModel/internal/sink"
	"Go2NetModel/internal/snapshot"
	"Go2NetModel/pkg/pcap"

	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "Optional configuration file for estimator and snapshot settings")
	quiet := flag.Bool("quiet", false, "Only print the final models")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pcap-analyzer [-config file] [-quiet] <path_to_pcap_file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// 1. Get pcap file path from command-line arguments
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	pcapFilePath := flag.Arg(0)

	// 2. Load configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if err := logging.Setup(cfg.Log); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	// 3. Initialize modules. Each destination endpoint gets its own collector,
	// timed by the capture rather than the wall clock.
	replay := clock.NewReplay()
	var out model.Sink
	if *quiet {
		logging.Discard()
	} else {
		out = sink.NewLog("pcap-analyzer")
	}
	opts := []manager.Option{
		manager.WithLazyEndpoints(),
		manager.WithCollectorOptions(collector.WithClock(replay)),
	}
	if cfg.Snapshot.Enabled {
		w, err := snapshot.NewWriter(cfg.Snapshot)
		if err != nil {
			log.Fatalf("Failed to create snapshot writer: %v", err)
		}
		opts = append(opts, manager.WithWriter(w))
	}
	mgr, err := manager.NewManager(manager.CollectorConfig(cfg.Estimator), out, opts...)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	reader, err := pcap.NewReader(pcapFilePath)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer reader.Close()
	log.Printf("Reading packets from '%s'...", pcapFilePath)

	// 4. Replay
	stats, err := reader.ReadArrivals(func(a pcap.Arrival) {
		replay.Set(a.Timestamp)
		if err := mgr.HandleMessage(a.Topic, uint(a.Size)); err != nil {
			log.Debugf("Dropped arrival on %s: %v", a.Topic, err)
		}
	})
	if err != nil {
		log.Errorf("Replay stopped early: %v", err)
	}
	log.Printf("Finished reading %d packets (%d skipped) across %d endpoints.", stats.Packets, stats.Skipped, len(mgr.Topics()))

	// 5. Report and shut down; Stop writes the final snapshot.
	for _, topic := range mgr.Topics() {
		st, _ := mgr.Status(topic)
		if st.Model == nil {
			fmt.Printf("%-28s %-4s messages=%d\n", topic, st.State, st.Messages)
			continue
		}
		m := st.Model
		fmt.Printf("%-28s %-4s messages=%d period=%.6fs offset=%.6fs sigma_t=%.6fs size=%.1fB sigma_s=%.1fB\n",
			topic, st.State, st.Messages, m.A, m.B, m.SigmaT, m.S, m.SigmaS)
	}
	if err := mgr.Stop(); err != nil {
		log.Errorf("Error stopping manager: %v", err)
	}
}
