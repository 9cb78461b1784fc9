package main

import (
	"flag"
	"log"
	"os"

	"ForecastPull/internal/di"
	"ForecastPull/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s authority=%s", cfg.Environment, cfg.Backend.Type, cfg.Authority.BaseURL)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if cfg.Backend.Type == "kafka" {
		log.Printf("kafka: connected brokers=%v topic=%s", cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	if cfg.ClickHouse.Enabled {
		log.Printf("clickhouse: connected and schema ready - db: %s", cfg.ClickHouse.Database)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
