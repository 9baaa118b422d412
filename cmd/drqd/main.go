// Command drqd runs the drq daemon with the default configuration lookup.
// It is equivalent to `drq daemon` for service managers that expect a
// dedicated binary.
package main

import (
	"context"
	"flag"
	"log"

	"drq/internal/config"
	"drq/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override logging.level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		log.Fatalf("drqd: %v", err)
	}
}
