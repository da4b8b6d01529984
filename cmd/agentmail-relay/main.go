// agentmail-relay runs the relay service: a name registry and opaque
// per-recipient blob queues reachable over plain HTTP (spec §4.7, §6).
// Grounded on cmd/daemon/main.go's flag-parse-then-hand-to-service shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"agentmail-go/internal/clock"
	"agentmail-go/internal/logging"
	"agentmail-go/internal/relay"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	port := flag.Int("port", 8080, "listen port")
	flag.Parse()

	if *showVersion {
		fmt.Printf("agentmail-relay version=%s commit=%s\n", version, commit)
		return
	}

	logger := logging.New(os.Stderr, slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := relay.New(clock.System{},
		relay.WithRegisterer(prometheus.DefaultRegisterer),
		relay.WithDepositRateLimit(50, 100),
	)
	srv := relay.NewServer(store, fmt.Sprintf(":%d", *port), logger)

	logger.Info("agentmail-relay starting", "port", *port)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("agentmail-relay: %v", err)
	}
	logger.Info("agentmail-relay stopped")
}
