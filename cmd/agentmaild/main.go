// agentmaild runs a single node: identity, mailbox, discovery, router, and
// the inbound/outbound HTTP surface (spec §4.6, §6). Grounded on
// cmd/daemon/main.go's flag-parse-then-hand-to-service shape.
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

	agentcrypto "agentmail-go/internal/crypto"
	"agentmail-go/internal/clock"
	"agentmail-go/internal/config"
	"agentmail-go/internal/discovery"
	"agentmail-go/internal/logging"
	"agentmail-go/internal/mailbox"
	"agentmail-go/internal/node"
	"agentmail-go/internal/router"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	name := flag.String("name", "", "this node's advertised name (required)")
	port := flag.Int("port", 0, "listen port (overrides config)")
	relayURL := flag.String("relay", "", "relay base URL, e.g. http://relay.local:8080 (overrides config)")
	dataDir := flag.String("data-dir", "", "directory for keys and the mailbox store (overrides config)")
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("agentmaild version=%s commit=%s\n", version, commit)
		return
	}

	cfg := config.LoadFromPath(*configPath)
	if *name != "" {
		cfg.Name = *name
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *relayURL != "" {
		cfg.RelayURL = *relayURL
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if cfg.Name == "" {
		log.Fatal("agentmaild: --name is required")
	}

	logger := logging.New(os.Stderr, slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	identity, err := agentcrypto.LoadOrCreateIdentity(cfg.DataDir)
	if err != nil {
		log.Fatalf("agentmaild: identity: %v", err)
	}

	sysClock := clock.System{}
	store, err := mailbox.New(cfg.DataDir, sysClock)
	if err != nil {
		log.Fatalf("agentmaild: mailbox: %v", err)
	}

	routerCfg := router.Config{
		RelayURL:       cfg.RelayURL,
		DirectTimeout:  cfg.DirectTimeout,
		RelayTimeout:   cfg.RelayTimeout,
		BackoffBase:    cfg.BackoffBase,
		BackoffCap:     cfg.BackoffCap,
		AttemptCeiling: cfg.AttemptCeiling,
		DrainTick:      cfg.DrainTick,
		DrainBatch:     cfg.DrainBatch,
	}
	r := router.New(identity, store, sysClock, routerCfg, logger, router.WithRegisterer(prometheus.DefaultRegisterer))

	addr := fmt.Sprintf(":%d", cfg.Port)
	nodeCfg := node.Config{
		Name:          cfg.Name,
		Addr:          addr,
		RelayURL:      cfg.RelayURL,
		RegisterEvery: cfg.RegisterEvery,
		PickupEvery:   cfg.PickupEvery,
		RelayTimeout:  cfg.RelayTimeout,
	}
	n := node.New(identity, store, r, sysClock, nodeCfg, logger,
		node.WithRegisterer(prometheus.DefaultRegisterer),
		node.WithReceiveRateLimit(20, 40),
	)

	fp := agentcrypto.Fingerprint(identity.SignPub)
	disc := discovery.New(discovery.Self{
		FP:      fp,
		Name:    cfg.Name,
		SignPub: agentcrypto.B64Encode(identity.SignPub),
		EncPub:  agentcrypto.B64Encode(identity.EncPub[:]),
		Port:    cfg.Port,
	}, store, logger, discovery.WithQueryWait(cfg.MDNSResolve))
	if err := disc.Start(); err != nil {
		log.Fatalf("agentmaild: discovery: %v", err)
	}
	defer disc.Stop()

	logger.Info("agentmaild starting", "name", cfg.Name, "fp", fp, "port", cfg.Port)
	if err := n.Run(ctx); err != nil {
		log.Fatalf("agentmaild: %v", err)
	}
	logger.Info("agentmaild stopped")
}
