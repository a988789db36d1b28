package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/primaryrutabaga/cs2-link/pkg/boot"
	"github.com/primaryrutabaga/cs2-link/pkg/dispatch"
	"github.com/primaryrutabaga/cs2-link/pkg/engine"
	"github.com/primaryrutabaga/cs2-link/pkg/eventbus"
	"github.com/primaryrutabaga/cs2-link/pkg/hub"
	"github.com/primaryrutabaga/cs2-link/pkg/rules"
	"github.com/primaryrutabaga/cs2-link/pkg/server"
)

var (
	version   = "dev"
	commitSHA = "unknown"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("[trigger] ")

	cfg := boot.LoadConfig("trigger")

	log.Printf("starting trigger service version=%s commit=%s", version, commitSHA)

	store, err := rules.Open(cfg.RulesPath)
	if err != nil {
		log.Fatalf("rules: %v", err)
	}
	log.Printf("loaded %d rules from %s", len(store.List()), cfg.RulesPath)

	tracker := engine.NewTracker()
	h := hub.New(cfg.PushInterval, tracker.Current)
	sink := dispatch.New(cfg.SinkURL)

	publisher, closeBus := connectBus(cfg)
	defer closeBus()

	processor := engine.NewProcessor(tracker, store, sink, h, publisher)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(processor, tracker, store, h, cfg.StaticDir).Router(),
	}

	go func() {
		log.Printf("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Printf("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// connectBus wires the NATS bridge when NATS_URL is set. The trigger
// service is fully functional without a bus; the bridge only mirrors
// fired events for external consumers.
func connectBus(cfg boot.Config) (engine.Publisher, func()) {
	if cfg.NATSUrl == "" {
		log.Printf("nats: NATS_URL not set, event bus disabled")
		return nil, func() {}
	}

	seed, err := boot.FetchNATSSeed(cfg.VaultAddr, cfg.VaultToken, cfg.VaultNKEYPath)
	if err != nil {
		log.Fatalf("vault: %v", err)
	}
	log.Printf("vault: fetched NATS seed from %s", cfg.VaultNKEYPath)

	tlsMat, err := boot.FetchNATSTLS(cfg.VaultAddr, cfg.VaultToken, cfg.VaultTLSPath)
	if err != nil {
		if cfg.NATSRequireMTLS {
			log.Fatalf("vault: %v", err)
		}
		log.Printf("vault: no TLS material at %s, connecting without mTLS", cfg.VaultTLSPath)
		tlsMat = nil
	}

	nc, err := boot.ConnectNATS(cfg, "cs2-link-trigger", seed, tlsMat)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	log.Printf("connected to NATS at %s", cfg.NATSUrl)
	return eventbus.New(nc), nc.Close
}
