package main

import (
	"context"
	"log"

	"veritas/internal/config"
	"veritas/internal/infra/db"
	httpinfra "veritas/internal/infra/http"
	"veritas/internal/infra/truststore"
)

func main() {
	cfg := config.FromEnv()

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	trust := truststore.NewStore()
	if cfg.TrustSeedPath != "" {
		snap, err := trust.SeedFromFile(cfg.TrustSeedPath)
		if err != nil {
			log.Fatalf("failed to seed trust store from %s: %v", cfg.TrustSeedPath, err)
		}
		log.Printf("seeded trust store v%d with %d roots", snap.Version, len(snap.Roots))
	}

	var refresher *truststore.Refresher
	if cfg.TrustFeedURL != "" {
		feed := truststore.NewFeed(cfg.TrustFeedURL, nil)
		refresher = truststore.NewRefresher(trust, feed, cfg.TrustRefreshInterval())
		if err := refresher.Refresh(context.Background()); err != nil {
			if trust.Current().Version == 0 {
				log.Fatalf("initial trust feed fetch failed with no seed available: %v", err)
			}
			log.Printf("initial trust feed fetch failed, serving seeded snapshot: %v", err)
		}
		go refresher.Run(context.Background())
	}
	if trust.Current().Version == 0 {
		log.Printf("no trust roots loaded; attestation chains will be rejected as untrusted")
	}

	var refresh httpinfra.TrustRefresher
	if refresher != nil {
		refresh = refresher
	}
	srv := httpinfra.NewServer(cfg, store, trust, refresh)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
