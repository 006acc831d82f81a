package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"pocketbook-server/src/api"
	"pocketbook-server/src/config"
	"pocketbook-server/src/db"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("DB connection failed: %v", err)
	}
	defer store.Close()

	cache, err := db.NewUserCache(cfg.UserCacheTTL)
	if err != nil {
		log.Fatalf("Cache initialization failed: %v", err)
	}
	defer cache.Close()

	if !cfg.AuthRequired {
		log.Println("WARNING: authentication is disabled, every transaction is visible to every caller")
	}
	if cfg.DemoMode {
		log.Println("INFO: demo mode enabled, only GET requests are allowed")
	}

	router := api.NewRouter(store, cache, cfg)

	log.Println("API server running on port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
