// Command seed writes the seed catalogue into the configured store. Existing
// documents are only replaced with -force.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/facturier/facturier/internal/app"
	"github.com/facturier/facturier/internal/ledger"
	"github.com/facturier/facturier/internal/seed"
	"github.com/facturier/facturier/internal/storage"
)

func main() {
	force := flag.Bool("force", false, "overwrite existing ledger documents")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	data, err := seed.Load(cfg.SeedFile)
	if err != nil {
		log.Fatalf("load seed: %v", err)
	}
	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	keys := storage.NewKeys(cfg.StoreKeyPrefix)
	if !*force {
		for _, key := range keys.All() {
			_, err := store.Load(ctx, key)
			if err == nil {
				fmt.Fprintf(os.Stderr, "%s already exists, rerun with -force to overwrite\n", key)
				closeStore()
				os.Exit(1)
			}
			if !errors.Is(err, storage.ErrNotFound) {
				log.Fatalf("check %s: %v", key, err)
			}
		}
	}

	l, err := ledger.Open(ctx, store, data, ledger.WithKeys(keys))
	if err != nil {
		log.Fatalf("open ledger: %v", err)
	}
	fmt.Println("→ Writing seed catalogue...")
	if err := l.Reset(ctx, data); err != nil {
		log.Fatalf("reset ledger: %v", err)
	}

	fmt.Printf("✓ Seeded %d products and %d clients into %s at %s\n",
		len(data.Products), len(data.Clients), cfg.StoreDriver, time.Now().Format(time.RFC3339))
}
