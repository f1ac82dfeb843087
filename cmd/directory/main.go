package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AgentMesh-Net/directory-go/internal/api"
	"github.com/AgentMesh-Net/directory-go/internal/cache"
	"github.com/AgentMesh-Net/directory-go/internal/config"
	"github.com/AgentMesh-Net/directory-go/internal/metrics"
	"github.com/AgentMesh-Net/directory-go/internal/registry"
	"github.com/AgentMesh-Net/directory-go/internal/source"
	"github.com/AgentMesh-Net/directory-go/migrations"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sourceCfgs, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("sources config: %v", err)
	}

	sources, pools, err := buildSources(ctx, sourceCfgs)
	if err != nil {
		log.Fatalf("build sources: %v", err)
	}
	defer func() {
		for _, pool := range pools {
			pool.Close()
		}
	}()

	searchCache := cache.New[registry.SearchResult](cfg.CacheMaxSize, cfg.CacheTTL)
	countCache := cache.New[int](cfg.CacheMaxSize, cfg.CacheTTL)
	m := metrics.New(prometheus.DefaultRegisterer)

	svc := registry.NewService(sources, searchCache, countCache, cfg.PageBudget, m)
	router := api.NewRouter(svc, cfg)

	// Periodic cache sweep; lazy expiry already guarantees no stale
	// reads, this just frees capacity between them.
	go func() {
		ticker := time.NewTicker(cfg.CacheTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := svc.CleanupCaches(); removed > 0 {
					log.Printf("[cache] swept %d expired entries", removed)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		log.Printf("directory gateway listening on %s (%d sources)", cfg.HTTPAddr, len(sources))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
	log.Println("server stopped")
}

// buildSources constructs one Source per configured entry, returning
// any Postgres pools so main can close them on shutdown. Mirror
// migrations run once per distinct pool.
func buildSources(ctx context.Context, cfgs []config.SourceConfig) ([]registry.Source, []*pgxpool.Pool, error) {
	var sources []registry.Source
	var pools []*pgxpool.Pool

	for _, sc := range cfgs {
		switch sc.Kind {
		case "indexer":
			sources = append(sources, source.NewIndexerSource(sc.ChainID, sc.Name, sc.BaseURL))

		case "chain":
			src, err := source.NewChainSource(sc.ChainID, sc.Name, sc.RPCURL, sc.RegistryContract)
			if err != nil {
				return nil, pools, fmt.Errorf("chain source %s: %w", sc.Name, err)
			}
			sources = append(sources, src)

		case "postgres":
			pool, err := source.NewPool(ctx, sc.DSN)
			if err != nil {
				return nil, pools, fmt.Errorf("postgres source %s: %w", sc.Name, err)
			}
			pools = append(pools, pool)

			migrationSQL, err := migrations.FS.ReadFile("001_agents.sql")
			if err != nil {
				return nil, pools, fmt.Errorf("read migration: %w", err)
			}
			if err := source.RunMigration(ctx, pool, string(migrationSQL)); err != nil {
				return nil, pools, fmt.Errorf("postgres source %s: %w", sc.Name, err)
			}
			log.Printf("migration applied for source %s", sc.Name)

			sources = append(sources, source.NewPostgresSource(sc.ChainID, sc.Name, pool))

		default:
			return nil, pools, fmt.Errorf("unknown source kind %q", sc.Kind)
		}
		log.Printf("source configured: %s (chain=%d kind=%s)", sc.Name, sc.ChainID, sc.Kind)
	}
	return sources, pools, nil
}
