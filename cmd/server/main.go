// Package main runs the token ledger service: an HTTP API for minting
// tokens onto a hash-linked chain, reading the chain, and querying the
// deterministic oracle, with Postgres as the durable block archive and
// ClickHouse for mint analytics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quantum-nft-ledger/internal/ledger"
	"quantum-nft-ledger/internal/mint"
	"quantum-nft-ledger/internal/oracle"
	"quantum-nft-ledger/internal/registry"
	"quantum-nft-ledger/internal/server"
	"quantum-nft-ledger/internal/storage"
	chstore "quantum-nft-ledger/internal/storage/clickhouse"
	"quantum-nft-ledger/internal/storage/memory"
	"quantum-nft-ledger/internal/storage/migrations"
	pgstore "quantum-nft-ledger/internal/storage/postgres"
	"quantum-nft-ledger/internal/stream"
)

// allStores holds the storage implementations behind the minting path.
type allStores struct {
	archive storage.BlockArchive
	events  storage.MintEventStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	chain := ledger.New()
	reg := registry.New()
	if err := restoreFromArchive(ctx, chain, reg, stores.archive, logger); err != nil {
		logger.Fatalf("Failed to restore chain from archive: %v", err)
	}

	hub := stream.NewHub(nil, log.New(os.Stdout, "[stream] ", log.LstdFlags|log.Lshortfile))
	defer hub.Close()

	minter := mint.New(mint.Options{
		Chain:       chain,
		Registry:    reg,
		Archive:     stores.archive,
		Events:      stores.events,
		Broadcaster: &server.BlockBroadcaster{Hub: hub},
		Logger:      log.New(os.Stdout, "[mint] ", log.LstdFlags|log.Lshortfile),
	})

	srv := server.New(server.Options{
		Minter:   minter,
		Chain:    chain,
		Registry: reg,
		Oracle:   oracle.New(),
		Hub:      hub,
		Logger:   logger,
	})

	httpServer := &http.Server{
		Addr:         *listenAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Graceful shutdown failed: %v", err)
		}
		cancel()

		// Second signal forces immediate exit
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	logger.Printf("Starting HTTP server on %s (chain height %d, %d minted tokens)",
		*listenAddr, chain.Length(), reg.Size())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the block archive and mint event store. ClickHouse is
// optional: without a DSN, mint analytics stay in memory.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			archive: memory.NewBlockArchive(),
			events:  memory.NewMintEventStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &allStores{
		archive: pgstore.NewBlockArchive(pool),
		events:  memory.NewMintEventStore(),
	}
	cleanup := func() { pool.Close() }

	// ClickHouse (analytics)
	if clickhouseDSN != "" {
		chConn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
			chConn.Close()
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.events = chstore.NewMintEventStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// restoreFromArchive replays archived blocks into the in-memory chain and
// rebuilds the identifier index. An empty archive receives the fresh genesis
// block so later restarts always find a chain to replay.
func restoreFromArchive(ctx context.Context, chain *ledger.Chain, reg *registry.Registry, archive storage.BlockArchive, logger *log.Logger) error {
	blocks, err := archive.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	if len(blocks) == 0 {
		if err := archive.Append(ctx, chain.Head()); err != nil {
			return fmt.Errorf("archive genesis: %w", err)
		}
		logger.Println("Archive empty, starting a fresh chain")
		return nil
	}

	if err := chain.Restore(blocks); err != nil {
		return fmt.Errorf("replay %d archived blocks: %w", len(blocks), err)
	}
	reg.Rebuild(chain.Snapshot())
	logger.Printf("Restored chain of %d blocks from archive", len(blocks))
	return nil
}

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
