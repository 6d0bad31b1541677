package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/pustelto/sitepipe/builder/cache"
	"github.com/pustelto/sitepipe/builder/config"
)

// handleCacheCommand processes cache-related subcommands
func handleCacheCommand(args []string) {
	if len(args) < 1 {
		printCacheUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	cfg := config.Load(args[1:])

	switch subcommand {
	case "stats":
		cacheStats(cfg)
	case "prune":
		cachePrune(cfg)
	case "clear":
		cacheClear(cfg)
	default:
		fmt.Printf("Unknown cache subcommand: %s\n", subcommand)
		printCacheUsage()
		os.Exit(1)
	}
}

func printCacheUsage() {
	fmt.Println("Usage: sitepipe cache <subcommand>")
	fmt.Println("\nSubcommands:")
	fmt.Println("  stats          Show cache statistics")
	fmt.Println("  prune          Delete stored blobs no record points to")
	fmt.Println("  clear          Delete all cache data")
}

func openCache(cfg *config.Config) *cache.Manager {
	// Cache commands run in production mode for durability
	cm, err := cache.Open(cfg.Paths.Cache, false)
	if err != nil {
		fmt.Printf("❌ Failed to open cache: %v\n", err)
		os.Exit(1)
	}
	return cm
}

// openCacheFor opens the cache for a pipeline step. A cache that cannot be
// opened only disables caching.
func openCacheFor(cfg *config.Config, logger *slog.Logger) *cache.Manager {
	cm, err := cache.Open(cfg.Paths.Cache, cfg.IsDev)
	if err != nil {
		logger.Warn("Cache disabled", "error", err)
		return nil
	}
	if err := cm.IncrementBuildCount(); err != nil {
		logger.Warn("Failed to update cache stats", "error", err)
	}
	return cm
}

func cacheStats(cfg *config.Config) {
	cm := openCache(cfg)
	defer func() { _ = cm.Close() }()

	stats, err := cm.Stats()
	if err != nil {
		fmt.Printf("❌ Failed to get stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("📊 Cache Statistics")
	fmt.Println("════════════════════════════════════════")
	fmt.Printf("Schema Version:  %d\n", stats.SchemaVersion)
	fmt.Printf("Store Size:      %.2f MB\n", float64(stats.StoreBytes)/(1024*1024))
	fmt.Printf("Build Count:     %d\n", stats.BuildCount)
	if stats.LastPrune > 0 {
		fmt.Printf("Last Prune:      %s\n", time.Unix(stats.LastPrune, 0).Format(time.RFC3339))
	} else {
		fmt.Printf("Last Prune:      never\n")
	}

	namespaces := make([]string, 0, len(stats.Artifacts))
	for ns := range stats.Artifacts {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	fmt.Println("\n📦 Artifacts")
	fmt.Println("────────────────────────────────────────")
	if len(namespaces) == 0 {
		fmt.Println("(empty)")
	}
	for _, ns := range namespaces {
		fmt.Printf("%-16s %d\n", ns+":", stats.Artifacts[ns])
	}
}

func cachePrune(cfg *config.Config) {
	cm := openCache(cfg)
	defer func() { _ = cm.Close() }()

	fmt.Println("🗑️  Pruning cache...")
	removed, freed, err := cm.Prune()
	if err != nil {
		fmt.Printf("❌ Prune failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted:    %d blobs (%.2f MB)\n", removed, float64(freed)/(1024*1024))
	fmt.Println("✅ Prune complete")
}

func cacheClear(cfg *config.Config) {
	cm := openCache(cfg)
	defer func() { _ = cm.Close() }()

	fmt.Println("🗑️  Clearing cache...")
	if err := cm.Clear(); err != nil {
		fmt.Printf("❌ Clear failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Cache cleared")
}
