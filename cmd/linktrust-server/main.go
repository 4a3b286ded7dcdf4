package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/assetlinks/loader"
	"github.com/aspect-build/linktrust/internal/logx"
	"github.com/aspect-build/linktrust/internal/server"
	"github.com/aspect-build/linktrust/internal/store"
	"github.com/aspect-build/linktrust/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	verbose := flag.Bool("verbose", false, "Enable verbose debug logs (same as --log-level debug)")
	logLevel := flag.String("log-level", "", "Log level: debug|info|warn|error (or LINKTRUST_LOG_LEVEL)")
	flag.BoolVar(showVersion, "v", false, "Print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.String("linktrust-server"))
		fmt.Fprintf(os.Stderr, "Linktrust server resolves and caches asset link trust relations between web origins and apps.\n\n")
		fmt.Fprintf(os.Stderr, "Environment variables:\n")
		fmt.Fprintf(os.Stderr, "  LINKTRUST_ADMIN_TOKEN       Admin Bearer token for cache import/save APIs (min 16 chars, required)\n")
		fmt.Fprintf(os.Stderr, "  LINKTRUST_DB_PATH           SQLite snapshot database path (default: linktrust.db)\n")
		fmt.Fprintf(os.Stderr, "  LINKTRUST_LISTEN_ADDR       Listen address (default: :8080)\n")
		fmt.Fprintf(os.Stderr, "  LINKTRUST_CACHE_TTL         Relation cache entry lifetime (default: 24h)\n")
		fmt.Fprintf(os.Stderr, "  LINKTRUST_REGISTRY_URL      Statement registry endpoint (default: public registry)\n")
		fmt.Fprintf(os.Stderr, "  LINKTRUST_REGISTRY_API_KEY  API key enabling the registry fallback loader\n")
		fmt.Fprintf(os.Stderr, "  LINKTRUST_SNAPSHOT_KEEP     Snapshots retained in the database (default: 5)\n")
		fmt.Fprintf(os.Stderr, "  LINKTRUST_LOG_LEVEL         Log level: debug|info|warn|error (default: info)\n")
		fmt.Fprintf(os.Stderr, "\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("linktrust-server"))
		os.Exit(0)
	}

	if err := logx.Configure(*logLevel, *verbose); err != nil {
		log.Fatalf("configure logging: %v", err)
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer st.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	loaders := []assetlinks.Loader{loader.NewWeb(httpClient)}
	if cfg.RegistryAPIKey != "" {
		loaders = append(loaders, loader.NewRegistry(cfg.RegistryURL, cfg.RegistryAPIKey, httpClient))
	}

	cache := assetlinks.NewCache(loader.NewChain(loaders...), cfg.CacheTTL)

	// Still-live entries from the last run survive a restart.
	snapshot, createdAt, err := st.LatestSnapshot()
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		logx.Infof("no persisted snapshot, starting with an empty cache")
	case err != nil:
		log.Fatalf("load snapshot: %v", err)
	default:
		if err := cache.Import(snapshot); err != nil {
			logx.Warnf("discarding unreadable snapshot from %s: %v", createdAt.Format(time.RFC3339), err)
		} else {
			logx.Infof("imported snapshot from %s", createdAt.Format(time.RFC3339))
		}
	}

	r := server.NewRouter(cache, st, cfg)
	logx.Infof("server config: cache_ttl=%s registry_enabled=%v", cfg.CacheTTL, cfg.RegistryAPIKey != "")

	log.Printf("linktrust-server listening on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
