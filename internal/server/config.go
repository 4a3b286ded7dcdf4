// Package server exposes the trust cache's resolve, export and import
// operations over HTTP.
package server

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aspect-build/linktrust/internal/assetlinks"
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	AdminToken     string
	DBPath         string
	ListenAddr     string
	CacheTTL       time.Duration
	RegistryURL    string
	RegistryAPIKey string
	SnapshotKeep   int
	CORSOrigins    []string
}

// LoadConfig loads server configuration from environment variables.
func LoadConfig() (*Config, error) {
	adminToken := os.Getenv("LINKTRUST_ADMIN_TOKEN")
	if adminToken == "" {
		return nil, fmt.Errorf("LINKTRUST_ADMIN_TOKEN is required")
	}
	if len(adminToken) < 16 {
		return nil, fmt.Errorf("LINKTRUST_ADMIN_TOKEN must be at least 16 characters")
	}

	dbPath := os.Getenv("LINKTRUST_DB_PATH")
	if dbPath == "" {
		dbPath = "linktrust.db"
	}

	listenAddr := os.Getenv("LINKTRUST_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	cacheTTL := assetlinks.RecommendedCacheDuration
	if v := os.Getenv("LINKTRUST_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("LINKTRUST_CACHE_TTL must be a positive duration like 24h or 30m")
		}
		cacheTTL = d
	}

	snapshotKeep := 5
	if v := os.Getenv("LINKTRUST_SNAPSHOT_KEEP"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n < 1 {
			return nil, fmt.Errorf("LINKTRUST_SNAPSHOT_KEEP must be a positive integer")
		}
		snapshotKeep = n
	}

	var corsOrigins []string
	if v := os.Getenv("LINKTRUST_CORS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	return &Config{
		AdminToken:     adminToken,
		DBPath:         dbPath,
		ListenAddr:     listenAddr,
		CacheTTL:       cacheTTL,
		RegistryURL:    os.Getenv("LINKTRUST_REGISTRY_URL"),
		RegistryAPIKey: os.Getenv("LINKTRUST_REGISTRY_API_KEY"),
		SnapshotKeep:   snapshotKeep,
		CORSOrigins:    corsOrigins,
	}, nil
}
