package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/assetlinks/loader"
	"github.com/aspect-build/linktrust/internal/authdomain"
	"github.com/aspect-build/linktrust/internal/fingerprint"
	"github.com/aspect-build/linktrust/internal/logx"
	"github.com/aspect-build/linktrust/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	var (
		verbose  bool
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:     "linktrust",
		Short:   "linktrust - resolve mutual trust relations between web origins and apps",
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logx.Configure(logLevel, verbose)
		},
	}
	rootCmd.SetVersionTemplate(version.String("linktrust") + "\n")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose debug logs")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error (or LINKTRUST_LOG_LEVEL)")

	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newFingerprintCmd())
	rootCmd.AddCommand(newCacheCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newResolveCmd() *cobra.Command {
	var (
		relation     string
		mutual       bool
		snapshotPath string
		registryURL  string
		apiKey       string
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "resolve <domain>",
		Short: "Resolve the declared trust relations of a web origin",
		Long: `Fetch the asset link declaration of a web origin and print its declared
relation targets, one per line. With --mutual, only targets that declare the
relation back toward the source are printed; one-directional declarations are
never sufficient for credential sharing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(args[0], relation, mutual, snapshotPath, registryURL, apiKey, timeout)
		},
	}

	cmd.Flags().StringVar(&relation, "relation", assetlinks.RelationGetLoginCreds, "Relation type to resolve")
	cmd.Flags().BoolVar(&mutual, "mutual", false, "Only print bidirectionally declared targets")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Cache snapshot file to load before and save after resolving")
	cmd.Flags().StringVar(&registryURL, "registry-url", "", "Statement registry endpoint (default: public registry)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key enabling the registry fallback loader")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall resolution timeout")

	return cmd
}

func runResolve(domainStr, relation string, mutual bool, snapshotPath, registryURL, apiKey string, timeout time.Duration) error {
	source, err := authdomain.Parse(domainStr)
	if err != nil {
		return fmt.Errorf("invalid domain: %w", err)
	}

	httpClient := &http.Client{Timeout: timeout}
	loaders := []assetlinks.Loader{loader.NewWeb(httpClient)}
	if apiKey != "" {
		loaders = append(loaders, loader.NewRegistry(registryURL, apiKey, httpClient))
	}
	cache := assetlinks.NewCache(loader.NewChain(loaders...), assetlinks.RecommendedCacheDuration)

	if snapshotPath != "" {
		data, err := os.ReadFile(snapshotPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// first run, nothing to load
		case err != nil:
			return fmt.Errorf("read snapshot: %w", err)
		default:
			if err := cache.Import(data); err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resolve := cache.Relations
	if mutual {
		resolve = cache.BidirectionalRelations
	}
	targets, err := resolve(ctx, source, relation)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", source, err)
	}

	for _, target := range targets.Sorted() {
		fmt.Println(target)
	}

	if snapshotPath != "" {
		data, err := cache.Export()
		if err != nil {
			return fmt.Errorf("export snapshot: %w", err)
		}
		if err := os.WriteFile(snapshotPath, data, 0o600); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}

	return nil
}

func newCacheCmd() *cobra.Command {
	var (
		serverURL string
		token     string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Export or import the cache of a running linktrust server",
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the linktrust server")
	cmd.PersistentFlags().StringVar(&token, "token", "", "Admin Bearer token (or LINKTRUST_ADMIN_TOKEN)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	export := &cobra.Command{
		Use:   "export [file]",
		Short: "Download the server's live cache snapshot (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: timeout}
			resp, err := client.Get(strings.TrimRight(serverURL, "/") + "/v1/cache")
			if err != nil {
				return fmt.Errorf("fetch cache: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("fetch cache: server returned status %d", resp.StatusCode)
			}
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			if len(args) == 1 {
				return os.WriteFile(args[0], data, 0o600)
			}
			fmt.Println(string(data))
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Upload a snapshot into the server's cache (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("LINKTRUST_ADMIN_TOKEN")
			}
			if token == "" {
				return fmt.Errorf("an admin token is required (--token or LINKTRUST_ADMIN_TOKEN)")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}

			req, err := http.NewRequest(http.MethodPut, strings.TrimRight(serverURL, "/")+"/v1/cache", bytes.NewReader(data))
			if err != nil {
				return err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")

			client := &http.Client{Timeout: timeout}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("upload snapshot: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
				return fmt.Errorf("upload snapshot: server returned status %d: %s", resp.StatusCode, body)
			}
			fmt.Println("imported")
			return nil
		},
	}

	cmd.AddCommand(export)
	cmd.AddCommand(importCmd)
	return cmd
}

func newFingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Convert certificate fingerprints between hex and base64 forms",
	}

	toBase64 := &cobra.Command{
		Use:   "to-base64 <colon-delimited-hex>",
		Short: "Convert a colon-delimited hex fingerprint to canonical base64",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b64, err := fingerprint.HexToBase64(args[0])
			if err != nil {
				return err
			}
			fmt.Println(b64)
			return nil
		},
	}

	toHex := &cobra.Command{
		Use:   "to-hex <base64>",
		Short: "Convert a canonical base64 fingerprint to colon-delimited hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hex, err := fingerprint.Base64ToHex(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hex)
			return nil
		},
	}

	cmd.AddCommand(toBase64)
	cmd.AddCommand(toHex)
	return cmd
}
