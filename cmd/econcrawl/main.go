package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/econgraph/econcrawl/internal/config"
	"github.com/econgraph/econcrawl/internal/database"
	"github.com/econgraph/econcrawl/internal/discover"
	"github.com/econgraph/econcrawl/internal/provider"
	"github.com/econgraph/econcrawl/internal/releases"
	"github.com/econgraph/econcrawl/internal/server"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "econcrawl",
	Short:   "Economic series discovery",
	Long:    "econcrawl crawls statistical provider catalogs, classifies economic series, and maintains a local series index.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		setupLogging()
		return nil
	},
}

func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("econcrawl", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/econcrawl/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure providers, crawl limits, and the server port.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Catalog:")
		fmt.Printf("  Series indexed: %d\n", stats.TotalSeries)
		fmt.Printf("  Sources: %d\n", stats.TotalSources)
		if len(stats.SeriesBySource) > 0 {
			names := make([]string, 0, len(stats.SeriesBySource))
			for name := range stats.SeriesBySource {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("    %s: %d\n", name, stats.SeriesBySource[name])
			}
		}
		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.TotalRuns)
		if stats.LastRunAt != nil {
			fmt.Printf("  Last run: %s\n", stats.LastRunAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

// --- discover command ---

var (
	discoverSource  string
	discoverTimeout int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run series discovery against configured providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if discoverTimeout > 0 {
			cfg.Crawl.RunTimeoutSecs = discoverTimeout
		}

		var providers []provider.Provider
		if discoverSource == "all" {
			providers = provider.Registry(cfg)
		} else {
			p := provider.ByKey(cfg, discoverSource)
			if p == nil {
				return fmt.Errorf("unknown or disabled source: %s", discoverSource)
			}
			providers = []provider.Provider{p}
		}
		if len(providers) == 0 {
			return fmt.Errorf("no providers enabled in config")
		}

		log := slog.Default()
		watcher := releases.NewWatcher(log)
		runner := discover.NewRunner(cfg, db, log)
		ctx := context.Background()

		for _, p := range providers {
			fmt.Printf("Discovering series from %s...\n", p.Name())

			// A broken announcement feed never blocks discovery.
			extraIDs, err := watcher.Candidates(ctx, p.ReleaseFeedURL(), p.IDPattern())
			if err != nil {
				log.Warn("release feed unavailable", "source", p.Key(), "error", err)
				extraIDs = nil
			} else if len(extraIDs) > 0 {
				fmt.Printf("  %d candidate IDs from the release feed\n", len(extraIDs))
			}

			run, err := runner.Run(ctx, p, extraIDs)
			if err != nil {
				return fmt.Errorf("discovery against %s: %w", p.Key(), err)
			}

			fmt.Printf("\nRun %s complete:\n", run.ID)
			fmt.Printf("  Requests: %d\n", run.Requests)
			fmt.Printf("  Classified economic: %d\n", run.Classified)
			fmt.Printf("  Created: %d\n", run.Created)
			fmt.Printf("  Updated: %d\n", run.Updated)
			fmt.Printf("  Duplicates merged: %d\n", run.Duplicates)
			if run.Dropped > 0 {
				fmt.Printf("  Malformed records dropped: %d\n", run.Dropped)
			}
			if run.FailedUpserts > 0 {
				fmt.Printf("  Failed upserts: %d\n", run.FailedUpserts)
			}
			if run.StrategyFailures > 0 {
				fmt.Printf("  Strategy failures: %d\n", run.StrategyFailures)
			}
			if run.TimedOut {
				fmt.Println("  Run hit its time limit; results are partial.")
			}
			fmt.Println()
		}

		fmt.Println("Done. Run 'econcrawl serve' to browse the catalog.")
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverSource, "source", "s", "all", "Source to discover (worldbank, census, all)")
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", 0, "Override run timeout (seconds)")
}

// --- sources command ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List known data sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sources, err := db.ListSources()
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Println("No sources yet. Run 'econcrawl discover' first.")
			return nil
		}

		counts, err := db.CountSeriesBySource()
		if err != nil {
			return err
		}

		fmt.Println("Data sources:")
		for _, src := range sources {
			fmt.Printf("  [%d] %s (%d series)\n", src.ID, src.Name, counts[src.Name])
			fmt.Printf("      %s\n", src.BaseURL)
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local status server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		if port == 0 {
			port = 8000
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (defaults to config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "econcrawl.db")
	return database.Open(dbPath)
}
