package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/config"
	"github.com/pable/fgframes/internal/framedata"
	"github.com/pable/fgframes/internal/logging"
	"github.com/pable/fgframes/internal/storage"
)

var (
	dbPath     string
	dbDriver   string
	configPath string
	logLevel   string

	cfg    = config.DefaultConfig()
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "fgframes",
	Short: "Fighting-game frame-data analyzer",
	Long: `Analyze symbolic fighting-game frame timelines: frame advantage on block,
punishable whiffs and jumps, drive impacts and coaching insights.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultDB := filepath.Join(mustUserHome(), ".fgframes", "frames.db")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "storage driver: sqlite or postgres (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(playerCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(shellCmd)
}

// loadSettings reads the config file and layers the global flags over it.
func loadSettings(cmd *cobra.Command, _ []string) error {
	loaded, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dbDriver != "" {
		loaded.Storage.Driver = dbDriver
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	if err := config.Validate(loaded); err != nil {
		return err
	}
	cfg = loaded
	logger = logging.New(cfg.LogLevel, os.Stderr)
	logger.Debug().Str("driver", cfg.Storage.Driver).Str("config", configPath).Msg("settings loaded")
	return nil
}

// openStorage opens the configured database. For sqlite an explicit --db
// wins over the config DSN.
func openStorage() (*storage.DB, error) {
	if cfg.Storage.Driver == storage.DriverPostgres {
		db, err := storage.OpenDriver(storage.DriverPostgres, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		return db, nil
	}
	path := sqlitePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	logger.Debug().Str("driver", db.Driver()).Str("path", path).Msg("storage opened")
	return db, nil
}

func sqlitePath() string {
	if cfg.Storage.DSN != "" && !rootCmd.PersistentFlags().Changed("db") {
		return cfg.Storage.DSN
	}
	return dbPath
}

func newEngine() *framedata.Engine {
	return framedata.NewEngine(cfg.Engine)
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
