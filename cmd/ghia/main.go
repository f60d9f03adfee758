package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/yashwanth-reddy909/ghia/internal/config"
	"github.com/yashwanth-reddy909/ghia/internal/server"
	"github.com/yashwanth-reddy909/ghia/internal/storage/sqlite"
	"github.com/yashwanth-reddy909/ghia/internal/syncer"
)

const (
	cmdServe = "serve"

	// dbLockTimeout bounds how long a command waits for another writer
	dbLockTimeout = 5 * time.Second
)

var (
	dbPath     string
	serverURL  string
	jsonOutput bool

	store  *sqlite.SQLiteStorage
	engine *syncer.Engine
	dbLock *fileLock

	// apiClient is set when --server points at a running 'ghia serve'
	apiClient *server.Client

	rootCtx = context.Background()
)

// writeCommands mutate the cache and take the database file lock in direct mode
var writeCommands = []string{"scan", "clear"}

// noDbCommands never touch the database, or open it themselves
var noDbCommands = []string{
	cmdServe,
	"bash",
	"completion",
	"config",
	"doctor",
	"fish",
	"help",
	"powershell",
	"show",
	"path",
	"version",
	"zsh",
}

func init() {
	// Initialize viper configuration
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Cache database path (default: $GHIA_DB or the user cache dir)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Send requests to a running 'ghia serve' at this URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}

var rootCmd = &cobra.Command{
	Use:   "ghia",
	Short: "ghia - GitHub issue analyzer",
	Long: `Fetch the open issues of GitHub repositories into a local cache and
ask an LLM questions about them.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("ghia version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Priority: flags > viper (config file + env vars) > defaults
		if !cmd.Flags().Changed("json") {
			jsonOutput = config.GetBool("json")
		}
		if !cmd.Flags().Changed("db") && dbPath == "" {
			dbPath = config.GetString("db")
		}
		if !cmd.Flags().Changed("server") && serverURL == "" {
			serverURL = config.GetString("server")
		}

		if slices.Contains(noDbCommands, cmd.Name()) {
			return
		}

		if serverURL != "" {
			client, err := server.NewClient(serverURL, Version, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			apiClient = client
			return
		}

		if err := openStore(slices.Contains(writeCommands, cmd.Name())); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeStore()
	},
}

// openStore opens the cache database for direct mode. Writers also take the
// database file lock so they never race a running server.
func openStore(write bool) error {
	if store != nil {
		return nil
	}
	if dbPath == "" {
		dbPath = config.DefaultDBPath()
	}

	if write {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		lock, err := acquireFileLock(dbPath+".lock", dbLockTimeout)
		if err != nil {
			return fmt.Errorf("%w\nHint: a 'ghia serve' may own this database; retry with --server", err)
		}
		dbLock = lock
	}

	s, err := sqlite.New(dbPath)
	if err != nil {
		releaseDBLock()
		return fmt.Errorf("failed to open database: %w", err)
	}
	store = s
	engine = syncer.New(store, syncer.WithLogger(newCLILogger()))
	return nil
}

func closeStore() {
	if store != nil {
		_ = store.Close()
		store = nil
		engine = nil
	}
	releaseDBLock()
	apiClient = nil
}

func releaseDBLock() {
	if dbLock != nil {
		_ = dbLock.Release()
		dbLock = nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
