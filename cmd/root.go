package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taglens/taglens/internal/config"
	"github.com/taglens/taglens/internal/database"
	"github.com/taglens/taglens/internal/database/postgres"
	"github.com/taglens/taglens/internal/database/sqlite"
)

var ownerID int64

var rootCmd = &cobra.Command{
	Use:   "taglens",
	Short: "A per-user media library with keyword and similarity search",
	Long: `TagLens indexes photos and videos per user: metadata, searchable
keywords, caption embeddings and face identities are kept in step in a
single database, queryable from the command line.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().Int64Var(&ownerID, "owner", 0, "Owner user id (required for library commands)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newLogger builds the process logger from LOG_LEVEL.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// openStore opens the configured storage engine.
func openStore(cfg *config.Config) (database.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return postgres.Open(&cfg.Database)
	case "sqlite":
		return sqlite.Open(cfg.Database.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func requireOwner() error {
	if ownerID <= 0 {
		return fmt.Errorf("--owner flag is required")
	}
	return nil
}
