package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/taglens/taglens/internal/config"
	"github.com/taglens/taglens/internal/library"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the owner's media counters",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := requireOwner(); err != nil {
		return err
	}

	cfg := config.Load()
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := library.New(store, newLogger(cfg))
	stats, err := svc.Stats(context.Background(), ownerID)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return json.NewEncoder(os.Stdout).Encode(stats)
	}

	fmt.Printf("Owner %d: %d photos, %d videos\n", stats.OwnerID, stats.PhotoCount, stats.VideoCount)
	return nil
}
