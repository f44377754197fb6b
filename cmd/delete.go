package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taglens/taglens/internal/config"
	"github.com/taglens/taglens/internal/library"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [media-id]",
	Short: "Remove a media record",
	Long: `Remove a media record and everything derived from it: keyword
entries, the caption embedding, face tags and the owner's counters all
go in the same transaction.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := requireOwner(); err != nil {
		return err
	}
	mediaID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid media id %q", args[0])
	}

	cfg := config.Load()
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := library.New(store, newLogger(cfg))
	if err := svc.Delete(context.Background(), ownerID, mediaID); err != nil {
		return err
	}

	fmt.Printf("Deleted media %d\n", mediaID)
	return nil
}
