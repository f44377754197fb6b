package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/taglens/taglens/internal/config"
	"github.com/taglens/taglens/internal/database"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the similarity index from stored vectors",
	Long: `Scan every stored caption vector, verify it decodes to the
expected dimension, and rebuild the in-memory similarity index from
scratch. Useful as a consistency check after restoring a database
from backup.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	total, err := store.CountVectors(ctx)
	if err != nil {
		return err
	}
	if total == 0 {
		fmt.Println("No vectors stored")
		return nil
	}

	bar := progressbar.Default(int64(total), "indexing")
	index := database.NewVectorIndex()
	bad := 0

	err = store.WalkVectors(ctx, func(mediaID, ownerID int64, embedding []float32) error {
		if len(embedding) != database.EmbeddingDim {
			bad++
			fmt.Printf("\nmedia %d: bad vector dimension %d\n", mediaID, len(embedding))
		} else {
			index.Add(mediaID, ownerID, embedding)
		}
		return bar.Add(1)
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nIndexed %d vectors", index.Count())
	if bad > 0 {
		fmt.Printf(", %d corrupt", bad)
	}
	fmt.Println()
	return nil
}
