package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taglens/taglens/internal/config"
	"github.com/taglens/taglens/internal/library"
)

var similarCmd = &cobra.Command{
	Use:   "similar [media-id]",
	Short: "Find photos similar to a given photo",
	Long: `Find the owner's photos most similar to a given photo, ranked by
cosine similarity of their caption embeddings.

The source photo must have a stored embedding (it gets one during
ingest when the embedding model is reachable).

Examples:
  taglens similar --owner 42 100007
  taglens similar --owner 42 --limit 5 100007`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func init() {
	rootCmd.AddCommand(similarCmd)

	similarCmd.Flags().Int("limit", 10, "Maximum number of results")
	similarCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSimilar(cmd *cobra.Command, args []string) error {
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

	ctx := context.Background()
	svc := library.New(store, newLogger(cfg))

	rec, err := svc.Get(ctx, ownerID, mediaID)
	if err != nil {
		return err
	}
	if rec.Photo == nil || len(rec.Photo.Embedding) == 0 {
		return fmt.Errorf("media %d has no stored embedding", mediaID)
	}

	limit := mustGetInt(cmd, "limit")
	// Over-fetch by one so dropping the source photo still leaves
	// a full page.
	neighbors, err := svc.Similar(ctx, ownerID, rec.Photo.Embedding, limit+1)
	if err != nil {
		return err
	}

	results := neighbors[:0]
	for _, n := range neighbors {
		if n.MediaID != mediaID {
			results = append(results, n)
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}

	if mustGetBool(cmd, "json") {
		return json.NewEncoder(os.Stdout).Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No similar photos found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEDIA\tSIMILARITY")
	fmt.Fprintln(w, "-----\t----------")
	for _, n := range results {
		fmt.Fprintf(w, "%d\t%.2f%%\n", n.MediaID, n.Score*100)
	}
	return w.Flush()
}
