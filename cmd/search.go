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

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the owner's photos by keywords",
	Long: `Search the owner's photos by words from their captions, OCR text
and location fields. Results are ranked best match first.

Examples:
  taglens search --owner 42 "beach sunset"
  taglens search --owner 42 --limit 5 "birthday cake"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("limit", 20, "Maximum number of results")
	searchCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireOwner(); err != nil {
		return err
	}

	cfg := config.Load()
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	svc := library.New(store, newLogger(cfg))
	ids, err := svc.Search(ctx, ownerID, args[0], mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return json.NewEncoder(os.Stdout).Encode(ids)
	}

	if len(ids) == 0 {
		fmt.Println("No matches")
		return nil
	}

	for _, id := range ids {
		rec, err := svc.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}
		caption := ""
		if rec.Photo != nil {
			caption = rec.Photo.Caption
		}
		fmt.Printf("%d\t%s\t%s\n", rec.ID, rec.FilePath, caption)
	}
	return nil
}
