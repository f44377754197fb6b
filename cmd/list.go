package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taglens/taglens/internal/config"
	"github.com/taglens/taglens/internal/database"
	"github.com/taglens/taglens/internal/library"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the owner's media",
	Long: `List the owner's media sorted by upload time or capture time.
Media without a capture time sorts by its upload time.

Examples:
  # Newest uploads first
  taglens list --owner 42 --order desc

  # Oldest captures first
  taglens list --owner 42 --sort taken

  # Output as JSON
  taglens list --owner 42 --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("sort", "uploaded", "Sort field: uploaded or taken")
	listCmd.Flags().String("order", "asc", "Sort order: asc or desc")
	listCmd.Flags().Bool("json", false, "Output as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
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
	records, err := svc.List(context.Background(), ownerID,
		database.SortField(mustGetString(cmd, "sort")),
		database.SortOrder(mustGetString(cmd, "order")))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return json.NewEncoder(os.Stdout).Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No media found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tUPLOADED\tTAKEN\tCAPTION\tFILE")
	fmt.Fprintln(w, "--\t----\t--------\t-----\t-------\t----")
	for _, rec := range records {
		taken := "-"
		caption := ""
		if rec.Photo != nil {
			if rec.Photo.TakenAt != nil {
				taken = rec.Photo.TakenAt.Format("2006-01-02 15:04")
			}
			caption = truncate(rec.Photo.Caption, 40)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID, rec.Kind, rec.CreatedAt.Format("2006-01-02 15:04"), taken, caption, rec.FilePath)
	}
	return w.Flush()
}

// truncate shortens s to at most max runes, marking the cut with "...".
// Cutting on runes rather than bytes keeps multi-byte characters whole.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
