package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taglens/taglens/internal/config"
	"github.com/taglens/taglens/internal/library"
)

var infoCmd = &cobra.Command{
	Use:   "info [media-id]",
	Short: "Show one media record",
	Long: `Show the full record for one media item, including faces and
whether a caption embedding is stored.

Examples:
  taglens info --owner 42 100007
  taglens info --owner 42 --json 100007`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("json", false, "Output as JSON")
}

func runInfo(cmd *cobra.Command, args []string) error {
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
	rec, err := svc.Get(context.Background(), ownerID, mediaID)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return json.NewEncoder(os.Stdout).Encode(rec)
	}

	fmt.Printf("Media %d (%s)\n", rec.ID, rec.Kind)
	fmt.Printf("  File:     %s (%d bytes)\n", rec.FilePath, rec.SizeBytes)
	fmt.Printf("  Uploaded: %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))

	if rec.Photo == nil {
		return nil
	}
	p := rec.Photo
	fmt.Printf("  Size:     %dx%d\n", p.Width, p.Height)
	if p.TakenAt != nil {
		fmt.Printf("  Taken:    %s\n", p.TakenAt.Format("2006-01-02 15:04:05"))
	}
	if p.CameraMake != "" || p.CameraModel != "" {
		fmt.Printf("  Camera:   %s %s\n", p.CameraMake, p.CameraModel)
	}
	if p.Location.Description != "" || p.Location.City != "" {
		fmt.Printf("  Location: %s %s %s %s\n",
			p.Location.Description, p.Location.City, p.Location.State, p.Location.Country)
	}
	if p.Caption != "" {
		fmt.Printf("  Caption:  %s\n", p.Caption)
	}
	if p.OCRText != "" {
		fmt.Printf("  OCR:      %s\n", p.OCRText)
	}
	fmt.Printf("  Embedded: %t\n", len(p.Embedding) > 0)
	for _, face := range p.Faces {
		fmt.Printf("  Face:     %s at (%d,%d %dx%d)\n",
			face.Tag, face.BBox.X, face.BBox.Y, face.BBox.W, face.BBox.H)
	}
	return nil
}
