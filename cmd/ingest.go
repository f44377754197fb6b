package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taglens/taglens/internal/ai"
	"github.com/taglens/taglens/internal/config"
	"github.com/taglens/taglens/internal/database"
	"github.com/taglens/taglens/internal/library"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Add a photo or video to the library",
	Long: `Add a media file to the owner's library.

Photos are analyzed with the configured vision model (caption and OCR
text), embedded for similarity search, and scanned for faces when a
face detection service is configured. Detected faces get stable
person tags by matching against the owner's previously tagged faces.
Videos are stored with metadata only.

Examples:
  # Ingest a photo with AI analysis via Ollama (the default provider)
  taglens ingest --owner 42 vacation.jpg

  # Use OpenAI instead
  taglens ingest --owner 42 --provider openai vacation.jpg

  # Skip AI analysis and provide the caption yourself
  taglens ingest --owner 42 --no-analyze --caption "Sunset at the pier" vacation.jpg

  # Load face detections from a sidecar JSON file
  taglens ingest --owner 42 --faces-file vacation.faces.json vacation.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("provider", "ollama", "Vision provider: ollama, openai or gemini")
	ingestCmd.Flags().Bool("no-analyze", false, "Skip AI caption and OCR analysis")
	ingestCmd.Flags().String("caption", "", "Caption text (overrides AI analysis)")
	ingestCmd.Flags().String("ocr-text", "", "OCR text (overrides AI analysis)")
	ingestCmd.Flags().String("faces-file", "", "JSON sidecar with face detections")

	// Already-extracted capture metadata; this tool does not read EXIF.
	ingestCmd.Flags().String("taken-at", "", "Capture time (RFC 3339)")
	ingestCmd.Flags().String("camera-make", "", "Camera manufacturer")
	ingestCmd.Flags().String("camera-model", "", "Camera model")
	ingestCmd.Flags().String("location", "", "Place description")
	ingestCmd.Flags().String("city", "", "City")
	ingestCmd.Flags().String("state", "", "State or region")
	ingestCmd.Flags().String("country", "", "Country")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := requireOwner(); err != nil {
		return err
	}

	cfg := config.Load()
	logger := newLogger(cfg)
	ctx := context.Background()

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := library.New(store, logger)

	rec := &database.MediaRecord{
		OwnerID:   ownerID,
		Kind:      database.KindPhoto,
		FilePath:  path,
		SizeBytes: info.Size(),
	}
	if videoExtensions[strings.ToLower(filepath.Ext(path))] {
		rec.Kind = database.KindVideo
	}

	var detections []database.FaceDetection
	if rec.Kind == database.KindPhoto {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		photo, err := buildPhotoDetails(ctx, cmd, cfg, logger, data)
		if err != nil {
			return err
		}
		rec.Photo = photo

		if photo.Caption != "" {
			embedCaption(ctx, cfg, logger, photo)
		}

		detections, err = detectFaces(ctx, cmd, cfg, logger, data)
		if err != nil {
			return err
		}
	}

	stored, err := svc.Ingest(ctx, rec, detections)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %s as media %d\n", path, stored.ID)
	if stored.Photo != nil {
		if stored.Photo.Caption != "" {
			fmt.Printf("  Caption: %s\n", stored.Photo.Caption)
		}
		for _, face := range stored.Photo.Faces {
			fmt.Printf("  Face: %s at (%d,%d %dx%d)\n",
				face.Tag, face.BBox.X, face.BBox.Y, face.BBox.W, face.BBox.H)
		}
	}
	return nil
}

func buildPhotoDetails(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger zerolog.Logger, data []byte) (*database.PhotoDetails, error) {
	photo := &database.PhotoDetails{
		Caption:     mustGetString(cmd, "caption"),
		OCRText:     mustGetString(cmd, "ocr-text"),
		CameraMake:  mustGetString(cmd, "camera-make"),
		CameraModel: mustGetString(cmd, "camera-model"),
		Location: database.Location{
			Description: mustGetString(cmd, "location"),
			City:        mustGetString(cmd, "city"),
			State:       mustGetString(cmd, "state"),
			Country:     mustGetString(cmd, "country"),
		},
	}

	if v := mustGetString(cmd, "taken-at"); v != "" {
		taken, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid --taken-at %q: %w", v, err)
		}
		photo.TakenAt = &taken
	}

	width, height, err := ai.ImageDimensions(data)
	if err != nil {
		return nil, err
	}
	photo.Width = width
	photo.Height = height

	if mustGetBool(cmd, "no-analyze") {
		return photo, nil
	}

	provider, err := newProvider(ctx, cfg, mustGetString(cmd, "provider"))
	if err != nil {
		return nil, err
	}

	// An unreachable model degrades to an empty caption; the photo is
	// still ingested and stays searchable by its other fields.
	analysis, err := provider.AnalyzeImage(ctx, data)
	if err != nil {
		logger.Warn().Err(err).Str("provider", provider.Name()).
			Msg("analysis failed, ingesting without caption")
		return photo, nil
	}
	if photo.Caption == "" {
		photo.Caption = analysis.Caption
	}
	if photo.OCRText == "" {
		photo.OCRText = analysis.OCRText
	}

	return photo, nil
}

func newProvider(ctx context.Context, cfg *config.Config, name string) (ai.Provider, error) {
	switch name {
	case "ollama":
		return ai.NewOllamaProvider(cfg.Ollama.URL, cfg.Ollama.Model), nil
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, fmt.Errorf("OPENAI_TOKEN environment variable is required")
		}
		return ai.NewOpenAIProvider(cfg.OpenAI.Token), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}
		return ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// embedCaption computes the caption embedding through Ollama. Failures
// and wrong-sized vectors are logged and skipped; the photo is still
// ingested, it just won't show up in similarity search.
func embedCaption(ctx context.Context, cfg *config.Config, logger zerolog.Logger, photo *database.PhotoDetails) {
	text := strings.TrimSpace(photo.Caption + " " + photo.OCRText)
	emb, err := ai.NewOllamaProvider(cfg.Ollama.URL, cfg.Ollama.Model).EmbedText(ctx, text)
	if err != nil {
		logger.Warn().Err(err).Msg("caption embedding failed, skipping")
		return
	}
	if len(emb) != database.EmbeddingDim {
		logger.Warn().
			Int("dim", len(emb)).
			Int("want", database.EmbeddingDim).
			Msg("embedding model returned wrong dimension, skipping")
		return
	}
	photo.Embedding = emb
}

// detectFaces loads detections from the sidecar file when given,
// otherwise calls the configured detection service. A detector failure
// is logged and treated as zero faces so ingestion still succeeds.
func detectFaces(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger zerolog.Logger, data []byte) ([]database.FaceDetection, error) {
	if sidecar := mustGetString(cmd, "faces-file"); sidecar != "" {
		raw, err := os.ReadFile(sidecar)
		if err != nil {
			return nil, fmt.Errorf("failed to read faces file: %w", err)
		}
		var detections []database.FaceDetection
		if err := json.Unmarshal(raw, &detections); err != nil {
			return nil, fmt.Errorf("failed to parse faces file: %w", err)
		}
		return detections, nil
	}

	if cfg.Faces.DetectorURL == "" {
		return nil, nil
	}

	detections, err := ai.NewFaceDetector(cfg.Faces.DetectorURL).Detect(ctx, data)
	if err != nil {
		logger.Warn().Err(err).Msg("face detection failed, ingesting without faces")
		return nil, nil
	}
	return detections, nil
}
