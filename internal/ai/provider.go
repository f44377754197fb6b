package ai

import "context"

// ImageAnalysis is what a vision model extracts from a photo.
type ImageAnalysis struct {
	// Caption is a one or two sentence description of the photo.
	Caption string `json:"caption"`
	// OCRText is any readable text found in the photo.
	OCRText string `json:"ocr_text"`
}

// Provider defines the interface for vision analysis backends.
type Provider interface {
	Name() string
	AnalyzeImage(ctx context.Context, imageData []byte) (*ImageAnalysis, error)
}

// Embedder produces caption embeddings for similarity search.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
