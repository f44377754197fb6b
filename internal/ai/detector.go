package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/taglens/taglens/internal/database"
)

// FaceDetector calls an external face detection service that returns
// bounding boxes and face embeddings for a photo.
type FaceDetector struct {
	baseURL string
	client  *http.Client
}

func NewFaceDetector(baseURL string) *FaceDetector {
	return &FaceDetector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

type detectorFace struct {
	BBox      database.BBox `json:"bbox"`
	Embedding []float32     `json:"embedding"`
}

type detectorResponse struct {
	Faces []detectorFace `json:"faces"`
}

// Detect returns the faces found in the image. Callers typically treat
// an error as "no faces" so a flaky detector never blocks ingestion.
func (d *FaceDetector) Detect(ctx context.Context, imageData []byte) ([]database.FaceDetection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, string(body))
	}

	var out detectorResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	detections := make([]database.FaceDetection, 0, len(out.Faces))
	for _, f := range out.Faces {
		detections = append(detections, database.FaceDetection{
			BBox:      f.BBox,
			Embedding: f.Embedding,
		})
	}
	return detections, nil
}
