package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taglens/taglens/internal/database"
)

func bbox(x, y, w, h int) database.BBox {
	return database.BBox{X: x, Y: y, W: w, H: h}
}

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func TestResizeImage_KeepsAspectRatio(t *testing.T) {
	data := encodeJPEG(createTestImage(2000, 1000, color.White))

	resized, err := ResizeImage(data, 500)
	if err != nil {
		t.Fatalf("ResizeImage failed: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(resized))
	if err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if img.Bounds().Dx() != 500 || img.Bounds().Dy() != 250 {
		t.Errorf("expected 500x250, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestImageDimensions(t *testing.T) {
	data := encodeJPEG(createTestImage(640, 480, color.White))

	w, h, err := ImageDimensions(data)
	if err != nil {
		t.Fatalf("ImageDimensions failed: %v", err)
	}
	if w != 640 || h != 480 {
		t.Errorf("expected 640x480, got %dx%d", w, h)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                          `{"a":1}`,
		"Here you go: {\"a\":{\"b\":2}} !": `{"a":{"b":2}}`,
		"no json here":                     "no json here",
		"broken {\"a\":1":                  "{\"a\":1",
	}
	for in, want := range cases {
		if got := extractJSON(in); got != want {
			t.Errorf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOllamaAnalyzeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if len(req.Messages) < 2 || len(req.Messages[1].Images) != 1 {
			t.Errorf("expected system + user message with image, got %+v", req.Messages)
		}

		resp := ollamaResponse{Done: true}
		resp.Message.Role = "assistant"
		resp.Message.Content = `{"caption": "a red square", "ocr_text": ""}`
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "test-model")
	analysis, err := provider.AnalyzeImage(context.Background(),
		encodeJPEG(createTestImage(100, 100, color.RGBA{R: 255, A: 255})))
	if err != nil {
		t.Fatalf("AnalyzeImage failed: %v", err)
	}
	if analysis.Caption != "a red square" {
		t.Errorf("unexpected caption %q", analysis.Caption)
	}
}

func TestOllamaAnalyzeImage_RetriesOnBadJSON(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		resp := ollamaResponse{Done: true}
		if calls == 1 {
			resp.Message.Content = "definitely not json"
		} else {
			resp.Message.Content = `{"caption": "second try", "ocr_text": ""}`
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "test-model")
	analysis, err := provider.AnalyzeImage(context.Background(),
		encodeJPEG(createTestImage(50, 50, color.White)))
	if err != nil {
		t.Fatalf("AnalyzeImage failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	if analysis.Caption != "second try" {
		t.Errorf("unexpected caption %q", analysis.Caption)
	}
}

func TestOllamaEmbedText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, "")
	emb, err := provider.EmbedText(context.Background(), "a red square")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	if len(emb) != 3 || emb[1] != float32(0.2) {
		t.Errorf("unexpected embedding %v", emb)
	}
}

func TestFaceDetector_Detect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(detectorResponse{
			Faces: []detectorFace{
				{
					BBox:      bbox(10, 20, 30, 40),
					Embedding: []float32{1, 0},
				},
			},
		})
	}))
	defer server.Close()

	detections, err := NewFaceDetector(server.URL).Detect(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(detections) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(detections))
	}
	if detections[0].BBox != bbox(10, 20, 30, 40) {
		t.Errorf("bbox lost: %+v", detections[0].BBox)
	}
}

func TestFaceDetector_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := NewFaceDetector(server.URL).Detect(context.Background(), []byte("img")); err == nil {
		t.Error("expected error for 500 response")
	}
}
