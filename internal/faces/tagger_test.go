package faces

import (
	"testing"

	"github.com/taglens/taglens/internal/database"
)

func det(embedding ...float32) database.FaceDetection {
	return database.FaceDetection{
		BBox:      database.BBox{X: 1, Y: 2, W: 30, H: 40},
		Embedding: embedding,
	}
}

func TestAssign_MintsSequentialTags(t *testing.T) {
	tagger := NewTagger(nil)

	tags := tagger.Assign([]database.FaceDetection{
		det(1, 0, 0),
		det(0, 1, 0),
	})

	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if tags[0].Tag != "person_1" {
		t.Errorf("expected person_1, got %s", tags[0].Tag)
	}
	if tags[1].Tag != "person_2" {
		t.Errorf("expected person_2, got %s", tags[1].Tag)
	}
}

func TestAssign_ReusesKnownTagAboveThreshold(t *testing.T) {
	tagger := NewTagger([]database.KnownFace{
		{Tag: "person_3", Embedding: []float32{1, 0, 0}},
	})

	tags := tagger.Assign([]database.FaceDetection{det(0.99, 0.1, 0)})
	if tags[0].Tag != "person_3" {
		t.Errorf("expected person_3, got %s", tags[0].Tag)
	}
}

func TestAssign_MintsPastHighestKnownNumber(t *testing.T) {
	tagger := NewTagger([]database.KnownFace{
		{Tag: "person_7", Embedding: []float32{1, 0, 0}},
		{Tag: "person_2", Embedding: []float32{0, 1, 0}},
	})

	tags := tagger.Assign([]database.FaceDetection{det(0, 0, 1)})
	if tags[0].Tag != "person_8" {
		t.Errorf("expected person_8, got %s", tags[0].Tag)
	}
}

func TestAssign_BelowThresholdMintsNew(t *testing.T) {
	tagger := NewTagger([]database.KnownFace{
		{Tag: "person_1", Embedding: []float32{1, 0, 0}},
	})

	// Orthogonal vector scores 0, well under the threshold.
	tags := tagger.Assign([]database.FaceDetection{det(0, 1, 0)})
	if tags[0].Tag != "person_2" {
		t.Errorf("expected person_2, got %s", tags[0].Tag)
	}
}

func TestAssign_WithinCallReuse(t *testing.T) {
	tagger := NewTagger(nil)

	// Two near-identical faces in the same photo batch: the second
	// must reuse the tag minted for the first.
	tags := tagger.Assign([]database.FaceDetection{
		det(1, 0, 0),
		det(0.98, 0.05, 0),
	})

	if tags[0].Tag != "person_1" || tags[1].Tag != "person_1" {
		t.Errorf("expected both person_1, got %s and %s", tags[0].Tag, tags[1].Tag)
	}
}

func TestAssign_DimensionMismatchNeverMatches(t *testing.T) {
	tagger := NewTagger([]database.KnownFace{
		{Tag: "person_1", Embedding: []float32{1, 0, 0, 0}},
	})

	tags := tagger.Assign([]database.FaceDetection{det(1, 0, 0)})
	if tags[0].Tag != "person_2" {
		t.Errorf("expected person_2 for mismatched dimensions, got %s", tags[0].Tag)
	}
}

func TestAssign_IgnoresForeignTagNumbers(t *testing.T) {
	tagger := NewTagger([]database.KnownFace{
		{Tag: "alice", Embedding: []float32{1, 0, 0}},
	})

	tags := tagger.Assign([]database.FaceDetection{det(0, 1, 0)})
	if tags[0].Tag != "person_1" {
		t.Errorf("expected person_1, got %s", tags[0].Tag)
	}
}

func TestAssign_DropsEmbeddinglessDetections(t *testing.T) {
	tagger := NewTagger(nil)

	// A detection the detector could not embed is dropped rather than
	// minting an unmatchable identity. Numbering is unaffected.
	tags := tagger.Assign([]database.FaceDetection{
		{BBox: database.BBox{W: 5, H: 5}},
		det(1, 0, 0),
	})

	if len(tags) != 1 {
		t.Fatalf("expected 1 tag, got %d", len(tags))
	}
	if tags[0].Tag != "person_1" {
		t.Errorf("expected person_1, got %s", tags[0].Tag)
	}

	// Repeated ingests of embedding-less faces must not mint anything.
	if again := tagger.Assign([]database.FaceDetection{{}}); len(again) != 0 {
		t.Errorf("expected no tags, got %v", again)
	}
	if next := tagger.Assign([]database.FaceDetection{det(0, 1, 0)}); next[0].Tag != "person_2" {
		t.Errorf("expected person_2, got %s", next[0].Tag)
	}
}

func TestAssign_KeepsBBox(t *testing.T) {
	tagger := NewTagger(nil)

	tags := tagger.Assign([]database.FaceDetection{det(1, 0, 0)})
	want := database.BBox{X: 1, Y: 2, W: 30, H: 40}
	if tags[0].BBox != want {
		t.Errorf("expected bbox %+v, got %+v", want, tags[0].BBox)
	}
}

func TestAssign_ManyFacesStableOrder(t *testing.T) {
	tagger := NewTagger(nil)

	detections := []database.FaceDetection{
		det(1, 0, 0),
		det(0, 1, 0),
		det(0.99, 0.05, 0), // matches first
		det(0, 0, 1),
	}
	tags := tagger.Assign(detections)

	want := []string{"person_1", "person_2", "person_1", "person_3"}
	for i, w := range want {
		if tags[i].Tag != w {
			t.Errorf("face %d: expected %s, got %s", i, w, tags[i].Tag)
		}
	}
}
