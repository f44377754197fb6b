package database

import (
	"time"
)

// Kind distinguishes the two media variants stored in the library.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// Valid reports whether the kind is one of the known variants.
func (k Kind) Valid() bool {
	return k == KindPhoto || k == KindVideo
}

// SortField selects the timestamp used to order listings.
type SortField string

// SortOrder selects the listing direction.
type SortOrder string

const (
	SortUploaded SortField = "uploaded"
	SortTaken    SortField = "taken"

	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// EmbeddingDim is the fixed dimension for caption embeddings
// (384 for all-MiniLM-L6-v2 style sentence encoders).
const EmbeddingDim = 384

// MediaRecord is the structured row owned by the metadata store.
// Photo-only fields live behind the Photo pointer so they are
// impossible to populate on a video.
type MediaRecord struct {
	ID        int64
	OwnerID   int64
	Kind      Kind
	FilePath  string
	SizeBytes int64
	CreatedAt time.Time

	// Photo is nil for KindVideo.
	Photo *PhotoDetails
}

// PhotoDetails holds the optical, caption, and face data of a photo.
// Optional numeric fields are pointers so that an unparseable source
// value persists as absent rather than as a zero default.
type PhotoDetails struct {
	Width       int
	Height      int
	CameraMake  string
	CameraModel string
	TakenAt     *time.Time
	ISO         *int
	FStop       *float64
	Shutter     string
	FocalLength *float64
	Latitude    *float64
	Longitude   *float64
	Location    Location
	Caption     string
	OCRText     string

	// Embedding is the caption embedding, empty when the embedding
	// backend was unavailable at ingest time.
	Embedding []float32

	// Faces in detection order, tags resolved at ingest time.
	Faces []FaceTag
}

// Location is the reverse-geocoded place of a photo.
type Location struct {
	Description string
	City        string
	State       string
	Country     string
}

// BBox is a face bounding box in pixel coordinates.
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// FaceDetection is a raw detector output before identity assignment.
type FaceDetection struct {
	BBox      BBox      `json:"bbox"`
	Embedding []float32 `json:"embedding"`
}

// FaceTag is a detected face with its resolved per-owner identity tag.
type FaceTag struct {
	BBox      BBox
	Tag       string
	Embedding []float32
}

// KnownFace is a previously stored (tag, embedding) pair for an owner.
type KnownFace struct {
	Tag       string
	Embedding []float32
}

// UserStats holds the per-owner aggregate counters.
type UserStats struct {
	OwnerID    int64
	PhotoCount int64
	VideoCount int64
}

// Neighbor is a single nearest-vector result.
type Neighbor struct {
	MediaID int64
	Score   float64 // cosine similarity, 1.0 = identical direction
}
