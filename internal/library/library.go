// Package library is the media library facade: one entry point for
// ingesting, browsing, searching and deleting a user's media, keeping
// the storage engine and the in-memory vector index in step.
package library

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taglens/taglens/internal/database"
	"github.com/taglens/taglens/internal/faces"
)

// Service coordinates the storage engine and the in-memory vector
// index. The engine is the source of truth; the index is a warm-path
// accelerator rebuilt on startup.
type Service struct {
	store  database.Store
	index  *database.VectorIndex
	logger zerolog.Logger
}

// New creates a service on top of the given storage engine.
func New(store database.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		index:  database.NewVectorIndex(),
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// WarmIndex rebuilds the vector index from the engine. Call once on
// startup; until then similarity search falls back to exact scans.
func (s *Service) WarmIndex(ctx context.Context) error {
	s.index.Reset()
	err := s.store.WalkVectors(ctx, func(mediaID, ownerID int64, embedding []float32) error {
		s.index.Add(mediaID, ownerID, embedding)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to warm vector index: %w", err)
	}
	s.index.MarkWarm()
	s.logger.Info().Int("vectors", s.index.Count()).Msg("vector index warmed")
	return nil
}

// Ingest validates and stores a new media record. Detected faces are
// assigned person tags against the owner's existing faces before the
// record is written; all derived structures commit atomically.
func (s *Service) Ingest(ctx context.Context, rec *database.MediaRecord, detections []database.FaceDetection) (*database.MediaRecord, error) {
	if err := validateRecord(rec); err != nil {
		return nil, err
	}
	if len(detections) > 0 && rec.Kind != database.KindPhoto {
		return nil, database.Invalid("faces", "only photos carry faces")
	}

	ingestID := uuid.NewString()
	log := s.logger.With().
		Str("ingest_id", ingestID).
		Int64("owner_id", rec.OwnerID).
		Str("kind", string(rec.Kind)).
		Logger()

	if len(detections) > 0 {
		known, err := s.store.ListKnownFaces(ctx, rec.OwnerID)
		if err != nil {
			return nil, err
		}
		rec.Photo.Faces = faces.NewTagger(known).Assign(detections)
		log.Debug().Int("faces", len(rec.Photo.Faces)).Msg("assigned face tags")
	}

	stored, err := s.store.InsertMedia(ctx, rec)
	if err != nil {
		log.Error().Err(err).Msg("ingest failed")
		return nil, err
	}

	if stored.Photo != nil && len(stored.Photo.Embedding) > 0 {
		s.index.Add(stored.ID, stored.OwnerID, stored.Photo.Embedding)
	}

	log.Info().Int64("media_id", stored.ID).Msg("media ingested")
	return stored, nil
}

// Get returns one record owned by ownerID, or database.ErrNotFound.
func (s *Service) Get(ctx context.Context, ownerID, mediaID int64) (*database.MediaRecord, error) {
	if ownerID <= 0 {
		return nil, database.Invalid("owner_id", "must be positive")
	}
	return s.store.GetMedia(ctx, ownerID, mediaID)
}

// List returns the owner's media sorted by the given field and order.
func (s *Service) List(ctx context.Context, ownerID int64, sortBy database.SortField, order database.SortOrder) ([]database.MediaRecord, error) {
	if ownerID <= 0 {
		return nil, database.Invalid("owner_id", "must be positive")
	}
	if sortBy != database.SortUploaded && sortBy != database.SortTaken {
		return nil, database.Invalid("sort", fmt.Sprintf("unknown sort field %q", sortBy))
	}
	if order != database.OrderAsc && order != database.OrderDesc {
		return nil, database.Invalid("order", fmt.Sprintf("unknown sort order %q", order))
	}
	return s.store.ListMedia(ctx, ownerID, sortBy, order)
}

// Delete removes a record and all its derived structures. The vector
// index entry goes away with it.
func (s *Service) Delete(ctx context.Context, ownerID, mediaID int64) error {
	if ownerID <= 0 {
		return database.Invalid("owner_id", "must be positive")
	}
	deleted, err := s.store.DeleteMedia(ctx, ownerID, mediaID)
	if err != nil {
		return err
	}
	if deleted {
		s.index.Delete(mediaID)
		s.logger.Info().Int64("owner_id", ownerID).Int64("media_id", mediaID).Msg("media deleted")
	}
	return nil
}

// Search returns ids of the owner's photos whose text fields match the
// query, best first.
func (s *Service) Search(ctx context.Context, ownerID int64, query string, limit int) ([]int64, error) {
	if ownerID <= 0 {
		return nil, database.Invalid("owner_id", "must be positive")
	}
	if query == "" {
		return nil, database.Invalid("query", "must not be empty")
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.SearchKeywords(ctx, ownerID, query, limit)
}

// Similar returns the owner's nearest caption vectors to the query
// embedding. The warm index answers when available, otherwise the
// engine scans exactly.
func (s *Service) Similar(ctx context.Context, ownerID int64, query []float32, k int) ([]database.Neighbor, error) {
	if ownerID <= 0 {
		return nil, database.Invalid("owner_id", "must be positive")
	}
	if len(query) != database.EmbeddingDim {
		return nil, database.Invalid("query vector",
			fmt.Sprintf("expected %d dimensions, got %d", database.EmbeddingDim, len(query)))
	}
	if k <= 0 {
		k = 10
	}

	if s.index.Ready() {
		return s.index.Nearest(ownerID, query, k), nil
	}
	return s.store.NearestVectors(ctx, ownerID, query, k)
}

// Stats returns the owner's media counters, zero-valued for owners
// with no media.
func (s *Service) Stats(ctx context.Context, ownerID int64) (*database.UserStats, error) {
	if ownerID <= 0 {
		return nil, database.Invalid("owner_id", "must be positive")
	}
	return s.store.GetStats(ctx, ownerID)
}

func validateRecord(rec *database.MediaRecord) error {
	if rec == nil {
		return database.Invalid("record", "must not be nil")
	}
	if rec.OwnerID <= 0 {
		return database.Invalid("owner_id", "must be positive")
	}
	if !rec.Kind.Valid() {
		return database.Invalid("kind", fmt.Sprintf("unknown media kind %q", rec.Kind))
	}
	if rec.FilePath == "" {
		return database.Invalid("file_path", "must not be empty")
	}
	if rec.SizeBytes < 0 {
		return database.Invalid("size_bytes", "must not be negative")
	}
	if rec.Kind == database.KindPhoto && rec.Photo == nil {
		return database.Invalid("photo", "photo record without photo details")
	}
	if rec.Kind == database.KindVideo && rec.Photo != nil {
		return database.Invalid("photo", "video record must not carry photo details")
	}
	if rec.Photo != nil && len(rec.Photo.Embedding) > 0 && len(rec.Photo.Embedding) != database.EmbeddingDim {
		return database.Invalid("embedding",
			fmt.Sprintf("expected %d dimensions, got %d", database.EmbeddingDim, len(rec.Photo.Embedding)))
	}
	return nil
}
