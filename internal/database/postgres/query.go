package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/taglens/taglens/internal/database"
)

// rowLimit maps "no limit" (k <= 0) to a NULL LIMIT.
func rowLimit(k int) any {
	if k <= 0 {
		return nil
	}
	return k
}

// SearchKeywords ranks the owner's keyword entries against the query
// using the built-in full text search. The 'simple' configuration skips
// language stemming so results stay deterministic across locales.
func (s *Store) SearchKeywords(ctx context.Context, ownerID int64, query string, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT media_id FROM media_keywords
		WHERE owner_id = $1
		  AND to_tsvector('simple', concat_ws(' ',
			loc_description, loc_city, loc_state, loc_country, caption, ocr_text))
			@@ plainto_tsquery('simple', $2)
		ORDER BY ts_rank(
			to_tsvector('simple', concat_ws(' ',
				loc_description, loc_city, loc_state, loc_country, caption, ocr_text)),
			plainto_tsquery('simple', $2)) DESC, media_id ASC
		LIMIT $3`, ownerID, query, rowLimit(limit))
	if err != nil {
		return nil, database.Storage("search keywords", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, database.Storage("search keywords", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NearestVectors ranks the owner's caption vectors by cosine
// similarity using the pgvector distance operator, ties by id.
func (s *Store) NearestVectors(ctx context.Context, ownerID int64, query []float32, k int) ([]database.Neighbor, error) {
	if len(query) != s.dim {
		return nil, database.Invalid("query vector",
			fmt.Sprintf("expected %d dimensions, got %d", s.dim, len(query)))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT media_id, 1 - (embedding <=> $1) AS score
		FROM media_vectors
		WHERE owner_id = $2
		ORDER BY embedding <=> $1 ASC, media_id ASC
		LIMIT $3`,
		pgvector.NewVector(query), ownerID, rowLimit(k))
	if err != nil {
		return nil, database.Storage("nearest vectors", err)
	}
	defer rows.Close()

	var results []database.Neighbor
	for rows.Next() {
		var n database.Neighbor
		if err := rows.Scan(&n.MediaID, &n.Score); err != nil {
			return nil, database.Storage("nearest vectors", err)
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

// ListKnownFaces returns the owner's stored (tag, embedding) pairs in
// insertion order.
func (s *Store) ListKnownFaces(ctx context.Context, ownerID int64) ([]database.KnownFace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, embedding FROM media_faces
		WHERE owner_id = $1 ORDER BY media_id ASC, face_index ASC`, ownerID)
	if err != nil {
		return nil, database.Storage("list faces", err)
	}
	defer rows.Close()

	var faces []database.KnownFace
	for rows.Next() {
		var face database.KnownFace
		var blob []byte
		if err := rows.Scan(&face.Tag, &blob); err != nil {
			return nil, database.Storage("list faces", err)
		}
		face.Embedding = database.DecodeVector(blob)
		faces = append(faces, face)
	}
	return faces, rows.Err()
}

// CountVectors returns the number of stored caption vectors.
func (s *Store) CountVectors(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_vectors`).Scan(&count); err != nil {
		return 0, database.Storage("count vectors", err)
	}
	return count, nil
}

// WalkVectors streams every stored caption vector.
func (s *Store) WalkVectors(ctx context.Context, fn func(mediaID, ownerID int64, embedding []float32) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT media_id, owner_id, embedding FROM media_vectors ORDER BY media_id ASC`)
	if err != nil {
		return database.Storage("walk vectors", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mediaID, ownerID int64
		var vec pgvector.Vector
		if err := rows.Scan(&mediaID, &ownerID, &vec); err != nil {
			return database.Storage("walk vectors", err)
		}
		if err := fn(mediaID, ownerID, vec.Slice()); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetStats returns the owner's counters, zero-valued for unknown
// owners.
func (s *Store) GetStats(ctx context.Context, ownerID int64) (*database.UserStats, error) {
	stats := &database.UserStats{OwnerID: ownerID}
	err := s.db.QueryRowContext(ctx,
		`SELECT photo_count, video_count FROM user_stats WHERE owner_id = $1`,
		ownerID,
	).Scan(&stats.PhotoCount, &stats.VideoCount)
	if err != nil && !isNoRows(err) {
		return nil, database.Storage("get stats", err)
	}
	return stats, nil
}
