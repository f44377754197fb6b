package sqlite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/taglens/taglens/internal/database"
	"github.com/taglens/taglens/internal/keywords"
)

// SearchKeywords ranks the owner's keyword entries against the query
// with deterministic term-overlap scoring.
func (s *Store) SearchKeywords(ctx context.Context, ownerID int64, query string, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT media_id, loc_description, loc_city, loc_state, loc_country, caption, ocr_text
		FROM media_keywords WHERE owner_id = ? ORDER BY media_id ASC`, ownerID)
	if err != nil {
		return nil, database.Storage("search keywords", err)
	}
	defer rows.Close()

	var docs []keywords.Document
	for rows.Next() {
		var id int64
		fields := make([]string, 6)
		dests := make([]any, 0, 7)
		dests = append(dests, &id)
		for i := range fields {
			dests = append(dests, &fields[i])
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, database.Storage("search keywords", err)
		}
		docs = append(docs, keywords.Document{ID: id, Text: strings.Join(fields, " ")})
	}
	if err := rows.Err(); err != nil {
		return nil, database.Storage("search keywords", err)
	}

	return keywords.Rank(query, docs, limit), nil
}

// NearestVectors scans the owner's caption vectors and ranks them by
// exact cosine similarity, ties by id ascending.
func (s *Store) NearestVectors(ctx context.Context, ownerID int64, query []float32, k int) ([]database.Neighbor, error) {
	if len(query) != s.dim {
		return nil, database.Invalid("query vector",
			fmt.Sprintf("expected %d dimensions, got %d", s.dim, len(query)))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT media_id, embedding FROM media_vectors WHERE owner_id = ? ORDER BY media_id ASC`,
		ownerID)
	if err != nil {
		return nil, database.Storage("nearest vectors", err)
	}
	defer rows.Close()

	var results []database.Neighbor
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, database.Storage("nearest vectors", err)
		}
		results = append(results, database.Neighbor{
			MediaID: id,
			Score:   database.CosineSimilarity(query, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, database.Storage("nearest vectors", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].MediaID < results[j].MediaID
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// ListKnownFaces returns the owner's stored (tag, embedding) pairs in
// insertion order.
func (s *Store) ListKnownFaces(ctx context.Context, ownerID int64) ([]database.KnownFace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, embedding FROM media_faces
		WHERE owner_id = ? ORDER BY media_id ASC, face_index ASC`, ownerID)
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
		face.Embedding = decodeVector(blob)
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
		var blob []byte
		if err := rows.Scan(&mediaID, &ownerID, &blob); err != nil {
			return database.Storage("walk vectors", err)
		}
		if err := fn(mediaID, ownerID, decodeVector(blob)); err != nil {
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
		`SELECT photo_count, video_count FROM user_stats WHERE owner_id = ?`,
		ownerID,
	).Scan(&stats.PhotoCount, &stats.VideoCount)
	if err != nil && !isNoRows(err) {
		return nil, database.Storage("get stats", err)
	}
	return stats, nil
}
