package database

import (
	"context"
)

// Store is the persistence contract shared by the storage engines.
//
// InsertMedia and DeleteMedia span all four synchronized structures
// (metadata table, keyword index, vector index, owner stats) inside a
// single transaction: either every effect is visible or none are. The
// original system left this to engine triggers; here the boundary is
// explicit in the contract.
type Store interface {
	// InsertMedia assigns the next identity, persists the record, and
	// inside the same transaction writes the keyword entry (photos
	// only), the caption vector (photos with embeddings), the face
	// rows, and bumps the owner's counter. Returns the record with
	// its identity populated.
	InsertMedia(ctx context.Context, rec *MediaRecord) (*MediaRecord, error)

	// GetMedia returns the record, or ErrNotFound if it does not exist
	// or is owned by someone else.
	GetMedia(ctx context.Context, ownerID, mediaID int64) (*MediaRecord, error)

	// ListMedia returns the owner's records sorted by the given field.
	// Records without a taken-at timestamp sort by their upload time;
	// ties break by identity ascending.
	ListMedia(ctx context.Context, ownerID int64, sortBy SortField, order SortOrder) ([]MediaRecord, error)

	// DeleteMedia removes the record and, in the same transaction, its
	// keyword entry, vector, faces, and decrements the owner's
	// counter. Returns false (with ErrNotFound) when nothing matched.
	DeleteMedia(ctx context.Context, ownerID, mediaID int64) (bool, error)

	// SearchKeywords ranks the owner's keyword entries against the
	// query text. Ranking is deterministic for a fixed corpus and
	// query; ties break by identity ascending.
	SearchKeywords(ctx context.Context, ownerID int64, query string, limit int) ([]int64, error)

	// NearestVectors returns up to k of the owner's vectors ranked by
	// cosine similarity to the query, ties by identity ascending.
	NearestVectors(ctx context.Context, ownerID int64, query []float32, k int) ([]Neighbor, error)

	// ListKnownFaces returns every stored (tag, embedding) pair for
	// the owner, in insertion order.
	ListKnownFaces(ctx context.Context, ownerID int64) ([]KnownFace, error)

	// CountVectors returns the total number of stored caption vectors.
	CountVectors(ctx context.Context) (int, error)

	// WalkVectors streams every stored caption vector, used to rebuild
	// the in-memory index.
	WalkVectors(ctx context.Context, fn func(mediaID, ownerID int64, embedding []float32) error) error

	// GetStats returns the owner's counters, zero-valued when the
	// owner has never uploaded anything.
	GetStats(ctx context.Context, ownerID int64) (*UserStats, error)

	Close() error
}
