// Package postgres is the server storage engine. It mirrors the
// sqlite engine's contract on PostgreSQL, using pgvector for caption
// vectors and the built-in text search for keyword ranking.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/taglens/taglens/internal/config"
	"github.com/taglens/taglens/internal/database"
)

// Store implements database.Store on a PostgreSQL database.
type Store struct {
	db  *sql.DB
	dim int
}

// Open connects to PostgreSQL and runs migrations.
func Open(cfg *config.DatabaseConfig) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dim: database.EmbeddingDim}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS media (
			id           BIGSERIAL PRIMARY KEY,
			owner_id     BIGINT NOT NULL,
			kind         VARCHAR(16) NOT NULL CHECK (kind IN ('photo', 'video')),
			file_path    TEXT NOT NULL,
			size_bytes   BIGINT NOT NULL,
			width        INTEGER,
			height       INTEGER,
			camera_make  TEXT,
			camera_model TEXT,
			taken_at     TIMESTAMP WITH TIME ZONE,
			iso          INTEGER,
			f_stop       DOUBLE PRECISION,
			shutter      TEXT,
			focal_length DOUBLE PRECISION,
			latitude     DOUBLE PRECISION,
			longitude    DOUBLE PRECISION,
			loc_description TEXT,
			loc_city     TEXT,
			loc_state    TEXT,
			loc_country  TEXT,
			caption      TEXT,
			ocr_text     TEXT,
			created_at   TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_media_owner ON media(owner_id)`,
		`CREATE TABLE IF NOT EXISTS media_keywords (
			media_id     BIGINT PRIMARY KEY REFERENCES media(id),
			owner_id     BIGINT NOT NULL,
			loc_description TEXT,
			loc_city     TEXT,
			loc_state    TEXT,
			loc_country  TEXT,
			caption      TEXT,
			ocr_text     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_keywords_owner ON media_keywords(owner_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS media_vectors (
			media_id     BIGINT PRIMARY KEY REFERENCES media(id),
			owner_id     BIGINT NOT NULL,
			dim          INTEGER NOT NULL,
			embedding    vector(%d) NOT NULL
		)`, s.dim),
		`CREATE INDEX IF NOT EXISTS idx_vectors_owner ON media_vectors(owner_id)`,
		`CREATE TABLE IF NOT EXISTS media_faces (
			media_id     BIGINT NOT NULL REFERENCES media(id),
			face_index   INTEGER NOT NULL,
			owner_id     BIGINT NOT NULL,
			x            INTEGER NOT NULL,
			y            INTEGER NOT NULL,
			w            INTEGER NOT NULL,
			h            INTEGER NOT NULL,
			tag          TEXT NOT NULL,
			embedding    BYTEA NOT NULL,
			PRIMARY KEY (media_id, face_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_faces_owner ON media_faces(owner_id)`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			owner_id     BIGINT PRIMARY KEY,
			photo_count  BIGINT NOT NULL DEFAULT 0,
			video_count  BIGINT NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	// Identities start at 100000, matching the embedded engine.
	// GREATEST keeps re-migration from rewinding a live sequence.
	_, err := s.db.ExecContext(ctx,
		`SELECT setval('media_id_seq', GREATEST((SELECT last_value FROM media_id_seq), 99999), true)`)
	if err != nil {
		return fmt.Errorf("failed to seed identity sequence: %w", err)
	}
	return nil
}

// CreateVectorIndex creates the IVFFlat index for similarity search.
// Call after the table has some data for sensible list centroids.
func (s *Store) CreateVectorIndex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS media_vectors_embedding_idx
		ON media_vectors USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
