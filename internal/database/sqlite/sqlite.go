// Package sqlite is the embedded storage engine. All four synchronized
// structures (media metadata, keyword entries, caption vectors, owner
// stats) live in one database file and every logical write runs inside
// a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/taglens/taglens/internal/database"
)

// Store implements database.Store on a SQLite file.
type Store struct {
	db  *sql.DB
	dim int

	// insertFault injects a failure between transaction steps in
	// tests; nil in production.
	insertFault func(step string) error
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Foreign keys are disabled by default in SQLite.
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// A single writer connection sidesteps SQLITE_BUSY under
	// concurrent ingestion; readers share it.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dim: database.EmbeddingDim}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema. Idempotent.
func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS media (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id     INTEGER NOT NULL,
			kind         TEXT NOT NULL CHECK (kind IN ('photo', 'video')),
			file_path    TEXT NOT NULL,
			size_bytes   INTEGER NOT NULL,
			width        INTEGER,
			height       INTEGER,
			camera_make  TEXT,
			camera_model TEXT,
			taken_at     INTEGER,
			iso          INTEGER,
			f_stop       REAL,
			shutter      TEXT,
			focal_length REAL,
			latitude     REAL,
			longitude    REAL,
			loc_description TEXT,
			loc_city     TEXT,
			loc_state    TEXT,
			loc_country  TEXT,
			caption      TEXT,
			ocr_text     TEXT,
			created_at   INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_media_owner ON media(owner_id);`,
		`CREATE TABLE IF NOT EXISTS media_keywords (
			media_id     INTEGER PRIMARY KEY REFERENCES media(id),
			owner_id     INTEGER NOT NULL,
			loc_description TEXT,
			loc_city     TEXT,
			loc_state    TEXT,
			loc_country  TEXT,
			caption      TEXT,
			ocr_text     TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_keywords_owner ON media_keywords(owner_id);`,
		`CREATE TABLE IF NOT EXISTS media_vectors (
			media_id     INTEGER PRIMARY KEY REFERENCES media(id),
			owner_id     INTEGER NOT NULL,
			dim          INTEGER NOT NULL,
			embedding    BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_vectors_owner ON media_vectors(owner_id);`,
		`CREATE TABLE IF NOT EXISTS media_faces (
			media_id     INTEGER NOT NULL REFERENCES media(id),
			face_index   INTEGER NOT NULL,
			owner_id     INTEGER NOT NULL,
			x            INTEGER NOT NULL,
			y            INTEGER NOT NULL,
			w            INTEGER NOT NULL,
			h            INTEGER NOT NULL,
			tag          TEXT NOT NULL,
			embedding    BLOB NOT NULL,
			PRIMARY KEY (media_id, face_index)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_faces_owner ON media_faces(owner_id);`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			owner_id     INTEGER PRIMARY KEY,
			photo_count  INTEGER NOT NULL DEFAULT 0,
			video_count  INTEGER NOT NULL DEFAULT 0
		);`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	// Identities start at 100000: seed the hidden sqlite_sequence
	// table so the first AUTOINCREMENT value is six digits.
	_, err := s.db.Exec(`
		INSERT INTO sqlite_sequence (name, seq)
		SELECT 'media', 99999
		WHERE NOT EXISTS (SELECT 1 FROM sqlite_sequence WHERE name = 'media');
	`)
	if err != nil {
		return fmt.Errorf("failed to seed identity sequence: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	return database.EncodeVector(v)
}

func decodeVector(buf []byte) []float32 {
	return database.DecodeVector(buf)
}

func nanosToTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// begin starts a write transaction bound to ctx.
func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, database.Storage("begin", err)
	}
	return tx, nil
}
