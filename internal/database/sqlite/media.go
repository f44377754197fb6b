package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taglens/taglens/internal/database"
)

const mediaColumns = `id, owner_id, kind, file_path, size_bytes,
	width, height, camera_make, camera_model, taken_at,
	iso, f_stop, shutter, focal_length, latitude, longitude,
	loc_description, loc_city, loc_state, loc_country,
	caption, ocr_text, created_at`

// InsertMedia persists the record and its derived structures as one
// transaction. See database.Store.
func (s *Store) InsertMedia(ctx context.Context, rec *database.MediaRecord) (*database.MediaRecord, error) {
	if rec.Kind == database.KindPhoto && rec.Photo == nil {
		return nil, database.Invalid("photo", "photo record without photo details")
	}
	if rec.Kind == database.KindVideo && rec.Photo != nil {
		return nil, database.Invalid("photo", "video record must not carry photo details")
	}
	if rec.Photo != nil && len(rec.Photo.Embedding) > 0 && len(rec.Photo.Embedding) != s.dim {
		return nil, database.Invalid("embedding",
			fmt.Sprintf("expected %d dimensions, got %d", s.dim, len(rec.Photo.Embedding)))
	}

	out := *rec
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id, err := s.insertTx(ctx, tx, &out)
	if err != nil {
		return nil, err
	}
	out.ID = id

	if err := tx.Commit(); err != nil {
		return nil, database.Storage("insert media", err)
	}
	return &out, nil
}

func (s *Store) insertTx(ctx context.Context, tx *sql.Tx, rec *database.MediaRecord) (int64, error) {
	p := rec.Photo
	if p == nil {
		p = &database.PhotoDetails{}
	}

	var takenAt any
	if p.TakenAt != nil {
		takenAt = p.TakenAt.UTC().UnixNano()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO media (
			owner_id, kind, file_path, size_bytes,
			width, height, camera_make, camera_model, taken_at,
			iso, f_stop, shutter, focal_length, latitude, longitude,
			loc_description, loc_city, loc_state, loc_country,
			caption, ocr_text, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.OwnerID, string(rec.Kind), rec.FilePath, rec.SizeBytes,
		zeroNull(p.Width), zeroNull(p.Height), emptyNull(p.CameraMake), emptyNull(p.CameraModel), takenAt,
		intPtr(p.ISO), floatPtr(p.FStop), emptyNull(p.Shutter), floatPtr(p.FocalLength),
		floatPtr(p.Latitude), floatPtr(p.Longitude),
		emptyNull(p.Location.Description), emptyNull(p.Location.City),
		emptyNull(p.Location.State), emptyNull(p.Location.Country),
		emptyNull(p.Caption), emptyNull(p.OCRText),
		rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return 0, database.Storage("insert media", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, database.Storage("insert media", err)
	}

	if err := s.fault("metadata"); err != nil {
		return 0, database.Storage("insert media", err)
	}

	if rec.Kind == database.KindPhoto {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO media_keywords (
				media_id, owner_id, loc_description, loc_city,
				loc_state, loc_country, caption, ocr_text
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, rec.OwnerID,
			p.Location.Description, p.Location.City, p.Location.State, p.Location.Country,
			p.Caption, p.OCRText,
		)
		if err != nil {
			return 0, database.Storage("insert keywords", err)
		}
	}

	if err := s.fault("keywords"); err != nil {
		return 0, database.Storage("insert keywords", err)
	}

	if rec.Kind == database.KindPhoto && len(p.Embedding) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO media_vectors (media_id, owner_id, dim, embedding)
			VALUES (?, ?, ?, ?)`,
			id, rec.OwnerID, len(p.Embedding), encodeVector(p.Embedding),
		)
		if err != nil {
			return 0, database.Storage("insert vector", err)
		}
	}

	for i, face := range p.Faces {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO media_faces (media_id, face_index, owner_id, x, y, w, h, tag, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, rec.OwnerID,
			face.BBox.X, face.BBox.Y, face.BBox.W, face.BBox.H,
			face.Tag, encodeVector(face.Embedding),
		)
		if err != nil {
			return 0, database.Storage("insert faces", err)
		}
	}

	photoInc, videoInc := 0, 1
	if rec.Kind == database.KindPhoto {
		photoInc, videoInc = 1, 0
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_stats (owner_id, photo_count, video_count)
		VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			photo_count = photo_count + excluded.photo_count,
			video_count = video_count + excluded.video_count`,
		rec.OwnerID, photoInc, videoInc,
	)
	if err != nil {
		return 0, database.Storage("bump stats", err)
	}

	return id, nil
}

func (s *Store) fault(step string) error {
	if s.insertFault == nil {
		return nil
	}
	return s.insertFault(step)
}

// GetMedia returns the record, or ErrNotFound for a missing id or a
// different owner.
func (s *Store) GetMedia(ctx context.Context, ownerID, mediaID int64) (*database.MediaRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = ? AND owner_id = ?`,
		mediaID, ownerID,
	)
	rec, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, database.Storage("get media", err)
	}

	if rec.Photo != nil {
		faces, err := s.facesFor(ctx, mediaID)
		if err != nil {
			return nil, err
		}
		rec.Photo.Faces = faces

		emb, err := s.vectorFor(ctx, mediaID)
		if err != nil {
			return nil, err
		}
		rec.Photo.Embedding = emb
	}
	return rec, nil
}

// ListMedia returns the owner's records sorted by the given field,
// missing taken-at falling back to the upload time, ties by id.
func (s *Store) ListMedia(ctx context.Context, ownerID int64, sortBy database.SortField, order database.SortOrder) ([]database.MediaRecord, error) {
	sortExpr := "created_at"
	if sortBy == database.SortTaken {
		sortExpr = "COALESCE(taken_at, created_at)"
	}
	dir := "ASC"
	if order == database.OrderDesc {
		dir = "DESC"
	}

	query := fmt.Sprintf(
		`SELECT `+mediaColumns+` FROM media WHERE owner_id = ? ORDER BY %s %s, id ASC`,
		sortExpr, dir,
	)
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, database.Storage("list media", err)
	}
	defer rows.Close()

	var records []database.MediaRecord
	for rows.Next() {
		rec, err := scanMedia(rows)
		if err != nil {
			return nil, database.Storage("list media", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Storage("list media", err)
	}

	if err := s.attachFaces(ctx, ownerID, records); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteMedia removes the record and its keyword entry, vector, faces,
// and stats contribution in one transaction.
func (s *Store) DeleteMedia(ctx context.Context, ownerID, mediaID int64) (bool, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var kind string
	err = tx.QueryRowContext(ctx,
		`SELECT kind FROM media WHERE id = ? AND owner_id = ?`,
		mediaID, ownerID,
	).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return false, database.ErrNotFound
	}
	if err != nil {
		return false, database.Storage("delete media", err)
	}

	for _, stmt := range []string{
		`DELETE FROM media_faces WHERE media_id = ?`,
		`DELETE FROM media_vectors WHERE media_id = ?`,
		`DELETE FROM media_keywords WHERE media_id = ?`,
		`DELETE FROM media WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, mediaID); err != nil {
			return false, database.Storage("delete media", err)
		}
	}

	counter := "video_count"
	if kind == string(database.KindPhoto) {
		counter = "photo_count"
	}
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE user_stats SET %s = %s - 1 WHERE owner_id = ?`, counter, counter),
		ownerID,
	)
	if err != nil {
		return false, database.Storage("decrement stats", err)
	}

	if err := tx.Commit(); err != nil {
		return false, database.Storage("delete media", err)
	}
	return true, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMedia(row scanner) (*database.MediaRecord, error) {
	var (
		rec       database.MediaRecord
		kind      string
		createdAt int64
		takenAt   sql.NullInt64
		width     sql.NullInt64
		height    sql.NullInt64
		camMake   sql.NullString
		camModel  sql.NullString
		iso       sql.NullInt64
		fStop     sql.NullFloat64
		shutter   sql.NullString
		focal     sql.NullFloat64
		lat       sql.NullFloat64
		lon       sql.NullFloat64
		locDesc   sql.NullString
		locCity   sql.NullString
		locState  sql.NullString
		locCtry   sql.NullString
		caption   sql.NullString
		ocrText   sql.NullString
	)

	err := row.Scan(
		&rec.ID, &rec.OwnerID, &kind, &rec.FilePath, &rec.SizeBytes,
		&width, &height, &camMake, &camModel, &takenAt,
		&iso, &fStop, &shutter, &focal, &lat, &lon,
		&locDesc, &locCity, &locState, &locCtry,
		&caption, &ocrText, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = database.Kind(kind)
	rec.CreatedAt = nanosToTime(createdAt)

	if rec.Kind == database.KindPhoto {
		p := &database.PhotoDetails{
			Width:       int(width.Int64),
			Height:      int(height.Int64),
			CameraMake:  camMake.String,
			CameraModel: camModel.String,
			Shutter:     shutter.String,
			Location: database.Location{
				Description: locDesc.String,
				City:        locCity.String,
				State:       locState.String,
				Country:     locCtry.String,
			},
			Caption: caption.String,
			OCRText: ocrText.String,
		}
		if takenAt.Valid {
			t := nanosToTime(takenAt.Int64)
			p.TakenAt = &t
		}
		if iso.Valid {
			v := int(iso.Int64)
			p.ISO = &v
		}
		if fStop.Valid {
			p.FStop = &fStop.Float64
		}
		if focal.Valid {
			p.FocalLength = &focal.Float64
		}
		if lat.Valid {
			p.Latitude = &lat.Float64
		}
		if lon.Valid {
			p.Longitude = &lon.Float64
		}
		rec.Photo = p
	}
	return &rec, nil
}

func (s *Store) facesFor(ctx context.Context, mediaID int64) ([]database.FaceTag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT x, y, w, h, tag, embedding FROM media_faces
		WHERE media_id = ? ORDER BY face_index ASC`, mediaID)
	if err != nil {
		return nil, database.Storage("load faces", err)
	}
	defer rows.Close()

	var faces []database.FaceTag
	for rows.Next() {
		var face database.FaceTag
		var blob []byte
		if err := rows.Scan(&face.BBox.X, &face.BBox.Y, &face.BBox.W, &face.BBox.H, &face.Tag, &blob); err != nil {
			return nil, database.Storage("load faces", err)
		}
		face.Embedding = decodeVector(blob)
		faces = append(faces, face)
	}
	return faces, rows.Err()
}

func (s *Store) vectorFor(ctx context.Context, mediaID int64) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding FROM media_vectors WHERE media_id = ?`, mediaID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.Storage("load vector", err)
	}
	return decodeVector(blob), nil
}

// attachFaces loads every face row of the owner in one query and
// distributes them across the listed records.
func (s *Store) attachFaces(ctx context.Context, ownerID int64, records []database.MediaRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT media_id, x, y, w, h, tag, embedding FROM media_faces
		WHERE owner_id = ? ORDER BY media_id ASC, face_index ASC`, ownerID)
	if err != nil {
		return database.Storage("load faces", err)
	}
	defer rows.Close()

	byMedia := make(map[int64][]database.FaceTag)
	for rows.Next() {
		var mediaID int64
		var face database.FaceTag
		var blob []byte
		if err := rows.Scan(&mediaID, &face.BBox.X, &face.BBox.Y, &face.BBox.W, &face.BBox.H, &face.Tag, &blob); err != nil {
			return database.Storage("load faces", err)
		}
		face.Embedding = decodeVector(blob)
		byMedia[mediaID] = append(byMedia[mediaID], face)
	}
	if err := rows.Err(); err != nil {
		return database.Storage("load faces", err)
	}

	for i := range records {
		if records[i].Photo != nil {
			records[i].Photo.Faces = byMedia[records[i].ID]
		}
	}
	return nil
}

func zeroNull(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func emptyNull(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func intPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
