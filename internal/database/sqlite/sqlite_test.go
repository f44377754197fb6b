package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/taglens/taglens/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func embedding(hot int) []float32 {
	v := make([]float32, database.EmbeddingDim)
	v[hot] = 1
	return v
}

func photoRecord(ownerID int64, caption string) *database.MediaRecord {
	return &database.MediaRecord{
		OwnerID:   ownerID,
		Kind:      database.KindPhoto,
		FilePath:  "/photos/" + caption + ".jpg",
		SizeBytes: 1024,
		Photo: &database.PhotoDetails{
			Width:   800,
			Height:  600,
			Caption: caption,
		},
	}
}

func videoRecord(ownerID int64) *database.MediaRecord {
	return &database.MediaRecord{
		OwnerID:   ownerID,
		Kind:      database.KindVideo,
		FilePath:  "/videos/clip.mp4",
		SizeBytes: 4096,
	}
}

func TestInsertMedia_IdentitiesStartAtSixDigits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.InsertMedia(ctx, photoRecord(1, "first"))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if first.ID != 100000 {
		t.Errorf("expected first id 100000, got %d", first.ID)
	}

	second, err := s.InsertMedia(ctx, photoRecord(1, "second"))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if second.ID != first.ID+1 {
		t.Errorf("expected monotonic ids, got %d then %d", first.ID, second.ID)
	}
}

func TestInsertMedia_VariantValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertMedia(ctx, &database.MediaRecord{
		OwnerID: 1, Kind: database.KindPhoto, FilePath: "/p.jpg",
	})
	if !database.IsValidation(err) {
		t.Errorf("expected validation error for photo without details, got %v", err)
	}

	rec := videoRecord(1)
	rec.Photo = &database.PhotoDetails{}
	_, err = s.InsertMedia(ctx, rec)
	if !database.IsValidation(err) {
		t.Errorf("expected validation error for video with photo details, got %v", err)
	}
}

func TestInsertMedia_EmbeddingDimension(t *testing.T) {
	s := newTestStore(t)

	rec := photoRecord(1, "bad")
	rec.Photo.Embedding = []float32{1, 2, 3}
	_, err := s.InsertMedia(context.Background(), rec)
	if !database.IsValidation(err) {
		t.Errorf("expected validation error for wrong dimension, got %v", err)
	}
}

func TestGetMedia_TenantIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.InsertMedia(ctx, photoRecord(1, "mine"))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := s.GetMedia(ctx, 2, stored.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other owner, got %v", err)
	}
	if _, err := s.GetMedia(ctx, 1, stored.ID+999); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing id, got %v", err)
	}

	got, err := s.GetMedia(ctx, 1, stored.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Photo == nil || got.Photo.Caption != "mine" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestGetMedia_RoundTripsPhotoFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	taken := time.Date(2023, 6, 15, 12, 30, 0, 500000000, time.UTC)
	iso := 200
	fStop := 2.8
	rec := photoRecord(1, "full")
	rec.Photo.CameraMake = "Canon"
	rec.Photo.CameraModel = "EOS R5"
	rec.Photo.TakenAt = &taken
	rec.Photo.ISO = &iso
	rec.Photo.FStop = &fStop
	rec.Photo.Shutter = "1/250"
	rec.Photo.Location = database.Location{City: "Praha", Country: "CZ"}
	rec.Photo.OCRText = "EXIT"
	rec.Photo.Embedding = embedding(3)

	stored, err := s.InsertMedia(ctx, rec)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := s.GetMedia(ctx, 1, stored.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	p := got.Photo
	if p.CameraMake != "Canon" || p.CameraModel != "EOS R5" {
		t.Errorf("camera fields lost: %+v", p)
	}
	if p.TakenAt == nil || !p.TakenAt.Equal(taken) {
		t.Errorf("taken_at lost sub-second precision: %v", p.TakenAt)
	}
	if p.ISO == nil || *p.ISO != 200 {
		t.Errorf("iso lost: %v", p.ISO)
	}
	if p.FStop == nil || *p.FStop != 2.8 {
		t.Errorf("f_stop lost: %v", p.FStop)
	}
	if p.Location.City != "Praha" || p.Location.Country != "CZ" {
		t.Errorf("location lost: %+v", p.Location)
	}
	if len(p.Embedding) != database.EmbeddingDim || p.Embedding[3] != 1 {
		t.Errorf("embedding lost")
	}
}

func TestListMedia_TakenFallsBackToUploaded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := photoRecord(1, "older")
	olderTaken := base.Add(-48 * time.Hour)
	older.Photo.TakenAt = &olderTaken
	older.CreatedAt = base.Add(2 * time.Hour)

	noTaken := photoRecord(1, "notaken")
	noTaken.CreatedAt = base.Add(-24 * time.Hour)

	newer := photoRecord(1, "newer")
	newerTaken := base.Add(time.Hour)
	newer.Photo.TakenAt = &newerTaken
	newer.CreatedAt = base

	var ids [3]int64
	for i, rec := range []*database.MediaRecord{older, noTaken, newer} {
		stored, err := s.InsertMedia(ctx, rec)
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		ids[i] = stored.ID
	}

	records, err := s.ListMedia(ctx, 1, database.SortTaken, database.OrderAsc)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// older (taken base-48h), noTaken (created base-24h), newer (taken base+1h)
	want := []int64{ids[0], ids[1], ids[2]}
	for i, w := range want {
		if records[i].ID != w {
			t.Errorf("position %d: expected %d, got %d", i, w, records[i].ID)
		}
	}
}

func TestListMedia_DescendingAndTies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []int64
	for _, name := range []string{"a", "b", "c"} {
		rec := photoRecord(1, name)
		rec.CreatedAt = created
		stored, err := s.InsertMedia(ctx, rec)
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		ids = append(ids, stored.ID)
	}

	records, err := s.ListMedia(ctx, 1, database.SortUploaded, database.OrderDesc)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	// Equal timestamps: id ascending regardless of direction.
	for i, w := range ids {
		if records[i].ID != w {
			t.Errorf("position %d: expected %d, got %d", i, w, records[i].ID)
		}
	}
}

func TestListMedia_ScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertMedia(ctx, photoRecord(1, "mine")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := s.InsertMedia(ctx, photoRecord(2, "theirs")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	records, err := s.ListMedia(ctx, 1, database.SortUploaded, database.OrderAsc)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 || records[0].Photo.Caption != "mine" {
		t.Errorf("expected only owner 1's media, got %+v", records)
	}
}

func TestStats_CountersFollowInsertAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	photo, err := s.InsertMedia(ctx, photoRecord(1, "p"))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := s.InsertMedia(ctx, videoRecord(1)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	stats, err := s.GetStats(ctx, 1)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PhotoCount != 1 || stats.VideoCount != 1 {
		t.Errorf("expected 1/1, got %d/%d", stats.PhotoCount, stats.VideoCount)
	}

	if _, err := s.DeleteMedia(ctx, 1, photo.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	stats, err = s.GetStats(ctx, 1)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PhotoCount != 0 || stats.VideoCount != 1 {
		t.Errorf("expected 0/1 after delete, got %d/%d", stats.PhotoCount, stats.VideoCount)
	}
}

func TestGetStats_UnknownOwnerIsZero(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.GetStats(context.Background(), 404)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PhotoCount != 0 || stats.VideoCount != 0 {
		t.Errorf("expected zero counters, got %+v", stats)
	}
}

func TestDeleteMedia_CascadesAllStructures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := photoRecord(1, "sunset beach")
	rec.Photo.Embedding = embedding(0)
	rec.Photo.Faces = []database.FaceTag{
		{BBox: database.BBox{X: 1, Y: 1, W: 10, H: 10}, Tag: "person_1", Embedding: []float32{1, 0}},
	}
	stored, err := s.InsertMedia(ctx, rec)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	deleted, err := s.DeleteMedia(ctx, 1, stored.ID)
	if err != nil || !deleted {
		t.Fatalf("delete failed: %v", err)
	}

	if ids, _ := s.SearchKeywords(ctx, 1, "sunset", 10); len(ids) != 0 {
		t.Errorf("keyword entry survived delete: %v", ids)
	}
	if results, _ := s.NearestVectors(ctx, 1, embedding(0), 10); len(results) != 0 {
		t.Errorf("vector survived delete: %v", results)
	}
	if faces, _ := s.ListKnownFaces(ctx, 1); len(faces) != 0 {
		t.Errorf("faces survived delete: %v", faces)
	}
}

func TestDeleteMedia_WrongOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stored, err := s.InsertMedia(ctx, photoRecord(1, "mine"))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := s.DeleteMedia(ctx, 2, stored.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	// The record must be untouched.
	if _, err := s.GetMedia(ctx, 1, stored.ID); err != nil {
		t.Errorf("record vanished after failed delete: %v", err)
	}
}

func TestInsertMedia_AtomicOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, step := range []string{"metadata", "keywords"} {
		s.insertFault = func(at string) error {
			if at == step {
				return errors.New("injected failure")
			}
			return nil
		}

		rec := photoRecord(1, "doomed")
		rec.Photo.Embedding = embedding(0)
		if _, err := s.InsertMedia(ctx, rec); err == nil {
			t.Fatalf("step %s: expected insert to fail", step)
		}

		s.insertFault = nil

		records, err := s.ListMedia(ctx, 1, database.SortUploaded, database.OrderAsc)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("step %s: metadata row survived rollback", step)
		}
		if ids, _ := s.SearchKeywords(ctx, 1, "doomed", 10); len(ids) != 0 {
			t.Errorf("step %s: keyword entry survived rollback", step)
		}
		if count, _ := s.CountVectors(ctx); count != 0 {
			t.Errorf("step %s: vector survived rollback", step)
		}
		stats, _ := s.GetStats(ctx, 1)
		if stats.PhotoCount != 0 {
			t.Errorf("step %s: stats bumped despite rollback", step)
		}
	}
}

func TestSearchKeywords_RanksAndScopes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	both := photoRecord(1, "beach sunset")
	one := photoRecord(1, "beach towel")
	other := photoRecord(2, "beach sunset")

	bothStored, err := s.InsertMedia(ctx, both)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	oneStored, err := s.InsertMedia(ctx, one)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := s.InsertMedia(ctx, other); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	ids, err := s.SearchKeywords(ctx, 1, "sunset beach", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 results, got %v", ids)
	}
	if ids[0] != bothStored.ID || ids[1] != oneStored.ID {
		t.Errorf("expected [%d %d], got %v", bothStored.ID, oneStored.ID, ids)
	}
}

func TestSearchKeywords_MatchesLocationAndOCR(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := photoRecord(1, "")
	rec.Photo.Location = database.Location{City: "Brno", Country: "Czechia"}
	rec.Photo.OCRText = "NO PARKING"
	stored, err := s.InsertMedia(ctx, rec)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	for _, query := range []string{"brno", "parking"} {
		ids, err := s.SearchKeywords(ctx, 1, query, 10)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != stored.ID {
			t.Errorf("query %q: expected [%d], got %v", query, stored.ID, ids)
		}
	}
}

func TestNearestVectors_ExactRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := photoRecord(1, "target")
	rec.Photo.Embedding = embedding(5)
	stored, err := s.InsertMedia(ctx, rec)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	far := photoRecord(1, "far")
	far.Photo.Embedding = embedding(9)
	if _, err := s.InsertMedia(ctx, far); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	results, err := s.NearestVectors(ctx, 1, embedding(5), 1)
	if err != nil {
		t.Fatalf("nearest failed: %v", err)
	}
	if len(results) != 1 || results[0].MediaID != stored.ID {
		t.Fatalf("expected [%d], got %v", stored.ID, results)
	}
	if results[0].Score < 0.999 {
		t.Errorf("expected similarity ~1.0, got %f", results[0].Score)
	}
}

func TestNearestVectors_QueryDimension(t *testing.T) {
	s := newTestStore(t)

	_, err := s.NearestVectors(context.Background(), 1, []float32{1, 2}, 5)
	if !database.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestListKnownFaces_PreservesOrderAndEmbedding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := photoRecord(1, "group")
	rec.Photo.Faces = []database.FaceTag{
		{BBox: database.BBox{X: 1, Y: 2, W: 3, H: 4}, Tag: "person_1", Embedding: []float32{1, 0}},
		{BBox: database.BBox{X: 5, Y: 6, W: 7, H: 8}, Tag: "person_2", Embedding: []float32{0, 1}},
	}
	if _, err := s.InsertMedia(ctx, rec); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	faces, err := s.ListKnownFaces(ctx, 1)
	if err != nil {
		t.Fatalf("list faces failed: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}
	if faces[0].Tag != "person_1" || faces[1].Tag != "person_2" {
		t.Errorf("face order lost: %+v", faces)
	}
	if faces[0].Embedding[0] != 1 || faces[1].Embedding[1] != 1 {
		t.Errorf("face embeddings lost: %+v", faces)
	}
}

func TestWalkVectors_VisitsEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for owner := int64(1); owner <= 2; owner++ {
		rec := photoRecord(owner, "walk")
		rec.Photo.Embedding = embedding(int(owner))
		if _, err := s.InsertMedia(ctx, rec); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	visited := 0
	err := s.WalkVectors(ctx, func(mediaID, ownerID int64, emb []float32) error {
		if len(emb) != database.EmbeddingDim {
			t.Errorf("media %d: bad dimension %d", mediaID, len(emb))
		}
		visited++
		return nil
	})
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	if visited != 2 {
		t.Errorf("expected 2 vectors, visited %d", visited)
	}

	count, err := s.CountVectors(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestInsertMedia_VideoSkipsDerivedStructures(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertMedia(ctx, videoRecord(1)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if ids, _ := s.SearchKeywords(ctx, 1, "clip", 10); len(ids) != 0 {
		t.Errorf("video leaked into keyword index: %v", ids)
	}
	if count, _ := s.CountVectors(ctx); count != 0 {
		t.Errorf("video leaked into vector index: %d", count)
	}
}
