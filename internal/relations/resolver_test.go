package relations

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"destravate-api/internal/database"
	"destravate-api/internal/model"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func insertTestTrack(t *testing.T, db *database.DB, id int64, length float64) *model.Track {
	t.Helper()

	track := &model.Track{
		ID:              id,
		Name:            "Pista",
		BeginningCoords: model.Coordinates{40, -3},
		EndingCoords:    model.Coordinates{41, -4},
		Length:          length,
		Slope:           1,
		ActivityType:    model.ActivityRun,
	}
	if err := db.InsertTrack(track); err != nil {
		t.Fatalf("Failed to insert track: %v", err)
	}
	return track
}

func insertTestUser(t *testing.T, db *database.DB, id string) *model.User {
	t.Helper()

	user := &model.User{
		ID:           id,
		Name:         id,
		ActivityType: model.ActivityRun,
	}
	if err := db.InsertUser(user); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	return user
}

func TestResolveTracksDedupPreservesOrder(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	first := insertTestTrack(t, db, 101, 5)
	second := insertTestTrack(t, db, 202, 8)

	handles, err := r.ResolveTracks([]int64{202, 101, 202, 101}, "La ruta %d no existe")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(handles) != 2 {
		t.Fatalf("Expected 2 handles after dedup, got %d", len(handles))
	}
	if handles[0] != second.Handle || handles[1] != first.Handle {
		t.Errorf("Expected first-occurrence order [%s %s], got %v", second.Handle, first.Handle, handles)
	}
}

func TestResolveTracksPositionalMiss(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	insertTestTrack(t, db, 101, 5)

	// Position counts over the deduplicated list: [101, 202] puts the
	// miss at index 1
	_, err := r.ResolveTracks([]int64{101, 101, 202}, "La ruta %d de la prueba no existe")
	if err == nil {
		t.Fatal("Expected an error for the missing track")
	}

	var refErr *ReferenceNotFoundError
	if !errors.As(err, &refErr) {
		t.Fatalf("Expected ReferenceNotFoundError, got %T", err)
	}
	if refErr.Position != 1 {
		t.Errorf("Expected position 1, got %d", refErr.Position)
	}
	if refErr.Error() != "La ruta 1 de la prueba no existe" {
		t.Errorf("Unexpected message: %s", refErr.Error())
	}
}

func TestResolveUsers(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	user := insertTestUser(t, db, "ana")

	handles, err := r.ResolveUsers([]string{"ana"}, "El usuario %d no existe")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(handles) != 1 || handles[0] != user.Handle {
		t.Errorf("Expected [%s], got %v", user.Handle, handles)
	}

	_, err = r.ResolveUsers([]string{"nadie"}, "El usuario %d no existe")
	var refErr *ReferenceNotFoundError
	if !errors.As(err, &refErr) {
		t.Fatalf("Expected ReferenceNotFoundError, got %v", err)
	}
	if refErr.Position != 0 {
		t.Errorf("Expected position 0, got %d", refErr.Position)
	}
}

func TestResolveHistoricalKeepsRepeats(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	track := insertTestTrack(t, db, 1, 5)
	day1 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

	visits, err := r.ResolveHistorical([]HistoricalRef{
		{Date: day1, Track: 1},
		{Date: day2, Track: 1},
	}, "La ruta %d no existe")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("Expected both visits kept, got %d", len(visits))
	}
	if visits[0].Track != track.Handle || visits[1].Track != track.Handle {
		t.Error("Expected both visits resolved to the track handle")
	}
	if !visits[0].Date.Equal(day1) || !visits[1].Date.Equal(day2) {
		t.Error("Expected visit dates preserved")
	}
}

func TestResolveEmptyLists(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	handles, err := r.ResolveTracks(nil, "La ruta %d no existe")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(handles) != 0 {
		t.Errorf("Expected no handles, got %v", handles)
	}
}
