package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"destravate-api/internal/model"
)

// InsertTrack persists a new track document, assigning its handle.
// A duplicate public ID fails on the unique index.
func (db *DB) InsertTrack(t *model.Track) error {
	if t.Handle == "" {
		t.Handle = uuid.NewString()
	}
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode track: %w", err)
	}

	now := time.Now().Unix()
	_, err = db.conn.Exec(`
		INSERT INTO tracks (handle, public_id, name, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.Handle, t.ID, t.Name, string(doc), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}
	return nil
}

// GetTrack retrieves a track by handle, returning (nil, nil) when absent
func (db *DB) GetTrack(handle string) (*model.Track, error) {
	var doc string
	err := db.conn.QueryRow(`SELECT doc FROM tracks WHERE handle = ?`, handle).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	return decodeTrack(handle, doc)
}

// FindTrackByID retrieves a track by its public numeric ID
func (db *DB) FindTrackByID(id int64) (*model.Track, error) {
	var handle, doc string
	err := db.conn.QueryRow(`SELECT handle, doc FROM tracks WHERE public_id = ?`, id).Scan(&handle, &doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find track by id: %w", err)
	}
	return decodeTrack(handle, doc)
}

// FindTracksByName retrieves every track with an exact-matching name
func (db *DB) FindTracksByName(name string) ([]*model.Track, error) {
	return db.queryTracks(`SELECT handle, doc FROM tracks WHERE name = ?`, name)
}

// AllTracks returns every track document
func (db *DB) AllTracks() ([]*model.Track, error) {
	return db.queryTracks(`SELECT handle, doc FROM tracks`)
}

// UpdateTrack rewrites a track document in place, keyed by handle
func (db *DB) UpdateTrack(t *model.Track) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode track: %w", err)
	}

	_, err = db.conn.Exec(`
		UPDATE tracks SET name = ?, doc = ?, updated_at = ? WHERE handle = ?
	`, t.Name, string(doc), time.Now().Unix(), t.Handle)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}
	return nil
}

// DeleteTrack removes a track document by handle
func (db *DB) DeleteTrack(handle string) error {
	_, err := db.conn.Exec(`DELETE FROM tracks WHERE handle = ?`, handle)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return nil
}

func (db *DB) queryTracks(query string, args ...any) ([]*model.Track, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*model.Track
	for rows.Next() {
		var handle, doc string
		if err := rows.Scan(&handle, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		t, err := decodeTrack(handle, doc)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func decodeTrack(handle, doc string) (*model.Track, error) {
	var t model.Track
	if err := json.Unmarshal([]byte(doc), &t); err != nil {
		return nil, fmt.Errorf("failed to decode track %s: %w", handle, err)
	}
	t.Handle = handle
	return &t, nil
}
