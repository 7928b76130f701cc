package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"destravate-api/internal/model"
)

// InsertGroup persists a new group document, assigning its handle
func (db *DB) InsertGroup(g *model.Group) error {
	if g.Handle == "" {
		g.Handle = uuid.NewString()
	}
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode group: %w", err)
	}

	now := time.Now().Unix()
	_, err = db.conn.Exec(`
		INSERT INTO groups (handle, public_id, name, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.Handle, g.ID, g.Name, string(doc), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by handle, returning (nil, nil) when absent
func (db *DB) GetGroup(handle string) (*model.Group, error) {
	var doc string
	err := db.conn.QueryRow(`SELECT doc FROM groups WHERE handle = ?`, handle).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return decodeGroup(handle, doc)
}

// FindGroupByID retrieves a group by its public numeric ID
func (db *DB) FindGroupByID(id int64) (*model.Group, error) {
	var handle, doc string
	err := db.conn.QueryRow(`SELECT handle, doc FROM groups WHERE public_id = ?`, id).Scan(&handle, &doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group by id: %w", err)
	}
	return decodeGroup(handle, doc)
}

// FindGroupsByName retrieves every group with an exact-matching name
func (db *DB) FindGroupsByName(name string) ([]*model.Group, error) {
	return db.queryGroups(`SELECT handle, doc FROM groups WHERE name = ?`, name)
}

// AllGroups returns every group document
func (db *DB) AllGroups() ([]*model.Group, error) {
	return db.queryGroups(`SELECT handle, doc FROM groups`)
}

// UpdateGroup rewrites a group document in place, keyed by handle
func (db *DB) UpdateGroup(g *model.Group) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode group: %w", err)
	}

	_, err = db.conn.Exec(`
		UPDATE groups SET name = ?, doc = ?, updated_at = ? WHERE handle = ?
	`, g.Name, string(doc), time.Now().Unix(), g.Handle)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return nil
}

// DeleteGroup removes a group document by handle
func (db *DB) DeleteGroup(handle string) error {
	_, err := db.conn.Exec(`DELETE FROM groups WHERE handle = ?`, handle)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}

func (db *DB) queryGroups(query string, args ...any) ([]*model.Group, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*model.Group
	for rows.Next() {
		var handle, doc string
		if err := rows.Scan(&handle, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		g, err := decodeGroup(handle, doc)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func decodeGroup(handle, doc string) (*model.Group, error) {
	var g model.Group
	if err := json.Unmarshal([]byte(doc), &g); err != nil {
		return nil, fmt.Errorf("failed to decode group %s: %w", handle, err)
	}
	g.Handle = handle
	return &g, nil
}
