package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"destravate-api/internal/model"
)

// InsertChallenge persists a new challenge document, assigning its handle
func (db *DB) InsertChallenge(c *model.Challenge) error {
	if c.Handle == "" {
		c.Handle = uuid.NewString()
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}

	now := time.Now().Unix()
	_, err = db.conn.Exec(`
		INSERT INTO challenges (handle, public_id, name, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Handle, c.ID, c.Name, string(doc), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert challenge: %w", err)
	}
	return nil
}

// GetChallenge retrieves a challenge by handle, returning (nil, nil) when absent
func (db *DB) GetChallenge(handle string) (*model.Challenge, error) {
	var doc string
	err := db.conn.QueryRow(`SELECT doc FROM challenges WHERE handle = ?`, handle).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return decodeChallenge(handle, doc)
}

// FindChallengeByID retrieves a challenge by its public numeric ID
func (db *DB) FindChallengeByID(id int64) (*model.Challenge, error) {
	var handle, doc string
	err := db.conn.QueryRow(`SELECT handle, doc FROM challenges WHERE public_id = ?`, id).Scan(&handle, &doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find challenge by id: %w", err)
	}
	return decodeChallenge(handle, doc)
}

// FindChallengesByName retrieves every challenge with an exact-matching name
func (db *DB) FindChallengesByName(name string) ([]*model.Challenge, error) {
	return db.queryChallenges(`SELECT handle, doc FROM challenges WHERE name = ?`, name)
}

// AllChallenges returns every challenge document
func (db *DB) AllChallenges() ([]*model.Challenge, error) {
	return db.queryChallenges(`SELECT handle, doc FROM challenges`)
}

// UpdateChallenge rewrites a challenge document in place, keyed by handle
func (db *DB) UpdateChallenge(c *model.Challenge) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}

	_, err = db.conn.Exec(`
		UPDATE challenges SET name = ?, doc = ?, updated_at = ? WHERE handle = ?
	`, c.Name, string(doc), time.Now().Unix(), c.Handle)
	if err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	return nil
}

// DeleteChallenge removes a challenge document by handle
func (db *DB) DeleteChallenge(handle string) error {
	_, err := db.conn.Exec(`DELETE FROM challenges WHERE handle = ?`, handle)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

func (db *DB) queryChallenges(query string, args ...any) ([]*model.Challenge, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*model.Challenge
	for rows.Next() {
		var handle, doc string
		if err := rows.Scan(&handle, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan challenge row: %w", err)
		}
		c, err := decodeChallenge(handle, doc)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func decodeChallenge(handle, doc string) (*model.Challenge, error) {
	var c model.Challenge
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, fmt.Errorf("failed to decode challenge %s: %w", handle, err)
	}
	c.Handle = handle
	return &c, nil
}
