package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"destravate-api/internal/model"
)

// InsertUser persists a new user document, assigning its handle
func (db *DB) InsertUser(u *model.User) error {
	if u.Handle == "" {
		u.Handle = uuid.NewString()
	}
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	now := time.Now().Unix()
	_, err = db.conn.Exec(`
		INSERT INTO users (handle, public_id, name, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.Handle, u.ID, u.Name, string(doc), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by handle, returning (nil, nil) when absent
func (db *DB) GetUser(handle string) (*model.User, error) {
	var doc string
	err := db.conn.QueryRow(`SELECT doc FROM users WHERE handle = ?`, handle).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return decodeUser(handle, doc)
}

// FindUserByID retrieves a user by its public string ID
func (db *DB) FindUserByID(id string) (*model.User, error) {
	var handle, doc string
	err := db.conn.QueryRow(`SELECT handle, doc FROM users WHERE public_id = ?`, id).Scan(&handle, &doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return decodeUser(handle, doc)
}

// FindUsersByName retrieves every user with an exact-matching name
func (db *DB) FindUsersByName(name string) ([]*model.User, error) {
	return db.queryUsers(`SELECT handle, doc FROM users WHERE name = ?`, name)
}

// AllUsers returns every user document
func (db *DB) AllUsers() ([]*model.User, error) {
	return db.queryUsers(`SELECT handle, doc FROM users`)
}

// UpdateUser rewrites a user document in place, keyed by handle
func (db *DB) UpdateUser(u *model.User) error {
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	_, err = db.conn.Exec(`
		UPDATE users SET name = ?, doc = ?, updated_at = ? WHERE handle = ?
	`, u.Name, string(doc), time.Now().Unix(), u.Handle)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeleteUser removes a user document by handle
func (db *DB) DeleteUser(handle string) error {
	_, err := db.conn.Exec(`DELETE FROM users WHERE handle = ?`, handle)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (db *DB) queryUsers(query string, args ...any) ([]*model.User, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var handle, doc string
		if err := rows.Scan(&handle, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		u, err := decodeUser(handle, doc)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func decodeUser(handle, doc string) (*model.User, error) {
	var u model.User
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", handle, err)
	}
	u.Handle = handle
	return &u, nil
}
