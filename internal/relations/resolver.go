// Package relations maintains referential integrity across the four
// collections: resolving body-supplied public IDs into handles, mirroring
// relationships on related records, deriving rankings and cascading
// deletions.
package relations

import (
	"time"

	"destravate-api/internal/database"
	"destravate-api/internal/model"
)

// Resolver turns client-facing public IDs into internal handles. It only
// reads from the store.
type Resolver struct {
	db *database.DB
}

// NewResolver creates a resolver backed by db
func NewResolver(db *database.DB) *Resolver {
	return &Resolver{db: db}
}

// HistoricalRef is a historical-visit entry as supplied by a client, with
// the track identified by its public ID rather than a handle.
type HistoricalRef struct {
	Date  time.Time `json:"date"`
	Track int64     `json:"track"`
}

// ResolveUsers deduplicates ids preserving first-occurrence order and
// resolves each into a user handle. The first miss aborts with a
// ReferenceNotFoundError carrying the position and the given message
// format; no partial resolution is returned.
func (r *Resolver) ResolveUsers(ids []string, format string) ([]string, error) {
	var handles []string
	for i, id := range dedup(ids) {
		u, err := r.db.FindUserByID(id)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, &ReferenceNotFoundError{Format: format, Position: i}
		}
		handles = append(handles, u.Handle)
	}
	return handles, nil
}

// ResolveTracks is ResolveUsers for public track IDs
func (r *Resolver) ResolveTracks(ids []int64, format string) ([]string, error) {
	var handles []string
	for i, id := range dedup(ids) {
		t, err := r.db.FindTrackByID(id)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, &ReferenceNotFoundError{Format: format, Position: i}
		}
		handles = append(handles, t.Handle)
	}
	return handles, nil
}

// ResolveGroups is ResolveUsers for public group IDs
func (r *Resolver) ResolveGroups(ids []int64, format string) ([]string, error) {
	var handles []string
	for i, id := range dedup(ids) {
		g, err := r.db.FindGroupByID(id)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, &ReferenceNotFoundError{Format: format, Position: i}
		}
		handles = append(handles, g.Handle)
	}
	return handles, nil
}

// ResolveChallenges is ResolveUsers for public challenge IDs
func (r *Resolver) ResolveChallenges(ids []int64, format string) ([]string, error) {
	var handles []string
	for i, id := range dedup(ids) {
		c, err := r.db.FindChallengeByID(id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, &ReferenceNotFoundError{Format: format, Position: i}
		}
		handles = append(handles, c.Handle)
	}
	return handles, nil
}

// ResolveHistorical resolves the track of every visit entry. Entries are
// not deduplicated: the same track may legitimately appear on several
// dates, and repeated visits each count.
func (r *Resolver) ResolveHistorical(refs []HistoricalRef, format string) ([]model.HistoricalVisit, error) {
	visits := make([]model.HistoricalVisit, 0, len(refs))
	for i, ref := range refs {
		t, err := r.db.FindTrackByID(ref.Track)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, &ReferenceNotFoundError{Format: format, Position: i}
		}
		visits = append(visits, model.HistoricalVisit{Date: ref.Date, Track: t.Handle})
	}
	return visits, nil
}

// dedup keeps the first occurrence of each value, preserving order
func dedup[T comparable](ids []T) []T {
	seen := make(map[T]struct{}, len(ids))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
