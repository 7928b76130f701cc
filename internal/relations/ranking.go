package relations

import (
	"sort"

	"destravate-api/internal/database"
)

// Ranker derives group rankings from participant historical distance
type Ranker struct {
	db *database.DB
}

// NewRanker creates a ranker reading from db
func NewRanker(db *database.DB) *Ranker {
	return &Ranker{db: db}
}

// Build orders participants by total historical distance, descending.
// The total spans the entire historical list, not a time window. The sort
// is stable, so equal totals keep their input order. Participants whose
// record no longer resolves are dropped; visits to deleted tracks count
// zero.
func (r *Ranker) Build(participants []string) ([]string, error) {
	type entry struct {
		handle string
		total  float64
	}

	var entries []entry
	for _, handle := range participants {
		u, err := r.db.GetUser(handle)
		if err != nil {
			return nil, err
		}
		if u == nil {
			continue
		}
		total := 0.0
		for _, visit := range u.TracksHistorical {
			t, err := r.db.GetTrack(visit.Track)
			if err != nil {
				return nil, err
			}
			if t != nil {
				total += t.Length
			}
		}
		entries = append(entries, entry{handle: u.Handle, total: total})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].total > entries[j].total
	})

	ranking := make([]string, len(entries))
	for i, e := range entries {
		ranking[i] = e.handle
	}
	return ranking, nil
}
