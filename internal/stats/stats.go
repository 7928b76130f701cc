// Package stats computes the derived weekly/monthly/yearly distance and
// elevation statistics from a historical-visit list.
package stats

import (
	"time"

	"destravate-api/internal/database"
	"destravate-api/internal/model"
)

// Aggregator recomputes statistics from scratch on every call; there is no
// incremental update. The clock is a field so tests can pin "now".
type Aggregator struct {
	db  *database.DB
	now func() time.Time
}

// NewAggregator creates an aggregator reading track data from db
func NewAggregator(db *database.DB) *Aggregator {
	return &Aggregator{db: db, now: time.Now}
}

// Compute sums track length and slope over three windows ending at now:
// the last 7 days, the last calendar month and the last calendar year.
// Month and year bounds use calendar-field subtraction, so day-of-month
// overflow normalizes the way JavaScript's setMonth does. A visit whose
// track no longer resolves contributes nothing.
func (a *Aggregator) Compute(visits []model.HistoricalVisit) (model.Statistics, error) {
	var s model.Statistics

	now := a.now()
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, -1, 0)
	yearAgo := now.AddDate(0, -12, 0)

	for _, visit := range visits {
		track, err := a.db.GetTrack(visit.Track)
		if err != nil {
			return model.Statistics{}, err
		}
		if track == nil {
			continue
		}

		if !visit.Date.Before(weekAgo) {
			s[0][0] += track.Length
			s[0][1] += track.Slope
		}
		if !visit.Date.Before(monthAgo) {
			s[1][0] += track.Length
			s[1][1] += track.Slope
		}
		if !visit.Date.Before(yearAgo) {
			s[2][0] += track.Length
			s[2][1] += track.Slope
		}
	}
	return s, nil
}
