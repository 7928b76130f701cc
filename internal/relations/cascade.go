package relations

import (
	"destravate-api/internal/database"
	"destravate-api/internal/model"
	"destravate-api/internal/stats"
)

// Cascader purges a deleted record from every collection that references
// it. Each pass is a full collection scan; no reverse index is maintained,
// which caps throughput at O(collection size) per deletion.
type Cascader struct {
	db    *database.DB
	stats *stats.Aggregator
}

// NewCascader creates a cascader writing through db
func NewCascader(db *database.DB, aggregator *stats.Aggregator) *Cascader {
	return &Cascader{db: db, stats: aggregator}
}

// RemoveTrackEverywhere removes a deleted track from every user's and
// group's favourites and historical (recomputing statistics where the
// historical changed) and from every challenge's track list.
//
// Challenge.length is intentionally left stale after the removal, matching
// the reference system.
func (c *Cascader) RemoveTrackEverywhere(handle string) error {
	users, err := c.db.AllUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		favourites, favChanged := removeHandle(u.FavouriteTracks, handle)
		historical, histChanged := removeVisits(u.TracksHistorical, handle)
		if !favChanged && !histChanged {
			continue
		}
		u.FavouriteTracks = favourites
		u.TracksHistorical = historical
		if histChanged {
			recomputed, err := c.stats.Compute(u.TracksHistorical)
			if err != nil {
				return err
			}
			u.Statistics = recomputed
		}
		if err := c.db.UpdateUser(u); err != nil {
			return err
		}
	}

	groups, err := c.db.AllGroups()
	if err != nil {
		return err
	}
	for _, g := range groups {
		favourites, favChanged := removeHandle(g.FavouriteTracks, handle)
		historical, histChanged := removeVisits(g.TracksHistorical, handle)
		if !favChanged && !histChanged {
			continue
		}
		g.FavouriteTracks = favourites
		g.TracksHistorical = historical
		if histChanged {
			recomputed, err := c.stats.Compute(g.TracksHistorical)
			if err != nil {
				return err
			}
			g.Statistics = recomputed
		}
		if err := c.db.UpdateGroup(g); err != nil {
			return err
		}
	}

	challenges, err := c.db.AllChallenges()
	if err != nil {
		return err
	}
	for _, ch := range challenges {
		tracks, changed := removeHandle(ch.Tracks, handle)
		if !changed {
			continue
		}
		ch.Tracks = tracks
		if err := c.db.UpdateChallenge(ch); err != nil {
			return err
		}
	}
	return nil
}

// RemoveUserEverywhere unwinds every mirror of a deleted user: friend
// lists, group participants and rankings, challenge user sets and the
// users set of every track it favourited or visited.
func (c *Cascader) RemoveUserEverywhere(u *model.User) error {
	for _, handle := range u.Friends {
		friend, err := c.db.GetUser(handle)
		if err != nil {
			return err
		}
		if friend == nil {
			continue
		}
		if friends, changed := removeHandle(friend.Friends, u.Handle); changed {
			friend.Friends = friends
			if err := c.db.UpdateUser(friend); err != nil {
				return err
			}
		}
	}

	for _, handle := range u.Groups {
		g, err := c.db.GetGroup(handle)
		if err != nil {
			return err
		}
		if g == nil {
			continue
		}
		participants, pChanged := removeHandle(g.Participants, u.Handle)
		ranking, rChanged := removeHandle(g.Ranking, u.Handle)
		if !pChanged && !rChanged {
			continue
		}
		g.Participants = participants
		g.Ranking = ranking
		if err := c.db.UpdateGroup(g); err != nil {
			return err
		}
	}

	for _, handle := range u.ActiveChallenges {
		ch, err := c.db.GetChallenge(handle)
		if err != nil {
			return err
		}
		if ch == nil {
			continue
		}
		if users, changed := removeHandle(ch.Users, u.Handle); changed {
			ch.Users = users
			if err := c.db.UpdateChallenge(ch); err != nil {
				return err
			}
		}
	}

	for _, handle := range trackUnion(u) {
		t, err := c.db.GetTrack(handle)
		if err != nil {
			return err
		}
		if t == nil {
			continue
		}
		if users, changed := removeHandle(t.Users, u.Handle); changed {
			t.Users = users
			if err := c.db.UpdateTrack(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeVisits filters out every visit to the given track, reporting
// whether the list changed
func removeVisits(visits []model.HistoricalVisit, track string) ([]model.HistoricalVisit, bool) {
	out := make([]model.HistoricalVisit, 0, len(visits))
	changed := false
	for _, visit := range visits {
		if visit.Track == track {
			changed = true
			continue
		}
		out = append(out, visit)
	}
	if !changed {
		return visits, false
	}
	return out, true
}
