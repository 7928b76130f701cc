package relations

import (
	"destravate-api/internal/database"
	"destravate-api/internal/model"
)

// Syncer maintains the mirror fields of related records when an owning
// record is created, updated or deleted.
//
// Attach operations are idempotent (set semantics on the mirror field) and
// detach operations remove only the owner's handle. A related record that
// no longer resolves is skipped, matching an update against a missing
// document being a no-op in the reference system.
type Syncer struct {
	db *database.DB
}

// NewSyncer creates a synchronizer writing through db
func NewSyncer(db *database.DB) *Syncer {
	return &Syncer{db: db}
}

// AddGroupToParticipants mirrors the group onto each participant's groups
func (s *Syncer) AddGroupToParticipants(g *model.Group) error {
	for _, handle := range g.Participants {
		u, err := s.db.GetUser(handle)
		if err != nil {
			return err
		}
		if u == nil {
			continue
		}
		if groups, changed := addHandle(u.Groups, g.Handle); changed {
			u.Groups = groups
			if err := s.db.UpdateUser(u); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveGroupFromParticipants removes the group from each participant's groups
func (s *Syncer) RemoveGroupFromParticipants(g *model.Group) error {
	for _, handle := range g.Participants {
		u, err := s.db.GetUser(handle)
		if err != nil {
			return err
		}
		if u == nil {
			continue
		}
		if groups, changed := removeHandle(u.Groups, g.Handle); changed {
			u.Groups = groups
			if err := s.db.UpdateUser(u); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddChallengeToUsers mirrors the challenge onto each user's active challenges
func (s *Syncer) AddChallengeToUsers(c *model.Challenge) error {
	for _, handle := range c.Users {
		u, err := s.db.GetUser(handle)
		if err != nil {
			return err
		}
		if u == nil {
			continue
		}
		if challenges, changed := addHandle(u.ActiveChallenges, c.Handle); changed {
			u.ActiveChallenges = challenges
			if err := s.db.UpdateUser(u); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveChallengeFromUsers removes the challenge from each user's active challenges
func (s *Syncer) RemoveChallengeFromUsers(c *model.Challenge) error {
	for _, handle := range c.Users {
		u, err := s.db.GetUser(handle)
		if err != nil {
			return err
		}
		if u == nil {
			continue
		}
		if challenges, changed := removeHandle(u.ActiveChallenges, c.Handle); changed {
			u.ActiveChallenges = challenges
			if err := s.db.UpdateUser(u); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddUserToFriends mirrors the friendship onto each friend's friend list
func (s *Syncer) AddUserToFriends(u *model.User) error {
	for _, handle := range u.Friends {
		friend, err := s.db.GetUser(handle)
		if err != nil {
			return err
		}
		if friend == nil {
			continue
		}
		if friends, changed := addHandle(friend.Friends, u.Handle); changed {
			friend.Friends = friends
			if err := s.db.UpdateUser(friend); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveUserFromFriends removes the user from each friend's friend list
func (s *Syncer) RemoveUserFromFriends(u *model.User) error {
	for _, handle := range u.Friends {
		friend, err := s.db.GetUser(handle)
		if err != nil {
			return err
		}
		if friend == nil {
			continue
		}
		if friends, changed := removeHandle(friend.Friends, u.Handle); changed {
			friend.Friends = friends
			if err := s.db.UpdateUser(friend); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddUserToGroups adds the user to the participant list of each of its
// groups. Rankings are recomputed on group mutations, not here.
func (s *Syncer) AddUserToGroups(u *model.User) error {
	for _, handle := range u.Groups {
		g, err := s.db.GetGroup(handle)
		if err != nil {
			return err
		}
		if g == nil {
			continue
		}
		if participants, changed := addHandle(g.Participants, u.Handle); changed {
			g.Participants = participants
			if err := s.db.UpdateGroup(g); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveUserFromGroups removes the user from the participant list of each
// of its groups
func (s *Syncer) RemoveUserFromGroups(u *model.User) error {
	for _, handle := range u.Groups {
		g, err := s.db.GetGroup(handle)
		if err != nil {
			return err
		}
		if g == nil {
			continue
		}
		if participants, changed := removeHandle(g.Participants, u.Handle); changed {
			g.Participants = participants
			if err := s.db.UpdateGroup(g); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddUserToChallenges mirrors the user onto each active challenge's user set
func (s *Syncer) AddUserToChallenges(u *model.User) error {
	for _, handle := range u.ActiveChallenges {
		c, err := s.db.GetChallenge(handle)
		if err != nil {
			return err
		}
		if c == nil {
			continue
		}
		if users, changed := addHandle(c.Users, u.Handle); changed {
			c.Users = users
			if err := s.db.UpdateChallenge(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveUserFromChallenges removes the user from each active challenge's user set
func (s *Syncer) RemoveUserFromChallenges(u *model.User) error {
	for _, handle := range u.ActiveChallenges {
		c, err := s.db.GetChallenge(handle)
		if err != nil {
			return err
		}
		if c == nil {
			continue
		}
		if users, changed := removeHandle(c.Users, u.Handle); changed {
			c.Users = users
			if err := s.db.UpdateChallenge(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddUserToTracks mirrors the user onto every track it references from
// either favourites or historical. The union matters: a track present in
// both sources must not lose its mirror when only one of them drops it,
// so attach and detach always act on the combined set.
func (s *Syncer) AddUserToTracks(u *model.User) error {
	for _, handle := range trackUnion(u) {
		t, err := s.db.GetTrack(handle)
		if err != nil {
			return err
		}
		if t == nil {
			continue
		}
		if users, changed := addHandle(t.Users, u.Handle); changed {
			t.Users = users
			if err := s.db.UpdateTrack(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveUserFromTracks removes the user from every track it referenced
func (s *Syncer) RemoveUserFromTracks(u *model.User) error {
	for _, handle := range trackUnion(u) {
		t, err := s.db.GetTrack(handle)
		if err != nil {
			return err
		}
		if t == nil {
			continue
		}
		if users, changed := removeHandle(t.Users, u.Handle); changed {
			t.Users = users
			if err := s.db.UpdateTrack(t); err != nil {
				return err
			}
		}
	}
	return nil
}

// trackUnion is the deduplicated union of a user's favourite tracks and
// the tracks in its historical list
func trackUnion(u *model.User) []string {
	handles := make([]string, 0, len(u.FavouriteTracks)+len(u.TracksHistorical))
	handles = append(handles, u.FavouriteTracks...)
	for _, visit := range u.TracksHistorical {
		handles = append(handles, visit.Track)
	}
	return dedup(handles)
}

// addHandle inserts handle with set semantics, reporting whether the list changed
func addHandle(list []string, handle string) ([]string, bool) {
	for _, h := range list {
		if h == handle {
			return list, false
		}
	}
	return append(list, handle), true
}

// removeHandle removes every occurrence of handle, reporting whether the list changed
func removeHandle(list []string, handle string) ([]string, bool) {
	out := make([]string, 0, len(list))
	changed := false
	for _, h := range list {
		if h == handle {
			changed = true
			continue
		}
		out = append(out, h)
	}
	if !changed {
		return list, false
	}
	return out, true
}
