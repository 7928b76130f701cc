package relations

import (
	"testing"
	"time"

	"destravate-api/internal/database"
	"destravate-api/internal/model"
)

func insertTestGroup(t *testing.T, db *database.DB, id int64, participants []string) *model.Group {
	t.Helper()

	group := &model.Group{
		ID:           id,
		Name:         "Grupo",
		Participants: participants,
	}
	if err := db.InsertGroup(group); err != nil {
		t.Fatalf("Failed to insert group: %v", err)
	}
	return group
}

func insertTestChallenge(t *testing.T, db *database.DB, id int64, users []string) *model.Challenge {
	t.Helper()

	challenge := &model.Challenge{
		ID:           id,
		Name:         "Reto",
		ActivityType: model.ActivityRun,
		Length:       10,
		Users:        users,
	}
	if err := db.InsertChallenge(challenge); err != nil {
		t.Fatalf("Failed to insert challenge: %v", err)
	}
	return challenge
}

func TestGroupParticipantMirror(t *testing.T) {
	db := openTestDB(t)
	s := NewSyncer(db)

	user := insertTestUser(t, db, "ana")
	group := insertTestGroup(t, db, 1, []string{user.Handle})

	if err := s.AddGroupToParticipants(group); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	got, err := db.GetUser(user.Handle)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if len(got.Groups) != 1 || got.Groups[0] != group.Handle {
		t.Errorf("Expected user to mirror the group, got %v", got.Groups)
	}

	t.Run("AttachIsIdempotent", func(t *testing.T) {
		if err := s.AddGroupToParticipants(group); err != nil {
			t.Fatalf("Attach failed: %v", err)
		}
		got, err := db.GetUser(user.Handle)
		if err != nil {
			t.Fatalf("Failed to get user: %v", err)
		}
		if len(got.Groups) != 1 {
			t.Errorf("Expected a single mirror entry, got %v", got.Groups)
		}
	})

	t.Run("DetachRestores", func(t *testing.T) {
		if err := s.RemoveGroupFromParticipants(group); err != nil {
			t.Fatalf("Detach failed: %v", err)
		}
		got, err := db.GetUser(user.Handle)
		if err != nil {
			t.Fatalf("Failed to get user: %v", err)
		}
		if len(got.Groups) != 0 {
			t.Errorf("Expected no mirror after detach, got %v", got.Groups)
		}
	})
}

func TestChallengeUserMirror(t *testing.T) {
	db := openTestDB(t)
	s := NewSyncer(db)

	user := insertTestUser(t, db, "ana")
	challenge := insertTestChallenge(t, db, 1, []string{user.Handle})

	if err := s.AddChallengeToUsers(challenge); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	got, _ := db.GetUser(user.Handle)
	if len(got.ActiveChallenges) != 1 || got.ActiveChallenges[0] != challenge.Handle {
		t.Errorf("Expected user to mirror the challenge, got %v", got.ActiveChallenges)
	}

	if err := s.RemoveChallengeFromUsers(challenge); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	got, _ = db.GetUser(user.Handle)
	if len(got.ActiveChallenges) != 0 {
		t.Errorf("Expected no mirror after detach, got %v", got.ActiveChallenges)
	}
}

func TestFriendshipIsSymmetric(t *testing.T) {
	db := openTestDB(t)
	s := NewSyncer(db)

	ana := insertTestUser(t, db, "ana")
	ben := insertTestUser(t, db, "ben")

	ana.Friends = []string{ben.Handle}
	if err := db.UpdateUser(ana); err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}

	if err := s.AddUserToFriends(ana); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	got, _ := db.GetUser(ben.Handle)
	if len(got.Friends) != 1 || got.Friends[0] != ana.Handle {
		t.Errorf("Expected reciprocal friendship, got %v", got.Friends)
	}

	if err := s.RemoveUserFromFriends(ana); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	got, _ = db.GetUser(ben.Handle)
	if len(got.Friends) != 0 {
		t.Errorf("Expected friendship removed, got %v", got.Friends)
	}
}

func TestUserTrackMirrorSpansFavouritesAndHistorical(t *testing.T) {
	db := openTestDB(t)
	s := NewSyncer(db)

	track := insertTestTrack(t, db, 1, 5)
	other := insertTestTrack(t, db, 2, 8)
	user := insertTestUser(t, db, "ana")

	user.FavouriteTracks = []string{track.Handle}
	user.TracksHistorical = []model.HistoricalVisit{
		{Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Track: track.Handle},
		{Date: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), Track: other.Handle},
	}
	if err := db.UpdateUser(user); err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}

	if err := s.AddUserToTracks(user); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	// The track in both sources gets a single mirror entry
	got, _ := db.GetTrack(track.Handle)
	if len(got.Users) != 1 || got.Users[0] != user.Handle {
		t.Errorf("Expected one mirror entry on the shared track, got %v", got.Users)
	}
	got, _ = db.GetTrack(other.Handle)
	if len(got.Users) != 1 {
		t.Errorf("Expected mirror entry on the historical-only track, got %v", got.Users)
	}

	if err := s.RemoveUserFromTracks(user); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	got, _ = db.GetTrack(track.Handle)
	if len(got.Users) != 0 {
		t.Errorf("Expected mirror removed, got %v", got.Users)
	}
}

func TestSyncSkipsMissingRecords(t *testing.T) {
	db := openTestDB(t)
	s := NewSyncer(db)

	group := insertTestGroup(t, db, 1, []string{"no-such-user"})

	if err := s.AddGroupToParticipants(group); err != nil {
		t.Errorf("Expected missing participant to be skipped, got error: %v", err)
	}
	if err := s.RemoveGroupFromParticipants(group); err != nil {
		t.Errorf("Expected missing participant to be skipped, got error: %v", err)
	}
}
