package handlers

import (
	"net/http"
	"testing"
	"time"

	"destravate-api/internal/model"
)

func TestCreateUser(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/users", map[string]any{
		"id":            "ana42",
		"name":          "Ana",
		"activity_type": "Bicicleta",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var view userView
	decodeResponse(t, w, &view)
	if view.ID != "ana42" || view.Name != "Ana" || view.ActivityType != "Bicicleta" {
		t.Errorf("Unexpected view: %+v", view)
	}
	if view.Statistics != (model.Statistics{}) {
		t.Errorf("Expected zero statistics without historical, got %v", view.Statistics)
	}
}

func TestCreateUserDefaultsActivity(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/users", map[string]any{
		"id":   "ana",
		"name": "Ana",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var view userView
	decodeResponse(t, w, &view)
	if view.ActivityType != "Correr" {
		t.Errorf("Expected default activity 'Correr', got %s", view.ActivityType)
	}
}

func TestCreateUserComputesStatistics(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Pista", 6, 1)

	w := doRequest(t, router, http.MethodPost, "/users", map[string]any{
		"id":   "ana",
		"name": "Ana",
		"tracks_historical": []map[string]any{
			{"date": time.Now().AddDate(0, 0, -2), "track": 1},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var view userView
	decodeResponse(t, w, &view)
	want := model.Statistics{{6, 1}, {6, 1}, {6, 1}}
	if view.Statistics != want {
		t.Errorf("Expected statistics %v, got %v", want, view.Statistics)
	}
	if len(view.TracksHistorical) != 1 {
		t.Fatalf("Expected 1 historical entry, got %d", len(view.TracksHistorical))
	}
	if view.TracksHistorical[0].Track.Name != "Pista" {
		t.Errorf("Expected populated track reference, got %+v", view.TracksHistorical[0])
	}
}

func TestCreateUserUnknownReferences(t *testing.T) {
	router, _ := setupTestRouter(t)

	cases := map[string]struct {
		body map[string]any
		want string
	}{
		"Friend": {
			map[string]any{"id": "ana", "name": "Ana", "friends": []string{"nadie"}},
			"El amigo 0 del usuario introducido no existe",
		},
		"Group": {
			map[string]any{"id": "ana", "name": "Ana", "groups": []int64{9}},
			"El grupo 0 del usuario introducido no existe",
		},
		"Challenge": {
			map[string]any{"id": "ana", "name": "Ana", "active_challenges": []int64{9}},
			"El reto 0 del usuario introducido no existe",
		},
		"Favourite": {
			map[string]any{"id": "ana", "name": "Ana", "favourite_tracks": []int64{9}},
			"La ruta favorita 0 del usuario introducido no existe",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodPost, "/users", tc.body)
			if w.Code != http.StatusNotFound {
				t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
			}
			if msg := errorMessage(t, w); msg != tc.want {
				t.Errorf("Unexpected message: %s", msg)
			}
		})
	}
}

func TestFriendshipMirroredOnCreate(t *testing.T) {
	router, _ := setupTestRouter(t)
	postUser(t, router, "ana", nil)
	postUser(t, router, "ben", map[string]any{
		"friends": []string{"ana"},
	})

	w := doRequest(t, router, http.MethodGet, "/users/ana", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var view userView
	decodeResponse(t, w, &view)
	if len(view.Friends) != 1 || view.Friends[0].ID != "ben" {
		t.Errorf("Expected reciprocal friend ben, got %+v", view.Friends)
	}
}

func TestUserTrackMirroredOnCreate(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Pista", 10, 1)
	postUser(t, router, "ana", map[string]any{
		"favourite_tracks": []int64{1},
	})

	w := doRequest(t, router, http.MethodGet, "/tracks/1", nil)
	var views []trackView
	decodeResponse(t, w, &views)
	if len(views) != 1 || len(views[0].Users) != 1 || views[0].Users[0].ID != "ana" {
		t.Errorf("Expected the track to mirror ana, got %s", w.Body.String())
	}
}

func TestGetUserReturnsSingleObject(t *testing.T) {
	router, _ := setupTestRouter(t)
	postUser(t, router, "ana", nil)

	w := doRequest(t, router, http.MethodGet, "/users/ana", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var view userView
	decodeResponse(t, w, &view)
	if view.ID != "ana" {
		t.Errorf("Expected user ana, got %+v", view)
	}

	w = doRequest(t, router, http.MethodGet, "/users/nadie", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing user, got %d", w.Code)
	}
}

func TestUpdateUserRewiresMirrors(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Vieja", 10, 1)
	postTrack(t, router, 2, "Nueva", 12, 2)
	postUser(t, router, "ana", map[string]any{
		"favourite_tracks": []int64{1},
	})

	w := doRequest(t, router, http.MethodPatch, "/users/ana", map[string]any{
		"favourite_tracks": []int64{2},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var old []trackView
	decodeResponse(t, doRequest(t, router, http.MethodGet, "/tracks/1", nil), &old)
	if len(old[0].Users) != 0 {
		t.Errorf("Expected old track mirror removed, got %+v", old[0].Users)
	}

	var current []trackView
	decodeResponse(t, doRequest(t, router, http.MethodGet, "/tracks/2", nil), &current)
	if len(current[0].Users) != 1 || current[0].Users[0].ID != "ana" {
		t.Errorf("Expected new track to mirror ana, got %+v", current[0].Users)
	}
}

func TestUpdateUserRecomputesStatistics(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Pista", 6, 1)
	postUser(t, router, "ana", nil)

	w := doRequest(t, router, http.MethodPatch, "/users/ana", map[string]any{
		"tracks_historical": []map[string]any{
			{"date": time.Now().AddDate(0, 0, -1), "track": 1},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var view userView
	decodeResponse(t, w, &view)
	want := model.Statistics{{6, 1}, {6, 1}, {6, 1}}
	if view.Statistics != want {
		t.Errorf("Expected statistics %v, got %v", want, view.Statistics)
	}
}

func TestUpdateUsersByNameReturnsArray(t *testing.T) {
	router, _ := setupTestRouter(t)
	postUser(t, router, "ana", map[string]any{"name": "Ana"})
	postUser(t, router, "ana2", map[string]any{"name": "Ana"})

	w := doRequest(t, router, http.MethodPatch, "/users?name=Ana", map[string]any{
		"activity_type": "Bicicleta",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var views []userView
	decodeResponse(t, w, &views)
	if len(views) != 2 {
		t.Fatalf("Expected 2 updated users, got %d", len(views))
	}
	for _, v := range views {
		if v.ActivityType != "Bicicleta" {
			t.Errorf("Update not applied to %s", v.ID)
		}
	}
}

func TestDeleteUserUnwindsMirrors(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Pista", 10, 1)
	postUser(t, router, "ben", nil)
	postUser(t, router, "ana", map[string]any{
		"friends":          []string{"ben"},
		"favourite_tracks": []int64{1},
	})

	w := doRequest(t, router, http.MethodDelete, "/users/ana", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var friend userView
	decodeResponse(t, doRequest(t, router, http.MethodGet, "/users/ben", nil), &friend)
	if len(friend.Friends) != 0 {
		t.Errorf("Expected friendship unwound, got %+v", friend.Friends)
	}

	var tracks []trackView
	decodeResponse(t, doRequest(t, router, http.MethodGet, "/tracks/1", nil), &tracks)
	if len(tracks[0].Users) != 0 {
		t.Errorf("Expected track mirror removed, got %+v", tracks[0].Users)
	}

	w = doRequest(t, router, http.MethodGet, "/users/ana", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}
