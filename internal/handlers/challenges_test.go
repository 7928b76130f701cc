package handlers

import (
	"net/http"
	"testing"
)

func TestCreateChallengeDerivesLength(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Corta", 10, 1)
	postTrack(t, router, 2, "Larga", 20, 2)

	w := doRequest(t, router, http.MethodPost, "/challenges", map[string]any{
		"id":     1,
		"name":   "Vuelta al lago",
		"tracks": []int64{1, 2},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var view challengeView
	decodeResponse(t, w, &view)
	if view.Length != 30 {
		t.Errorf("Expected derived length 30, got %f", view.Length)
	}
	if len(view.Tracks) != 2 {
		t.Errorf("Expected 2 track references, got %d", len(view.Tracks))
	}
}

func TestCreateChallengeMirrorsUsers(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Pista", 10, 1)
	postUser(t, router, "ana", nil)

	w := doRequest(t, router, http.MethodPost, "/challenges", map[string]any{
		"id":     1,
		"name":   "Vuelta al lago",
		"tracks": []int64{1},
		"users":  []string{"ana"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var user userView
	decodeResponse(t, doRequest(t, router, http.MethodGet, "/users/ana", nil), &user)
	if len(user.ActiveChallenges) != 1 || user.ActiveChallenges[0].Name != "Vuelta al lago" {
		t.Errorf("Expected user to mirror the challenge, got %+v", user.ActiveChallenges)
	}
}

func TestCreateChallengeUnknownReferences(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Pista", 10, 1)

	t.Run("Track", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/challenges", map[string]any{
			"id":     1,
			"name":   "Reto",
			"tracks": []int64{9},
		})
		if w.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
		if msg := errorMessage(t, w); msg != "La ruta 0 del reto introducido no existe" {
			t.Errorf("Unexpected message: %s", msg)
		}
	})

	t.Run("User", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/challenges", map[string]any{
			"id":     1,
			"name":   "Reto",
			"tracks": []int64{1},
			"users":  []string{"nadie"},
		})
		if w.Code != http.StatusNotFound {
			t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
		if msg := errorMessage(t, w); msg != "El usuario 0 del reto introducido no existe" {
			t.Errorf("Unexpected message: %s", msg)
		}
	})
}

func TestUpdateChallengeRecomputesLength(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Corta", 10, 1)
	postTrack(t, router, 2, "Larga", 20, 2)

	w := doRequest(t, router, http.MethodPost, "/challenges", map[string]any{
		"id":     1,
		"name":   "Reto",
		"tracks": []int64{1},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	t.Run("TrackListChange", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPatch, "/challenges/1", map[string]any{
			"tracks": []int64{1, 2},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var view challengeView
		decodeResponse(t, w, &view)
		if view.Length != 30 {
			t.Errorf("Expected recomputed length 30, got %f", view.Length)
		}
	})

	t.Run("ClientLengthDiscarded", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPatch, "/challenges/1", map[string]any{
			"length": 999,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var view challengeView
		decodeResponse(t, w, &view)
		if view.Length != 30 {
			t.Errorf("Expected length to stay derived at 30, got %f", view.Length)
		}
	})
}

func TestUpdateChallengeRewiresUsers(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Pista", 10, 1)
	postUser(t, router, "ana", nil)
	postUser(t, router, "ben", nil)

	w := doRequest(t, router, http.MethodPost, "/challenges", map[string]any{
		"id":     1,
		"name":   "Reto",
		"tracks": []int64{1},
		"users":  []string{"ana"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodPatch, "/challenges/1", map[string]any{
		"users": []string{"ben"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var ana userView
	decodeResponse(t, doRequest(t, router, http.MethodGet, "/users/ana", nil), &ana)
	if len(ana.ActiveChallenges) != 0 {
		t.Errorf("Expected ana detached, got %+v", ana.ActiveChallenges)
	}
	var ben userView
	decodeResponse(t, doRequest(t, router, http.MethodGet, "/users/ben", nil), &ben)
	if len(ben.ActiveChallenges) != 1 {
		t.Errorf("Expected ben attached, got %+v", ben.ActiveChallenges)
	}
}

func TestDeleteChallengeDetachesUsers(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Pista", 10, 1)
	postUser(t, router, "ana", nil)

	w := doRequest(t, router, http.MethodPost, "/challenges", map[string]any{
		"id":     1,
		"name":   "Reto",
		"tracks": []int64{1},
		"users":  []string{"ana"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodDelete, "/challenges/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var user userView
	decodeResponse(t, doRequest(t, router, http.MethodGet, "/users/ana", nil), &user)
	if len(user.ActiveChallenges) != 0 {
		t.Errorf("Expected challenge mirror removed, got %+v", user.ActiveChallenges)
	}

	w = doRequest(t, router, http.MethodGet, "/challenges/1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestDeletedTrackLeavesChallengeLengthStale(t *testing.T) {
	router, _ := setupTestRouter(t)
	postTrack(t, router, 1, "Condenada", 10, 1)
	postTrack(t, router, 2, "Superviviente", 20, 2)

	w := doRequest(t, router, http.MethodPost, "/challenges", map[string]any{
		"id":     1,
		"name":   "Reto",
		"tracks": []int64{1, 2},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodDelete, "/tracks/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var view challengeView
	decodeResponse(t, doRequest(t, router, http.MethodGet, "/challenges/1", nil), &view)
	if len(view.Tracks) != 1 {
		t.Errorf("Expected the deleted track out of the list, got %+v", view.Tracks)
	}
	if view.Length != 30 {
		t.Errorf("Expected length to stay at 30, got %f", view.Length)
	}
}
