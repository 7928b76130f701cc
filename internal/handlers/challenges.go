package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"destravate-api/internal/model"
)

const (
	challengeTrackNotFound = "La ruta %d del reto introducido no existe"
	challengeUserNotFound  = "El usuario %d del reto introducido no existe"
)

// length is accepted in PATCH bodies for compatibility but always
// recomputed from the track list; the client value is discarded
var challengeAllowedUpdates = []string{
	"name", "tracks", "activity_type", "length", "users",
}

type challengeBody struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Tracks       []int64  `json:"tracks"`
	ActivityType string   `json:"activity_type"`
	Users        []string `json:"users"`
}

type challengeView struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Tracks       []Ref   `json:"tracks"`
	ActivityType string  `json:"activity_type"`
	Length       float64 `json:"length"`
	Users        []Ref   `json:"users"`
}

func (a *API) challengeView(ch *model.Challenge) (*challengeView, error) {
	tracks, err := a.trackRefs(ch.Tracks)
	if err != nil {
		return nil, err
	}
	users, err := a.userRefs(ch.Users)
	if err != nil {
		return nil, err
	}
	return &challengeView{
		ID:           ch.ID,
		Name:         ch.Name,
		Tracks:       tracks,
		ActivityType: ch.ActivityType,
		Length:       ch.Length,
		Users:        users,
	}, nil
}

// challengeLength sums the lengths of the resolved tracks. Handles that no
// longer resolve count zero.
func (a *API) challengeLength(trackHandles []string) (float64, error) {
	total := 0.0
	for _, handle := range trackHandles {
		t, err := a.db.GetTrack(handle)
		if err != nil {
			return 0, err
		}
		if t != nil {
			total += t.Length
		}
	}
	return total, nil
}

// CreateChallenge handles POST /challenges
func (a *API) CreateChallenge(c *gin.Context) {
	var body challengeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tracks, err := a.resolver.ResolveTracks(body.Tracks, challengeTrackNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}
	users, err := a.resolver.ResolveUsers(body.Users, challengeUserNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}
	length, err := a.challengeLength(tracks)
	if err != nil {
		a.respondError(c, err)
		return
	}

	challenge := &model.Challenge{
		ID:           body.ID,
		Name:         body.Name,
		Tracks:       tracks,
		ActivityType: defaultActivity(body.ActivityType),
		Length:       length,
		Users:        users,
	}
	if err := model.Validate(challenge); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := a.db.InsertChallenge(challenge); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := a.syncer.AddChallengeToUsers(challenge); err != nil {
		a.respondError(c, err)
		return
	}

	view, err := a.challengeView(challenge)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ListChallenges handles GET /challenges with an optional exact-match name filter
func (a *API) ListChallenges(c *gin.Context) {
	var challenges []*model.Challenge
	var err error
	if name := c.Query("name"); name != "" {
		challenges, err = a.db.FindChallengesByName(name)
	} else {
		challenges, err = a.db.AllChallenges()
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(challenges) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*challengeView, 0, len(challenges))
	for _, ch := range challenges {
		view, err := a.challengeView(ch)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// GetChallenge handles GET /challenges/:id
func (a *API) GetChallenge(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	challenge, err := a.db.FindChallengeByID(id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if challenge == nil {
		c.Status(http.StatusNotFound)
		return
	}
	view, err := a.challengeView(challenge)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// applyChallengeUpdate merges the allowed fields onto the stored record,
// resolving any new references
func (a *API) applyChallengeUpdate(ch *model.Challenge, fields map[string]json.RawMessage) error {
	for name, raw := range fields {
		var err error
		switch name {
		case "name":
			err = json.Unmarshal(raw, &ch.Name)
		case "activity_type":
			err = json.Unmarshal(raw, &ch.ActivityType)
		case "tracks":
			var ids []int64
			if err = json.Unmarshal(raw, &ids); err == nil {
				ch.Tracks, err = a.resolver.ResolveTracks(ids, challengeTrackNotFound)
			}
		case "users":
			var ids []string
			if err = json.Unmarshal(raw, &ids); err == nil {
				ch.Users, err = a.resolver.ResolveUsers(ids, challengeUserNotFound)
			}
		case "length":
			// derived; client value discarded
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// updateChallenge persists the merged record with its length recomputed,
// then re-synchronizes the user mirrors
func (a *API) updateChallenge(ch *model.Challenge, fields map[string]json.RawMessage) error {
	previous := *ch
	if err := a.applyChallengeUpdate(ch, fields); err != nil {
		return err
	}

	length, err := a.challengeLength(ch.Tracks)
	if err != nil {
		return err
	}
	ch.Length = length

	if err := model.Validate(ch); err != nil {
		return err
	}
	if err := a.db.UpdateChallenge(ch); err != nil {
		return err
	}
	if err := a.syncer.RemoveChallengeFromUsers(&previous); err != nil {
		return err
	}
	return a.syncer.AddChallengeToUsers(ch)
}

// UpdateChallengesByName handles PATCH /challenges?name=
func (a *API) UpdateChallengesByName(c *gin.Context) {
	name, ok := requireName(c)
	if !ok {
		return
	}
	fields, ok := bindAllowed(c, challengeAllowedUpdates)
	if !ok {
		return
	}

	challenges, err := a.db.FindChallengesByName(name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(challenges) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*challengeView, 0, len(challenges))
	for _, ch := range challenges {
		if err := a.updateChallenge(ch, fields); err != nil {
			a.respondError(c, err)
			return
		}
		view, err := a.challengeView(ch)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// UpdateChallengeByID handles PATCH /challenges/:id
func (a *API) UpdateChallengeByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	fields, ok := bindAllowed(c, challengeAllowedUpdates)
	if !ok {
		return
	}

	challenge, err := a.db.FindChallengeByID(id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if challenge == nil {
		c.Status(http.StatusNotFound)
		return
	}

	if err := a.updateChallenge(challenge, fields); err != nil {
		a.respondError(c, err)
		return
	}
	view, err := a.challengeView(challenge)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// deleteChallenge removes the record and its mirror on every user
func (a *API) deleteChallenge(ch *model.Challenge) (*challengeView, error) {
	if err := a.db.DeleteChallenge(ch.Handle); err != nil {
		return nil, err
	}
	if err := a.syncer.RemoveChallengeFromUsers(ch); err != nil {
		return nil, err
	}
	return a.challengeView(ch)
}

// DeleteChallengesByName handles DELETE /challenges?name=
func (a *API) DeleteChallengesByName(c *gin.Context) {
	name, ok := requireName(c)
	if !ok {
		return
	}
	challenges, err := a.db.FindChallengesByName(name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(challenges) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*challengeView, 0, len(challenges))
	for _, ch := range challenges {
		view, err := a.deleteChallenge(ch)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// DeleteChallengeByID handles DELETE /challenges/:id
func (a *API) DeleteChallengeByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	challenge, err := a.db.FindChallengeByID(id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if challenge == nil {
		c.Status(http.StatusNotFound)
		return
	}
	view, err := a.deleteChallenge(challenge)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
