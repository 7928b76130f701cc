package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"destravate-api/internal/metrics"
	"destravate-api/internal/model"
)

const trackUserNotFound = "El usuario %d de la ruta introducida no existe"

var trackAllowedUpdates = []string{
	"name", "beginning_coords", "ending_coords", "length", "slope",
	"users", "activity_type", "average_score",
}

type trackBody struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	BeginningCoords model.Coordinates `json:"beginning_coords"`
	EndingCoords    model.Coordinates `json:"ending_coords"`
	Length          float64           `json:"length"`
	Slope           float64           `json:"slope"`
	Users           []string          `json:"users"`
	ActivityType    string            `json:"activity_type"`
	AverageScore    float64           `json:"average_score"`
}

type trackView struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	BeginningCoords model.Coordinates `json:"beginning_coords"`
	EndingCoords    model.Coordinates `json:"ending_coords"`
	Length          float64           `json:"length"`
	Slope           float64           `json:"slope"`
	Users           []Ref             `json:"users"`
	ActivityType    string            `json:"activity_type"`
	AverageScore    float64           `json:"average_score"`
}

func (a *API) trackView(t *model.Track) (*trackView, error) {
	users, err := a.userRefs(t.Users)
	if err != nil {
		return nil, err
	}
	return &trackView{
		ID:              t.ID,
		Name:            t.Name,
		BeginningCoords: t.BeginningCoords,
		EndingCoords:    t.EndingCoords,
		Length:          t.Length,
		Slope:           t.Slope,
		Users:           users,
		ActivityType:    t.ActivityType,
		AverageScore:    t.AverageScore,
	}, nil
}

// CreateTrack handles POST /tracks
func (a *API) CreateTrack(c *gin.Context) {
	var body trackBody
	if err := c.ShouldBindJSON(&body); err != nil {
		// Malformed field values surface as store-level failures
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	userHandles, err := a.resolver.ResolveUsers(body.Users, trackUserNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}

	track := &model.Track{
		ID:              body.ID,
		Name:            body.Name,
		BeginningCoords: body.BeginningCoords,
		EndingCoords:    body.EndingCoords,
		Length:          body.Length,
		Slope:           body.Slope,
		Users:           userHandles,
		ActivityType:    defaultActivity(body.ActivityType),
		AverageScore:    body.AverageScore,
	}
	if err := model.Validate(track); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := a.db.InsertTrack(track); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	view, err := a.trackView(track)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ListTracks handles GET /tracks with an optional exact-match name filter
func (a *API) ListTracks(c *gin.Context) {
	var tracks []*model.Track
	var err error
	if name := c.Query("name"); name != "" {
		tracks, err = a.db.FindTracksByName(name)
	} else {
		tracks, err = a.db.AllTracks()
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(tracks) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*trackView, 0, len(tracks))
	for _, t := range tracks {
		view, err := a.trackView(t)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// GetTrack handles GET /tracks/:id. The reference service answered ID
// lookups on tracks with a one-element array, so this does too.
func (a *API) GetTrack(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	track, err := a.db.FindTrackByID(id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if track == nil {
		c.Status(http.StatusNotFound)
		return
	}
	view, err := a.trackView(track)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, []*trackView{view})
}

// applyTrackUpdate merges the allowed fields onto the stored record,
// resolving any new user references
func (a *API) applyTrackUpdate(t *model.Track, fields map[string]json.RawMessage) error {
	for name, raw := range fields {
		var err error
		switch name {
		case "name":
			err = json.Unmarshal(raw, &t.Name)
		case "beginning_coords":
			err = json.Unmarshal(raw, &t.BeginningCoords)
		case "ending_coords":
			err = json.Unmarshal(raw, &t.EndingCoords)
		case "length":
			err = json.Unmarshal(raw, &t.Length)
		case "slope":
			err = json.Unmarshal(raw, &t.Slope)
		case "activity_type":
			err = json.Unmarshal(raw, &t.ActivityType)
		case "average_score":
			err = json.Unmarshal(raw, &t.AverageScore)
		case "users":
			var ids []string
			if err = json.Unmarshal(raw, &ids); err == nil {
				t.Users, err = a.resolver.ResolveUsers(ids, trackUserNotFound)
			}
		}
		if err != nil {
			return err
		}
	}
	return model.Validate(t)
}

// UpdateTracksByName handles PATCH /tracks?name=
func (a *API) UpdateTracksByName(c *gin.Context) {
	name, ok := requireName(c)
	if !ok {
		return
	}
	fields, ok := bindAllowed(c, trackAllowedUpdates)
	if !ok {
		return
	}

	tracks, err := a.db.FindTracksByName(name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(tracks) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*trackView, 0, len(tracks))
	for _, t := range tracks {
		if err := a.applyTrackUpdate(t, fields); err != nil {
			a.respondError(c, err)
			return
		}
		if err := a.db.UpdateTrack(t); err != nil {
			a.respondError(c, err)
			return
		}
		view, err := a.trackView(t)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// UpdateTrackByID handles PATCH /tracks/:id
func (a *API) UpdateTrackByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	fields, ok := bindAllowed(c, trackAllowedUpdates)
	if !ok {
		return
	}

	track, err := a.db.FindTrackByID(id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if track == nil {
		c.Status(http.StatusNotFound)
		return
	}

	if err := a.applyTrackUpdate(track, fields); err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.db.UpdateTrack(track); err != nil {
		a.respondError(c, err)
		return
	}
	view, err := a.trackView(track)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// deleteTrack removes the record and purges every reference to it before
// the response returns
func (a *API) deleteTrack(t *model.Track) (*trackView, error) {
	if err := a.db.DeleteTrack(t.Handle); err != nil {
		return nil, err
	}
	if err := a.cascader.RemoveTrackEverywhere(t.Handle); err != nil {
		return nil, err
	}
	metrics.CascadeDeletionsTotal.WithLabelValues(metrics.CascadeTrack).Inc()
	return a.trackView(t)
}

// DeleteTracksByName handles DELETE /tracks?name=
func (a *API) DeleteTracksByName(c *gin.Context) {
	name, ok := requireName(c)
	if !ok {
		return
	}
	tracks, err := a.db.FindTracksByName(name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(tracks) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*trackView, 0, len(tracks))
	for _, t := range tracks {
		view, err := a.deleteTrack(t)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// DeleteTrackByID handles DELETE /tracks/:id
func (a *API) DeleteTrackByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	track, err := a.db.FindTrackByID(id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if track == nil {
		c.Status(http.StatusNotFound)
		return
	}
	view, err := a.deleteTrack(track)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
