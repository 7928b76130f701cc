package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"destravate-api/internal/model"
	"destravate-api/internal/relations"
)

const (
	groupParticipantNotFound = "El participante %d del grupo introducido no existe"
	groupFavouriteNotFound   = "La ruta favorita %d del grupo introducido no existe"
	groupHistoricalNotFound  = "La ruta del histórico %d del grupo introducido no existe"
)

var groupAllowedUpdates = []string{
	"name", "participants", "favourite_tracks", "tracks_historical",
}

type groupBody struct {
	ID               int64                     `json:"id"`
	Name             string                    `json:"name"`
	Participants     []string                  `json:"participants"`
	FavouriteTracks  []int64                   `json:"favourite_tracks"`
	TracksHistorical []relations.HistoricalRef `json:"tracks_historical"`
}

type groupView struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	Participants     []Ref            `json:"participants"`
	Statistics       model.Statistics `json:"statistics"`
	Ranking          []Ref            `json:"ranking"`
	FavouriteTracks  []Ref            `json:"favourite_tracks"`
	TracksHistorical []visitView      `json:"tracks_historical"`
}

func (a *API) groupView(g *model.Group) (*groupView, error) {
	participants, err := a.userRefs(g.Participants)
	if err != nil {
		return nil, err
	}
	ranking, err := a.userRefs(g.Ranking)
	if err != nil {
		return nil, err
	}
	favourites, err := a.trackRefs(g.FavouriteTracks)
	if err != nil {
		return nil, err
	}
	historical, err := a.historicalViews(g.TracksHistorical)
	if err != nil {
		return nil, err
	}
	return &groupView{
		ID:               g.ID,
		Name:             g.Name,
		Participants:     participants,
		Statistics:       g.Statistics,
		Ranking:          ranking,
		FavouriteTracks:  favourites,
		TracksHistorical: historical,
	}, nil
}

// CreateGroup handles POST /groups
func (a *API) CreateGroup(c *gin.Context) {
	var body groupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	participants, err := a.resolver.ResolveUsers(body.Participants, groupParticipantNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}
	ranking, err := a.ranker.Build(participants)
	if err != nil {
		a.respondError(c, err)
		return
	}
	favourites, err := a.resolver.ResolveTracks(body.FavouriteTracks, groupFavouriteNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}
	historical, err := a.resolver.ResolveHistorical(body.TracksHistorical, groupHistoricalNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}
	statistics, err := a.stats.Compute(historical)
	if err != nil {
		a.respondError(c, err)
		return
	}

	group := &model.Group{
		ID:               body.ID,
		Name:             body.Name,
		Participants:     participants,
		Statistics:       statistics,
		Ranking:          ranking,
		FavouriteTracks:  favourites,
		TracksHistorical: historical,
	}
	if err := model.Validate(group); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := a.db.InsertGroup(group); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := a.syncer.AddGroupToParticipants(group); err != nil {
		a.respondError(c, err)
		return
	}

	view, err := a.groupView(group)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ListGroups handles GET /groups with an optional exact-match name filter
func (a *API) ListGroups(c *gin.Context) {
	var groups []*model.Group
	var err error
	if name := c.Query("name"); name != "" {
		groups, err = a.db.FindGroupsByName(name)
	} else {
		groups, err = a.db.AllGroups()
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(groups) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*groupView, 0, len(groups))
	for _, g := range groups {
		view, err := a.groupView(g)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// GetGroup handles GET /groups/:id
func (a *API) GetGroup(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	group, err := a.db.FindGroupByID(id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if group == nil {
		c.Status(http.StatusNotFound)
		return
	}
	view, err := a.groupView(group)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// applyGroupUpdate merges the allowed fields onto the stored record,
// resolving any new references
func (a *API) applyGroupUpdate(g *model.Group, fields map[string]json.RawMessage) error {
	for name, raw := range fields {
		var err error
		switch name {
		case "name":
			err = json.Unmarshal(raw, &g.Name)
		case "participants":
			var ids []string
			if err = json.Unmarshal(raw, &ids); err == nil {
				g.Participants, err = a.resolver.ResolveUsers(ids, groupParticipantNotFound)
			}
		case "favourite_tracks":
			var ids []int64
			if err = json.Unmarshal(raw, &ids); err == nil {
				g.FavouriteTracks, err = a.resolver.ResolveTracks(ids, groupFavouriteNotFound)
			}
		case "tracks_historical":
			var refs []relations.HistoricalRef
			if err = json.Unmarshal(raw, &refs); err == nil {
				g.TracksHistorical, err = a.resolver.ResolveHistorical(refs, groupHistoricalNotFound)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// updateGroup persists the merged record with its derived fields
// recomputed, then re-synchronizes the participant mirrors
func (a *API) updateGroup(g *model.Group, fields map[string]json.RawMessage) error {
	previous := *g
	if err := a.applyGroupUpdate(g, fields); err != nil {
		return err
	}

	ranking, err := a.ranker.Build(g.Participants)
	if err != nil {
		return err
	}
	g.Ranking = ranking

	statistics, err := a.stats.Compute(g.TracksHistorical)
	if err != nil {
		return err
	}
	g.Statistics = statistics

	if err := model.Validate(g); err != nil {
		return err
	}
	if err := a.db.UpdateGroup(g); err != nil {
		return err
	}
	if err := a.syncer.RemoveGroupFromParticipants(&previous); err != nil {
		return err
	}
	return a.syncer.AddGroupToParticipants(g)
}

// UpdateGroupsByName handles PATCH /groups?name=
func (a *API) UpdateGroupsByName(c *gin.Context) {
	name, ok := requireName(c)
	if !ok {
		return
	}
	fields, ok := bindAllowed(c, groupAllowedUpdates)
	if !ok {
		return
	}

	groups, err := a.db.FindGroupsByName(name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(groups) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*groupView, 0, len(groups))
	for _, g := range groups {
		if err := a.updateGroup(g, fields); err != nil {
			a.respondError(c, err)
			return
		}
		view, err := a.groupView(g)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// UpdateGroupByID handles PATCH /groups/:id
func (a *API) UpdateGroupByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	fields, ok := bindAllowed(c, groupAllowedUpdates)
	if !ok {
		return
	}

	group, err := a.db.FindGroupByID(id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if group == nil {
		c.Status(http.StatusNotFound)
		return
	}

	if err := a.updateGroup(group, fields); err != nil {
		a.respondError(c, err)
		return
	}
	view, err := a.groupView(group)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// deleteGroup removes the record and its mirror on every participant
func (a *API) deleteGroup(g *model.Group) (*groupView, error) {
	if err := a.db.DeleteGroup(g.Handle); err != nil {
		return nil, err
	}
	if err := a.syncer.RemoveGroupFromParticipants(g); err != nil {
		return nil, err
	}
	return a.groupView(g)
}

// DeleteGroupsByName handles DELETE /groups?name=
func (a *API) DeleteGroupsByName(c *gin.Context) {
	name, ok := requireName(c)
	if !ok {
		return
	}
	groups, err := a.db.FindGroupsByName(name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(groups) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*groupView, 0, len(groups))
	for _, g := range groups {
		view, err := a.deleteGroup(g)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// DeleteGroupByID handles DELETE /groups/:id
func (a *API) DeleteGroupByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	group, err := a.db.FindGroupByID(id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if group == nil {
		c.Status(http.StatusNotFound)
		return
	}
	view, err := a.deleteGroup(group)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
