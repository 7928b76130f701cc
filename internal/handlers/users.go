package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"destravate-api/internal/metrics"
	"destravate-api/internal/model"
	"destravate-api/internal/relations"
)

const (
	userFriendNotFound     = "El amigo %d del usuario introducido no existe"
	userGroupNotFound      = "El grupo %d del usuario introducido no existe"
	userChallengeNotFound  = "El reto %d del usuario introducido no existe"
	userFavouriteNotFound  = "La ruta favorita %d del usuario introducido no existe"
	userHistoricalNotFound = "La ruta del histórico %d del usuario introducido no existe"
)

var userAllowedUpdates = []string{
	"name", "activity_type", "friends", "groups", "active_challenges",
	"favourite_tracks", "tracks_historical",
}

type userBody struct {
	ID               string                    `json:"id"`
	Name             string                    `json:"name"`
	ActivityType     string                    `json:"activity_type"`
	Friends          []string                  `json:"friends"`
	Groups           []int64                   `json:"groups"`
	FavouriteTracks  []int64                   `json:"favourite_tracks"`
	ActiveChallenges []int64                   `json:"active_challenges"`
	TracksHistorical []relations.HistoricalRef `json:"tracks_historical"`
}

type userView struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	ActivityType     string           `json:"activity_type"`
	Friends          []Ref            `json:"friends"`
	Groups           []Ref            `json:"groups"`
	Statistics       model.Statistics `json:"statistics"`
	FavouriteTracks  []Ref            `json:"favourite_tracks"`
	ActiveChallenges []Ref            `json:"active_challenges"`
	TracksHistorical []visitView      `json:"tracks_historical"`
}

func (a *API) userView(u *model.User) (*userView, error) {
	friends, err := a.userRefs(u.Friends)
	if err != nil {
		return nil, err
	}
	groups, err := a.groupRefs(u.Groups)
	if err != nil {
		return nil, err
	}
	favourites, err := a.trackRefs(u.FavouriteTracks)
	if err != nil {
		return nil, err
	}
	challenges, err := a.challengeRefs(u.ActiveChallenges)
	if err != nil {
		return nil, err
	}
	historical, err := a.historicalViews(u.TracksHistorical)
	if err != nil {
		return nil, err
	}
	return &userView{
		ID:               u.ID,
		Name:             u.Name,
		ActivityType:     u.ActivityType,
		Friends:          friends,
		Groups:           groups,
		Statistics:       u.Statistics,
		FavouriteTracks:  favourites,
		ActiveChallenges: challenges,
		TracksHistorical: historical,
	}, nil
}

// attachUser mirrors a user onto every record it references
func (a *API) attachUser(u *model.User) error {
	if err := a.syncer.AddUserToFriends(u); err != nil {
		return err
	}
	if err := a.syncer.AddUserToGroups(u); err != nil {
		return err
	}
	if err := a.syncer.AddUserToChallenges(u); err != nil {
		return err
	}
	return a.syncer.AddUserToTracks(u)
}

// detachUser removes a user's mirror from every record it referenced
func (a *API) detachUser(u *model.User) error {
	if err := a.syncer.RemoveUserFromFriends(u); err != nil {
		return err
	}
	if err := a.syncer.RemoveUserFromGroups(u); err != nil {
		return err
	}
	if err := a.syncer.RemoveUserFromChallenges(u); err != nil {
		return err
	}
	return a.syncer.RemoveUserFromTracks(u)
}

// CreateUser handles POST /users
func (a *API) CreateUser(c *gin.Context) {
	var body userBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	friends, err := a.resolver.ResolveUsers(body.Friends, userFriendNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}
	groups, err := a.resolver.ResolveGroups(body.Groups, userGroupNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}
	challenges, err := a.resolver.ResolveChallenges(body.ActiveChallenges, userChallengeNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}
	favourites, err := a.resolver.ResolveTracks(body.FavouriteTracks, userFavouriteNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}
	historical, err := a.resolver.ResolveHistorical(body.TracksHistorical, userHistoricalNotFound)
	if err != nil {
		a.respondError(c, err)
		return
	}
	statistics, err := a.stats.Compute(historical)
	if err != nil {
		a.respondError(c, err)
		return
	}

	user := &model.User{
		ID:               body.ID,
		Name:             body.Name,
		ActivityType:     defaultActivity(body.ActivityType),
		Friends:          friends,
		Groups:           groups,
		Statistics:       statistics,
		FavouriteTracks:  favourites,
		ActiveChallenges: challenges,
		TracksHistorical: historical,
	}
	if err := model.Validate(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := a.db.InsertUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := a.attachUser(user); err != nil {
		a.respondError(c, err)
		return
	}

	view, err := a.userView(user)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// ListUsers handles GET /users with an optional exact-match name filter
func (a *API) ListUsers(c *gin.Context) {
	var users []*model.User
	var err error
	if name := c.Query("name"); name != "" {
		users, err = a.db.FindUsersByName(name)
	} else {
		users, err = a.db.AllUsers()
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(users) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*userView, 0, len(users))
	for _, u := range users {
		view, err := a.userView(u)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// GetUser handles GET /users/:id
func (a *API) GetUser(c *gin.Context) {
	user, err := a.db.FindUserByID(c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if user == nil {
		c.Status(http.StatusNotFound)
		return
	}
	view, err := a.userView(user)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// applyUserUpdate merges the allowed fields onto the stored record,
// resolving any new references
func (a *API) applyUserUpdate(u *model.User, fields map[string]json.RawMessage) error {
	for name, raw := range fields {
		var err error
		switch name {
		case "name":
			err = json.Unmarshal(raw, &u.Name)
		case "activity_type":
			err = json.Unmarshal(raw, &u.ActivityType)
		case "friends":
			var ids []string
			if err = json.Unmarshal(raw, &ids); err == nil {
				u.Friends, err = a.resolver.ResolveUsers(ids, userFriendNotFound)
			}
		case "groups":
			var ids []int64
			if err = json.Unmarshal(raw, &ids); err == nil {
				u.Groups, err = a.resolver.ResolveGroups(ids, userGroupNotFound)
			}
		case "active_challenges":
			var ids []int64
			if err = json.Unmarshal(raw, &ids); err == nil {
				u.ActiveChallenges, err = a.resolver.ResolveChallenges(ids, userChallengeNotFound)
			}
		case "favourite_tracks":
			var ids []int64
			if err = json.Unmarshal(raw, &ids); err == nil {
				u.FavouriteTracks, err = a.resolver.ResolveTracks(ids, userFavouriteNotFound)
			}
		case "tracks_historical":
			var refs []relations.HistoricalRef
			if err = json.Unmarshal(raw, &refs); err == nil {
				u.TracksHistorical, err = a.resolver.ResolveHistorical(refs, userHistoricalNotFound)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// updateUser persists the merged record and re-synchronizes every mirror:
// detach with the pre-update lists, then attach with the new ones.
func (a *API) updateUser(u *model.User, fields map[string]json.RawMessage) error {
	previous := *u
	if err := a.applyUserUpdate(u, fields); err != nil {
		return err
	}

	// Statistics are always a pure function of the current historical
	statistics, err := a.stats.Compute(u.TracksHistorical)
	if err != nil {
		return err
	}
	u.Statistics = statistics

	if err := model.Validate(u); err != nil {
		return err
	}
	if err := a.db.UpdateUser(u); err != nil {
		return err
	}
	if err := a.detachUser(&previous); err != nil {
		return err
	}
	return a.attachUser(u)
}

// UpdateUsersByName handles PATCH /users?name=
func (a *API) UpdateUsersByName(c *gin.Context) {
	name, ok := requireName(c)
	if !ok {
		return
	}
	fields, ok := bindAllowed(c, userAllowedUpdates)
	if !ok {
		return
	}

	users, err := a.db.FindUsersByName(name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(users) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*userView, 0, len(users))
	for _, u := range users {
		if err := a.updateUser(u, fields); err != nil {
			a.respondError(c, err)
			return
		}
		view, err := a.userView(u)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// UpdateUserByID handles PATCH /users/:id
func (a *API) UpdateUserByID(c *gin.Context) {
	fields, ok := bindAllowed(c, userAllowedUpdates)
	if !ok {
		return
	}

	user, err := a.db.FindUserByID(c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if user == nil {
		c.Status(http.StatusNotFound)
		return
	}

	if err := a.updateUser(user, fields); err != nil {
		a.respondError(c, err)
		return
	}
	view, err := a.userView(user)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// deleteUser removes the record and unwinds every mirror of it
func (a *API) deleteUser(u *model.User) (*userView, error) {
	if err := a.db.DeleteUser(u.Handle); err != nil {
		return nil, err
	}
	if err := a.cascader.RemoveUserEverywhere(u); err != nil {
		return nil, err
	}
	metrics.CascadeDeletionsTotal.WithLabelValues(metrics.CascadeUser).Inc()
	return a.userView(u)
}

// DeleteUsersByName handles DELETE /users?name=
func (a *API) DeleteUsersByName(c *gin.Context) {
	name, ok := requireName(c)
	if !ok {
		return
	}
	users, err := a.db.FindUsersByName(name)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if len(users) == 0 {
		c.Status(http.StatusNotFound)
		return
	}

	views := make([]*userView, 0, len(users))
	for _, u := range users {
		view, err := a.deleteUser(u)
		if err != nil {
			a.respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

// DeleteUserByID handles DELETE /users/:id
func (a *API) DeleteUserByID(c *gin.Context) {
	user, err := a.db.FindUserByID(c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if user == nil {
		c.Status(http.StatusNotFound)
		return
	}
	view, err := a.deleteUser(user)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
