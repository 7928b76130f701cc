package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"destravate-api/internal/metrics"
	"destravate-api/internal/middleware"
)

// NewRouter builds the full route table for the API
func NewRouter(api *API) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	tracks := r.Group("/tracks", middleware.Metrics(metrics.EndpointTracks))
	{
		tracks.POST("", api.CreateTrack)
		tracks.GET("", api.ListTracks)
		tracks.GET("/:id", api.GetTrack)
		tracks.PATCH("", api.UpdateTracksByName)
		tracks.PATCH("/:id", api.UpdateTrackByID)
		tracks.DELETE("", api.DeleteTracksByName)
		tracks.DELETE("/:id", api.DeleteTrackByID)
	}

	users := r.Group("/users", middleware.Metrics(metrics.EndpointUsers))
	{
		users.POST("", api.CreateUser)
		users.GET("", api.ListUsers)
		users.GET("/:id", api.GetUser)
		users.PATCH("", api.UpdateUsersByName)
		users.PATCH("/:id", api.UpdateUserByID)
		users.DELETE("", api.DeleteUsersByName)
		users.DELETE("/:id", api.DeleteUserByID)
	}

	groups := r.Group("/groups", middleware.Metrics(metrics.EndpointGroups))
	{
		groups.POST("", api.CreateGroup)
		groups.GET("", api.ListGroups)
		groups.GET("/:id", api.GetGroup)
		groups.PATCH("", api.UpdateGroupsByName)
		groups.PATCH("/:id", api.UpdateGroupByID)
		groups.DELETE("", api.DeleteGroupsByName)
		groups.DELETE("/:id", api.DeleteGroupByID)
	}

	challenges := r.Group("/challenges", middleware.Metrics(metrics.EndpointChallenges))
	{
		challenges.POST("", api.CreateChallenge)
		challenges.GET("", api.ListChallenges)
		challenges.GET("/:id", api.GetChallenge)
		challenges.PATCH("", api.UpdateChallengesByName)
		challenges.PATCH("/:id", api.UpdateChallengeByID)
		challenges.DELETE("", api.DeleteChallengesByName)
		challenges.DELETE("/:id", api.DeleteChallengeByID)
	}

	r.GET("/health", middleware.Metrics(metrics.EndpointHealth), api.Health)

	// Anything outside the route table is explicitly unimplemented
	r.NoRoute(middleware.Metrics(metrics.EndpointUnmatched), func(c *gin.Context) {
		c.Status(http.StatusNotImplemented)
	})

	return r
}
