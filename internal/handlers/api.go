// Package handlers implements the REST surface: CRUD per entity kind with
// reference resolution, back-reference synchronization and derived-field
// recomputation around every mutation.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"destravate-api/internal/database"
	"destravate-api/internal/model"
	"destravate-api/internal/relations"
	"destravate-api/internal/stats"
)

// API bundles the store and the relational maintenance components behind
// the HTTP handlers.
type API struct {
	db       *database.DB
	resolver *relations.Resolver
	syncer   *relations.Syncer
	ranker   *relations.Ranker
	cascader *relations.Cascader
	stats    *stats.Aggregator
	logger   *slog.Logger
}

// NewAPI wires the relational components around a store
func NewAPI(db *database.DB) *API {
	aggregator := stats.NewAggregator(db)
	return &API{
		db:       db,
		resolver: relations.NewResolver(db),
		syncer:   relations.NewSyncer(db),
		ranker:   relations.NewRanker(db),
		cascader: relations.NewCascader(db, aggregator),
		stats:    aggregator,
		logger:   slog.Default(),
	}
}

// Ref is the {id, name} projection reference fields are populated into
type Ref struct {
	ID   any    `json:"id"`
	Name string `json:"name"`
}

// visitView is a populated historical entry
type visitView struct {
	Date  time.Time `json:"date"`
	Track Ref       `json:"track"`
}

// respondError translates component failures: an unresolved reference is a
// 404 with its positional message, anything else is a store-level 500.
func (a *API) respondError(c *gin.Context, err error) {
	var refErr *relations.ReferenceNotFoundError
	if errors.As(err, &refErr) {
		c.JSON(http.StatusNotFound, gin.H{"error": refErr.Error()})
		return
	}
	a.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// bindAllowed parses the request body and rejects any field outside the
// entity's allow-list. Public IDs are never updatable, so "id" is absent
// from every list.
func bindAllowed(c *gin.Context, allowed []string) (map[string]json.RawMessage, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}
	for name := range fields {
		if !slices.Contains(allowed, name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Actualización no permitida"})
			return nil, false
		}
	}
	return fields, true
}

// requireName enforces the ?name= query parameter on name-keyed mutations
func requireName(c *gin.Context) (string, bool) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Se debe proporcionar un nombre"})
		return "", false
	}
	return name, true
}

func (a *API) userRefs(handles []string) ([]Ref, error) {
	refs := make([]Ref, 0, len(handles))
	for _, handle := range handles {
		u, err := a.db.GetUser(handle)
		if err != nil {
			return nil, err
		}
		if u == nil {
			continue
		}
		refs = append(refs, Ref{ID: u.ID, Name: u.Name})
	}
	return refs, nil
}

func (a *API) trackRefs(handles []string) ([]Ref, error) {
	refs := make([]Ref, 0, len(handles))
	for _, handle := range handles {
		t, err := a.db.GetTrack(handle)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		refs = append(refs, Ref{ID: t.ID, Name: t.Name})
	}
	return refs, nil
}

func (a *API) groupRefs(handles []string) ([]Ref, error) {
	refs := make([]Ref, 0, len(handles))
	for _, handle := range handles {
		g, err := a.db.GetGroup(handle)
		if err != nil {
			return nil, err
		}
		if g == nil {
			continue
		}
		refs = append(refs, Ref{ID: g.ID, Name: g.Name})
	}
	return refs, nil
}

func (a *API) challengeRefs(handles []string) ([]Ref, error) {
	refs := make([]Ref, 0, len(handles))
	for _, handle := range handles {
		ch, err := a.db.GetChallenge(handle)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			continue
		}
		refs = append(refs, Ref{ID: ch.ID, Name: ch.Name})
	}
	return refs, nil
}

func (a *API) historicalViews(visits []model.HistoricalVisit) ([]visitView, error) {
	views := make([]visitView, 0, len(visits))
	for _, visit := range visits {
		t, err := a.db.GetTrack(visit.Track)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		views = append(views, visitView{Date: visit.Date, Track: Ref{ID: t.ID, Name: t.Name}})
	}
	return views, nil
}

// Health handles GET /health
func (a *API) Health(c *gin.Context) {
	if err := a.db.Health(); err != nil {
		a.logger.Error("Health check failed", "error", err)
		c.String(http.StatusServiceUnavailable, "unhealthy")
		return
	}
	c.String(http.StatusOK, "OK")
}

// defaultActivity fills the schema default when the client omits the field
func defaultActivity(activity string) string {
	if activity == "" {
		return model.ActivityRun
	}
	return activity
}
