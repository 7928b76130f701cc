// Package model declares the four record kinds persisted by the API and
// their schema validation rules.
package model

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
)

// Activity types accepted by tracks, users and challenges
const (
	ActivityRun  = "Correr"
	ActivityBike = "Bicicleta"
)

// Coordinates is a [latitude, longitude] pair
type Coordinates [2]float64

// Statistics is [[weekly km, weekly elevation], [monthly...], [yearly...]].
// It is always derived from a historical list, never client-authored.
type Statistics [3][2]float64

// HistoricalVisit records that the owning user or group traversed a track
// on a given date. Track holds the internal handle of the track record.
type HistoricalVisit struct {
	Date  time.Time `json:"date" validate:"notfuture"`
	Track string    `json:"track" validate:"required"`
}

// Track is a route that users can run or bike. Users mirrors the set of
// user handles that keep this track in their favourites or historical.
type Track struct {
	Handle          string      `json:"-"`
	ID              int64       `json:"id" validate:"gte=0"`
	Name            string      `json:"name" validate:"required"`
	BeginningCoords Coordinates `json:"beginning_coords" validate:"coords"`
	EndingCoords    Coordinates `json:"ending_coords" validate:"coords"`
	Length          float64     `json:"length" validate:"gt=0"`
	Slope           float64     `json:"slope" validate:"gt=0"`
	Users           []string    `json:"users"`
	ActivityType    string      `json:"activity_type" validate:"required,oneof=Correr Bicicleta"`
	AverageScore    float64     `json:"average_score" validate:"gte=0,lte=10"`
}

// User's relation fields hold internal handles. Friends is symmetric,
// Groups/ActiveChallenges mirror the owning group/challenge records.
type User struct {
	Handle           string            `json:"-"`
	ID               string            `json:"id" validate:"required"`
	Name             string            `json:"name" validate:"required"`
	ActivityType     string            `json:"activity_type" validate:"required,oneof=Correr Bicicleta"`
	Friends          []string          `json:"friends"`
	Groups           []string          `json:"groups"`
	Statistics       Statistics        `json:"statistics" validate:"dive,dive,gte=0"`
	FavouriteTracks  []string          `json:"favourite_tracks"`
	ActiveChallenges []string          `json:"active_challenges"`
	TracksHistorical []HistoricalVisit `json:"tracks_historical" validate:"dive"`
}

// Group's Ranking and Statistics are derived from the participants'
// historical lists and from TracksHistorical respectively.
type Group struct {
	Handle           string            `json:"-"`
	ID               int64             `json:"id" validate:"gte=0"`
	Name             string            `json:"name" validate:"required"`
	Participants     []string          `json:"participants"`
	Statistics       Statistics        `json:"statistics" validate:"dive,dive,gte=0"`
	Ranking          []string          `json:"ranking"`
	FavouriteTracks  []string          `json:"favourite_tracks"`
	TracksHistorical []HistoricalVisit `json:"tracks_historical" validate:"dive"`
}

// Challenge.Length is derived: the sum of the constituent track lengths.
type Challenge struct {
	Handle       string   `json:"-"`
	ID           int64    `json:"id" validate:"gte=0"`
	Name         string   `json:"name" validate:"required"`
	Tracks       []string `json:"tracks"`
	ActivityType string   `json:"activity_type" validate:"required,oneof=Correr Bicicleta"`
	Length       float64  `json:"length" validate:"gt=0"`
	Users        []string `json:"users"`
}

var validate = validator.New()

func init() {
	for tag, fn := range map[string]validator.Func{
		"coords":    validCoords,
		"notfuture": notFuture,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %q validation: %v", tag, err))
		}
	}
}

// Validate checks a record against its schema rules. Failures surface as
// store-level errors at the HTTP boundary.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// validCoords requires latitude in [-90, 90] and longitude in [-180, 180]
func validCoords(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Array || field.Len() != 2 {
		return false
	}
	lat := field.Index(0).Float()
	lon := field.Index(1).Float()
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// notFuture rejects historical visit dates after the current time
func notFuture(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !date.After(time.Now())
}
