package models

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point returns the coordinates as an orb point (x = longitude, y = latitude)
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// FromPoint converts an orb point back into coordinates
func FromPoint(p orb.Point) Coordinates {
	return Coordinates{Lat: p.Lat(), Lng: p.Lon()}
}

// RoundCoordinate rounds a coordinate to 5 decimal places (~1m)
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// Fitness is the fixed-arity result of evaluating a genome. It holds a
// single objective to be minimized.
type Fitness [1]float64

// Cost returns the single objective value
func (f Fitness) Cost() float64 { return f[0] }

// Stage identifies a level of the grouping hierarchy
type Stage string

const (
	StageAreas     Stage = "areas"     // clubs → areas
	StageDivisions Stage = "divisions" // area centroids → divisions
)

// Club represents a club to be placed into an area
type Club struct {
	Number int64   `json:"club_no"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// GetCoords returns the coordinates of the club
func (c *Club) GetCoords() Coordinates {
	return Coordinates{Lat: c.Lat, Lng: c.Lng}
}

// AreaClub is a club together with the area it was assigned to
type AreaClub struct {
	ClubNumber int64   `json:"club_no"`
	Area       int     `json:"area"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// GetCoords returns the coordinates of the club
func (a *AreaClub) GetCoords() Coordinates {
	return Coordinates{Lat: a.Lat, Lng: a.Lng}
}

// AreaCentroid is the mean location of the clubs in an area
type AreaCentroid struct {
	Area   int         `json:"area"`
	Coords Coordinates `json:"coords"`
}

// Alignment is one row of the final district alignment
type Alignment struct {
	ClubNumber int64   `json:"club_no"`
	Area       int     `json:"area"`
	Division   int     `json:"division"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// Artifact holds the cached inputs of one stage: its points and their distance matrix
type Artifact struct {
	Stage     Stage         `json:"stage"`
	Metric    string        `json:"metric"`
	Points    []Coordinates `json:"points"`
	Distances [][]float64   `json:"distances"`
}

// RunRecord is the best genome found by one optimization run
type RunRecord struct {
	ID        string    `json:"id"`
	Stage     Stage     `json:"stage"`
	Cost      float64   `json:"cost"`
	Genome    []int     `json:"genome"`
	CreatedAt time.Time `json:"created_at"`
}
