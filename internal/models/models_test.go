package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClubGetCoords(t *testing.T) {
	c := Club{
		Number: 1234,
		Lat:    40.7128,
		Lng:    -74.0060,
	}

	coords := c.GetCoords()

	assert.Equal(t, 40.7128, coords.Lat)
	assert.Equal(t, -74.0060, coords.Lng)
}

func TestCoordinatesPointRoundTrip(t *testing.T) {
	coords := Coordinates{Lat: 35.6762, Lng: 139.6503}

	p := coords.Point()
	assert.Equal(t, 139.6503, p.X())
	assert.Equal(t, 35.6762, p.Y())

	assert.Equal(t, coords, FromPoint(p))
}

func TestRoundCoordinate(t *testing.T) {
	assert.Equal(t, 1.23457, RoundCoordinate(1.2345674))
	assert.Equal(t, -74.006, RoundCoordinate(-74.0060001))
}
