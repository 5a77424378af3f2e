package hierarchy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"district-realign/internal/models"
)

var ErrNoMembers = errors.New("no members to locate")

// Centroids returns the mean coordinate of the points sharing each label,
// ordered by label.
func Centroids(points []models.Coordinates, labels []int) ([]models.AreaCentroid, error) {
	if len(points) == 0 {
		return nil, ErrNoMembers
	}
	if len(points) != len(labels) {
		return nil, fmt.Errorf("centroids: %d points but %d labels", len(points), len(labels))
	}

	members := make(map[int]orb.MultiPoint)
	for i, label := range labels {
		members[label] = append(members[label], points[i].Point())
	}

	centroids := make([]models.AreaCentroid, 0, len(members))
	for label, mp := range members {
		c, _ := planar.CentroidArea(mp)
		centroids = append(centroids, models.AreaCentroid{Area: label, Coords: models.FromPoint(c)})
	}
	sort.Slice(centroids, func(i, j int) bool { return centroids[i].Area < centroids[j].Area })

	return centroids, nil
}

// AreaCentroids groups area clubs by their area and locates each area.
func AreaCentroids(clubs []models.AreaClub) ([]models.AreaCentroid, error) {
	points := make([]models.Coordinates, len(clubs))
	labels := make([]int, len(clubs))
	for i := range clubs {
		points[i] = clubs[i].GetCoords()
		labels[i] = clubs[i].Area
	}
	return Centroids(points, labels)
}
