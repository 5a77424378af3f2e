package distance

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/mat"

	"district-realign/internal/models"
)

// Metric selects how the distance between two coordinates is measured
type Metric string

const (
	MetricEuclidean Metric = "euclidean" // straight line in lat/long degrees
	MetricHaversine Metric = "haversine" // great-circle meters
)

var (
	ErrEmptyInput        = errors.New("no coordinates to measure")
	ErrDimensionMismatch = errors.New("distance matrix dimension mismatch")
	ErrInvalidMatrix     = errors.New("invalid distance matrix")
)

// ErrInvalidCoordinate is returned when a coordinate is NaN or infinite
type ErrInvalidCoordinate struct {
	Index  int
	Coords models.Coordinates
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate at index %d: (%f,%f)", e.Index, e.Coords.Lat, e.Coords.Lng)
}

// Between returns the distance between two coordinates under the metric.
func Between(a, b models.Coordinates, metric Metric) (float64, error) {
	switch metric {
	case MetricEuclidean, "":
		return planar.Distance(a.Point(), b.Point()), nil
	case MetricHaversine:
		return geo.Distance(a.Point(), b.Point()), nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", metric)
	}
}

// Matrix is an immutable symmetric matrix of pairwise distances. Reads are
// safe from any number of goroutines.
type Matrix struct {
	n   int
	sym *mat.SymDense
}

// Build measures every unordered pair of points once and mirrors it.
func Build(points []models.Coordinates, metric Metric) (*Matrix, error) {
	n := len(points)
	if n == 0 {
		return nil, ErrEmptyInput
	}
	for i, p := range points {
		if !finite(p.Lat) || !finite(p.Lng) {
			return nil, &ErrInvalidCoordinate{Index: i, Coords: p}
		}
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d, err := Between(points[i], points[j], metric)
			if err != nil {
				return nil, err
			}
			sym.SetSym(i, j, d)
		}
	}

	return &Matrix{n: n, sym: sym}, nil
}

// FromRows rebuilds a matrix from a previously exported row form, checking
// that it is square, symmetric, non-negative and zero on the diagonal.
func FromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	if n == 0 {
		return nil, ErrEmptyInput
	}

	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrDimensionMismatch, i, len(row), n)
		}
	}

	sym := mat.NewSymDense(n, nil)
	for i, row := range rows {
		if row[i] != 0 {
			return nil, fmt.Errorf("%w: non-zero diagonal at %d", ErrInvalidMatrix, i)
		}
		for j := i + 1; j < n; j++ {
			d := row[j]
			if !finite(d) || d < 0 {
				return nil, fmt.Errorf("%w: bad distance %v at (%d,%d)", ErrInvalidMatrix, d, i, j)
			}
			if math.Abs(d-rows[j][i]) > 1e-9 {
				return nil, fmt.Errorf("%w: asymmetric at (%d,%d)", ErrInvalidMatrix, i, j)
			}
			sym.SetSym(i, j, d)
		}
	}

	return &Matrix{n: n, sym: sym}, nil
}

// Len returns the number of points the matrix covers.
func (m *Matrix) Len() int { return m.n }

// At returns the distance between points i and j.
func (m *Matrix) At(i, j int) float64 {
	return m.sym.At(i, j)
}

// Rows exports the matrix as a dense slice of rows.
func (m *Matrix) Rows() [][]float64 {
	rows := make([][]float64, m.n)
	for i := range rows {
		rows[i] = make([]float64, m.n)
		for j := range rows[i] {
			rows[i][j] = m.sym.At(i, j)
		}
	}
	return rows
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
