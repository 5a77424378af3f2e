// Package hierarchy carries grouping results from one level to the next:
// group centroids feed the next level, and the next level's labels are used
// to renumber the groups beneath them.
package hierarchy

import (
	"errors"
	"fmt"
	"sort"
)

// LabelsPerDivision is the label space available to the areas of one
// division: area labels are division*10 + local index.
const LabelsPerDivision = 10

var (
	ErrLabelCollision = errors.New("area label collision")
	ErrAmbiguousArea  = errors.New("area assigned to more than one division")
)

// LabelCollisionError is returned when a division holds more areas than its
// label space can number
type LabelCollisionError struct {
	Division int
	Areas    int
}

func (e *LabelCollisionError) Error() string {
	return fmt.Sprintf("%s: division %d has %d areas, at most %d can be numbered",
		ErrLabelCollision, e.Division, e.Areas, LabelsPerDivision)
}

func (e *LabelCollisionError) Is(target error) bool {
	return target == ErrLabelCollision
}

// AreaDivision pairs an area label with the division it belongs to
type AreaDivision struct {
	Area     int
	Division int
}

// Remap numbers the areas of each division division*10 + i, where i counts
// the division's areas from 0 in ascending area order. Divisions are taken
// in ascending order. Repeated pairs are ignored; the returned map covers
// exactly the areas present.
func Remap(pairs []AreaDivision) (map[int]int, error) {
	divisionOf := make(map[int]int, len(pairs))
	for _, p := range pairs {
		if d, ok := divisionOf[p.Area]; ok && d != p.Division {
			return nil, fmt.Errorf("%w: area %d in divisions %d and %d", ErrAmbiguousArea, p.Area, d, p.Division)
		}
		divisionOf[p.Area] = p.Division
	}

	ordered := make([]AreaDivision, 0, len(divisionOf))
	for area, division := range divisionOf {
		ordered = append(ordered, AreaDivision{Area: area, Division: division})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Division != ordered[j].Division {
			return ordered[i].Division < ordered[j].Division
		}
		return ordered[i].Area < ordered[j].Area
	})

	remapped := make(map[int]int, len(ordered))
	local := 0
	for i, p := range ordered {
		if i > 0 && ordered[i-1].Division != p.Division {
			local = 0
		}
		if local >= LabelsPerDivision {
			return nil, &LabelCollisionError{Division: p.Division, Areas: countIn(ordered, p.Division)}
		}
		remapped[p.Area] = p.Division*LabelsPerDivision + local
		local++
	}

	return remapped, nil
}

func countIn(pairs []AreaDivision, division int) int {
	n := 0
	for _, p := range pairs {
		if p.Division == division {
			n++
		}
	}
	return n
}
