package distance

import "gonum.org/v1/gonum/stat"

// GroupCost walks the group as a closed loop in the order given: the
// distances between consecutive members plus the distance from the last
// member back to the first.
func GroupCost(group []int, m *Matrix) float64 {
	if len(group) < 2 {
		return 0
	}

	cost := m.At(group[len(group)-1], group[0])
	for i := 0; i < len(group)-1; i++ {
		cost += m.At(group[i], group[i+1])
	}
	return cost
}

// PartitionCost is the mean GroupCost over all groups. Lower is better.
func PartitionCost(groups [][]int, m *Matrix) float64 {
	if len(groups) == 0 {
		return 0
	}

	costs := make([]float64, len(groups))
	for i, g := range groups {
		costs[i] = GroupCost(g, m)
	}
	return stat.Mean(costs, nil)
}
