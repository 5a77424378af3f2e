package search

import (
	"math/rand/v2"
	"slices"
)

// selectTournament picks k individuals, each the best of size random
// contenders drawn with replacement. Winners are cloned.
func selectTournament(rng *rand.Rand, population []*Individual, k, size int) []*Individual {
	size = max(size, 1)
	chosen := make([]*Individual, k)
	for i := range chosen {
		best := population[rng.IntN(len(population))]
		for j := 1; j < size; j++ {
			c := population[rng.IntN(len(population))]
			if c.Fitness.Cost() < best.Fitness.Cost() {
				best = c
			}
		}
		chosen[i] = best.clone()
	}
	return chosen
}

// crossoverUniformPMX is the uniform partially matched crossover: each
// position is exchanged between the parents with probability indpb, and the
// displaced values are swapped into place so both stay permutations.
func crossoverUniformPMX(rng *rand.Rand, a, b []int, indpb float64) {
	size := min(len(a), len(b))
	posA := make([]int, size)
	posB := make([]int, size)
	for i := 0; i < size; i++ {
		posA[a[i]] = i
		posB[b[i]] = i
	}

	for i := 0; i < size; i++ {
		if rng.Float64() >= indpb {
			continue
		}
		va, vb := a[i], b[i]

		a[i], a[posA[vb]] = vb, va
		b[i], b[posB[va]] = va, vb

		posA[va], posA[vb] = posA[vb], posA[va]
		posB[va], posB[vb] = posB[vb], posB[va]
	}
}

// mutateShuffleIndexes swaps each position with probability indpb with
// another random position.
func mutateShuffleIndexes(rng *rand.Rand, genome []int, indpb float64) {
	size := len(genome)
	if size < 2 {
		return
	}
	for i := 0; i < size; i++ {
		if rng.Float64() >= indpb {
			continue
		}
		j := rng.IntN(size - 1)
		if j >= i {
			j++
		}
		genome[i], genome[j] = genome[j], genome[i]
	}
}

// hallOfFame keeps the best distinct genomes ever seen, best first
type hallOfFame struct {
	capacity int
	members  []*Individual
}

func newHallOfFame(capacity int) *hallOfFame {
	return &hallOfFame{capacity: capacity}
}

func (h *hallOfFame) update(population []*Individual) {
	for _, ind := range population {
		if len(h.members) == h.capacity && ind.Fitness.Cost() >= h.members[len(h.members)-1].Fitness.Cost() {
			continue
		}
		if h.contains(ind.Genome) {
			continue
		}

		idx, _ := slices.BinarySearchFunc(h.members, ind.Fitness.Cost(), func(m *Individual, cost float64) int {
			if m.Fitness.Cost() <= cost {
				return -1
			}
			return 1
		})
		h.members = slices.Insert(h.members, idx, ind.clone())
		if len(h.members) > h.capacity {
			h.members = h.members[:h.capacity]
		}
	}
}

func (h *hallOfFame) contains(genome []int) bool {
	for _, m := range h.members {
		if slices.Equal(m.Genome, genome) {
			return true
		}
	}
	return false
}

func (h *hallOfFame) best() *Individual {
	return h.members[0]
}

func (h *hallOfFame) items() []Individual {
	out := make([]Individual, len(h.members))
	for i, m := range h.members {
		out[i] = *m.clone()
	}
	return out
}
