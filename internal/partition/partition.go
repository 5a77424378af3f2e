// Package partition decides how an ordered sequence of items is cut into
// consecutive groups of 4 or 5.
//
// With r = n mod 5, a remainder of 0 or 4 is chunked by 5 (the last chunk of a
// remainder-4 sequence holds 4 items). For r in {1,2,3}, k = 5-r groups are
// shrunk to size 4 and all of them sit at the tail: the leading n-4k items form
// groups of 5 and the trailing 4k items form k groups of 4.
package partition

const (
	MaxGroupSize = 5
	MinGroupSize = 4
)

// Partitioner decodes permutations of a fixed size into groups. It is
// immutable after New and safe for concurrent use.
type Partitioner struct {
	n      int
	lead   int // items covered by the leading groups of 5
	starts []int
}

// New builds the partitioner for n items.
func New(n int) (*Partitioner, error) {
	if n <= 0 {
		return nil, &TooSmallError{N: n, Required: MinGroupSize}
	}

	r := n % MaxGroupSize
	lead := n
	if r >= 1 && r <= 3 {
		k := MaxGroupSize - r
		if n < MinGroupSize*k {
			return nil, &TooSmallError{N: n, Remainder: r, Required: MinGroupSize * k}
		}
		lead = n - MinGroupSize*k
	}

	p := &Partitioner{n: n, lead: lead}
	for start := 0; start < n; {
		p.starts = append(p.starts, start)
		if start < lead {
			start += MaxGroupSize
		} else {
			start += MinGroupSize
		}
	}
	p.starts = append(p.starts, n)
	return p, nil
}

// Len returns the number of items the partitioner expects.
func (p *Partitioner) Len() int { return p.n }

// GroupCount returns ceil(n/5).
func (p *Partitioner) GroupCount() int { return len(p.starts) - 1 }

// Sizes returns the size of every group in decode order.
func (p *Partitioner) Sizes() []int {
	sizes := make([]int, p.GroupCount())
	for g := range sizes {
		sizes[g] = p.starts[g+1] - p.starts[g]
	}
	return sizes
}

// Decode splits perm into consecutive groups. The groups are views into perm
// and must not be modified.
func (p *Partitioner) Decode(perm []int) ([][]int, error) {
	if err := p.ValidatePermutation(perm); err != nil {
		return nil, err
	}

	groups := make([][]int, p.GroupCount())
	for g := range groups {
		a, b := p.starts[g], p.starts[g+1]
		groups[g] = perm[a:b:b]
	}

	if err := Verify(groups, perm); err != nil {
		return nil, err
	}
	return groups, nil
}

// Label returns the 1-based group index of position pos.
func (p *Partitioner) Label(pos int) int {
	if pos < p.lead {
		return pos/MaxGroupSize + 1
	}
	leadGroups := (p.lead + MaxGroupSize - 1) / MaxGroupSize
	return leadGroups + (pos-p.lead)/MinGroupSize + 1
}

// Labels returns the 1-based group index for every position 0..n-1.
func (p *Partitioner) Labels() []int {
	labels := make([]int, p.n)
	for pos := range labels {
		labels[pos] = p.Label(pos)
	}
	return labels
}

// ValidatePermutation checks that perm holds every index 0..n-1 exactly once.
func (p *Partitioner) ValidatePermutation(perm []int) error {
	if len(perm) != p.n {
		return inconsistent("permutation has %d items, expected %d", len(perm), p.n)
	}
	seen := make([]bool, p.n)
	for pos, v := range perm {
		if v < 0 || v >= p.n {
			return inconsistent("item %d at position %d out of range [0,%d)", v, pos, p.n)
		}
		if seen[v] {
			return inconsistent("item %d duplicated at position %d", v, pos)
		}
		seen[v] = true
	}
	return nil
}

// Verify checks that the concatenation of groups reproduces perm and that
// every group has size 4 or 5.
func Verify(groups [][]int, perm []int) error {
	pos := 0
	for g, group := range groups {
		if len(group) < MinGroupSize || len(group) > MaxGroupSize {
			return inconsistent("group %d has %d items", g+1, len(group))
		}
		for _, v := range group {
			if pos >= len(perm) || perm[pos] != v {
				return inconsistent("group %d diverges from permutation at position %d", g+1, pos)
			}
			pos++
		}
	}
	if pos != len(perm) {
		return inconsistent("groups cover %d of %d items", pos, len(perm))
	}
	return nil
}
