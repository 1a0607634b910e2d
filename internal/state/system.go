package state

import (
	"fmt"
	"math"

	"github.com/san-kum/replisim/internal/par"
)

// Below this dimension elementwise passes run sequentially; the
// per-element work is too cheap to amortize goroutine dispatch.
const minParallelDim = 4096

// System is one spatiotemporal snapshot: the well-mixed state vector,
// an optional spatial field, and the derived total mass, at an integer
// time index.
type System struct {
	Mode  Mode    `json:"mode"`
	Time  int     `json:"time"`
	State Vector  `json:"state"`
	Space *Field  `json:"space,omitempty"`
	Mass  float64 `json:"mass"`
}

// FromVector builds a System, normalizing the vector on construction
// in frequency mode (uniform fallback when the vector carries no
// mass). Population mode keeps the entries and reports the raw sum.
func FromVector(mode Mode, time int, vec Vector, space *Field) *System {
	sum := 0.0
	for _, x := range vec {
		sum += x
	}

	var mass float64
	switch mode.Kind {
	case KindFrequency:
		if sum > 0 {
			inv := 1 / sum
			for i := range vec {
				vec[i] *= inv
			}
			mass = 1
		} else if d := len(vec); d > 0 {
			v := 1 / float64(d)
			for i := range vec {
				vec[i] = v
			}
			mass = 1
		}
	case KindPopulation:
		mass = sum
	}

	return &System{
		Mode:  mode,
		Time:  time,
		State: vec,
		Space: space,
		Mass:  mass,
	}
}

// Empty builds an all-zero System with numTaxa entries and an optional
// all-zero spatial field of the given shape.
func Empty(mode Mode, time, numTaxa int, spaceShape []int) *System {
	var space *Field
	if spaceShape != nil {
		size := 1
		for _, n := range spaceShape {
			size *= n
		}
		shape := make([]int, len(spaceShape))
		copy(shape, spaceShape)
		space = &Field{Shape: shape, Data: make([]float64, size)}
	}
	return FromVector(mode, time, make(Vector, numTaxa), space)
}

// FromGrid builds a System from a discrete species-ID grid, counting
// cells per species and carrying the grid as the spatial field.
func FromGrid(mode Mode, time int, grid *Grid) *System {
	numTaxa := 0
	for _, cell := range grid.Cells {
		if cell > numTaxa {
			numTaxa = cell
		}
	}

	vec := make(Vector, numTaxa)
	for _, cell := range grid.Cells {
		if cell == 0 {
			continue
		}
		vec[cell-1]++
	}

	shape := make([]int, len(grid.Shape))
	copy(shape, grid.Shape)
	data := make([]float64, len(grid.Cells))
	for i, cell := range grid.Cells {
		data[i] = float64(cell)
	}

	s := FromVector(mode, time, vec, &Field{Shape: shape, Data: data})
	if mode.Kind == KindFrequency {
		s.Sanitize()
	}
	return s
}

// WellMixed builds a uniform state with no spatial field: 1/d per
// taxon in frequency mode, 1 per taxon in population mode.
func WellMixed(mode Mode, numTaxa int) *System {
	vec := make(Vector, numTaxa)
	for i := range vec {
		vec[i] = 1
	}
	return FromVector(mode, 0, vec, nil)
}

func (s *System) Clone() *System {
	return &System{
		Mode:  s.Mode.Clone(),
		Time:  s.Time,
		State: s.State.Clone(),
		Space: s.Space.Clone(),
		Mass:  s.Mass,
	}
}

// taxonIndex converts a 1-based species index to a vector offset.
// Out-of-range indices are a caller bug, not a runtime condition.
func (s *System) taxonIndex(i int) int {
	if i < 1 || i > len(s.State) {
		panic(fmt.Sprintf("state: species index %d out of range 1..%d", i, len(s.State)))
	}
	return i - 1
}

// Get returns the value for species i (1-based indexing).
func (s *System) Get(i int) float64 {
	return s.State[s.taxonIndex(i)]
}

// Set assigns the value for species i (1-based indexing), keeping the
// population-mode mass in step.
func (s *System) Set(i int, value float64) {
	idx := s.taxonIndex(i)
	old := s.State[idx]
	s.State[idx] = value

	if s.Mode.Kind == KindPopulation {
		s.Mass = math.Max(s.Mass+value-old, 0)
	}
}

// Increase adds one individual to species i (1-based indexing).
func (s *System) Increase(i int) {
	idx := s.taxonIndex(i)
	s.State[idx]++

	if s.Mode.Kind == KindPopulation {
		s.Mass++
	}
}

// Decrease removes one individual from species i (1-based indexing).
func (s *System) Decrease(i int) {
	idx := s.taxonIndex(i)
	s.State[idx]--

	if s.Mode.Kind == KindPopulation {
		s.Mass = math.Max(s.Mass-1, 0)
	}
}

// applyCutoff zeroes invalid, nonpositive, and below-cutoff entries.
// cutoff is assumed nonnegative by the caller.
func (s *System) applyCutoff(cutoff float64) {
	vec := s.State
	par.For(len(vec), minParallelDim, func(start, end int) {
		for i := start; i < end; i++ {
			x := vec[i]
			if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 || x < cutoff {
				vec[i] = 0
			}
		}
	})
}

func (s *System) scaleBy(factor float64) {
	vec := s.State
	par.For(len(vec), minParallelDim, func(start, end int) {
		for i := start; i < end; i++ {
			vec[i] *= factor
		}
	})
}

func (s *System) fillWith(value float64) {
	vec := s.State
	par.For(len(vec), minParallelDim, func(start, end int) {
		for i := start; i < end; i++ {
			vec[i] = value
		}
	})
}

func (s *System) sum() float64 {
	acc := 0.0
	for _, x := range s.State {
		acc += x
	}
	return acc
}

// Sanitize enforces mode-specific invariants in place and recomputes
// the mass:
//   - frequency: project onto the simplex (sum = 1), falling back to
//     the uniform distribution if the cutoff removed all mass
//   - population: optionally cap the sum at the carrying capacity by
//     proportional rescaling, mass = round(sum)
//
// Total over the floating-point domain: non-finite entries are zeroed,
// never propagated.
func (s *System) Sanitize() {
	cutoff := math.Max(s.Mode.Cutoff, 0)

	switch s.Mode.Kind {
	case KindFrequency:
		s.applyCutoff(cutoff)

		sum := s.sum()
		if sum > 0 {
			s.scaleBy(1 / sum)
		} else if d := len(s.State); d > 0 {
			s.fillWith(1 / float64(d))
		}

		s.Mass = 1 // simplex convention

	case KindPopulation:
		s.applyCutoff(cutoff)

		sum := s.sum()

		// No capacity constraint: just report (rounded) mass.
		if s.Mode.Capacity == nil {
			s.Mass = math.Max(math.Round(sum), 0)
			return
		}
		capacity := *s.Mode.Capacity

		// Degenerate capacity: zero out.
		if capacity <= 0 {
			s.fillWith(0)
			s.Mass = 0
			return
		}

		// Under capacity: keep as-is.
		if sum < capacity {
			s.Mass = math.Max(math.Round(sum), 0)
			return
		}

		// Exactly at capacity: keep as-is, skip the rescale entirely.
		if sum == capacity {
			s.Mass = math.Max(math.Round(capacity), 0)
			return
		}

		// Over capacity: rescale down to hit the cap exactly.
		s.scaleBy(capacity / sum)
		s.Mass = math.Max(math.Round(capacity), 0)
	}
}
