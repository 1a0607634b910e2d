package state

// Kind selects the representation convention for a state vector.
type Kind string

const (
	// KindFrequency: entries live on the simplex, mass is always 1.
	KindFrequency Kind = "frequency"
	// KindPopulation: entries carry absolute counts, mass is the
	// rounded sum, optionally capped at a carrying capacity.
	KindPopulation Kind = "population"
)

// Mode tags a state vector with its representation convention and the
// parameters invariant enforcement needs. Cutoff is an absorbing
// boundary: entries below it are treated as extinct. Capacity is set
// only in population mode.
type Mode struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Cutoff   float64  `json:"cutoff" yaml:"cutoff"`
	Capacity *float64 `json:"carrying_capacity,omitempty" yaml:"carrying_capacity,omitempty"`
}

func Frequency(cutoff float64) Mode {
	return Mode{Kind: KindFrequency, Cutoff: cutoff}
}

func Population(cutoff float64) Mode {
	return Mode{Kind: KindPopulation, Cutoff: cutoff}
}

func PopulationCapped(cutoff, capacity float64) Mode {
	return Mode{Kind: KindPopulation, Cutoff: cutoff, Capacity: &capacity}
}

func (m Mode) Clone() Mode {
	c := m
	if m.Capacity != nil {
		v := *m.Capacity
		c.Capacity = &v
	}
	return c
}
