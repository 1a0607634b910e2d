package state

// Vector is an ordered per-taxon abundance/frequency vector.
type Vector []float64

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

// Field is an opaque multi-dimensional numeric payload carried
// alongside the state vector. The trajectory core stores and copies
// it but never interprets it.
type Field struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

func (f *Field) Clone() *Field {
	if f == nil {
		return nil
	}
	shape := make([]int, len(f.Shape))
	copy(shape, f.Shape)
	data := make([]float64, len(f.Data))
	copy(data, f.Data)
	return &Field{Shape: shape, Data: data}
}

// Grid is a discrete species-ID field (0 = vacant, 1 = species 1, ...)
// stored flat in row-major order.
type Grid struct {
	Shape []int
	Cells []int
}
