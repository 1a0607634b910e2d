package solver

import "math"

// Scratch holds the RK4 stage buffers for one trajectory. Allocated
// once and reused for every step; stepping itself must not allocate.
type Scratch struct {
	k1, k2, k3, k4 []float64 // stage derivatives
	tmp            []float64 // intermediate ν
	w              []float64 // w = Vν
	drift          []float64 // drift = g + w − Υ
}

func NewScratch(d int) *Scratch {
	return &Scratch{
		k1:    make([]float64, d),
		k2:    make([]float64, d),
		k3:    make([]float64, d),
		k4:    make([]float64, d),
		tmp:   make([]float64, d),
		w:     make([]float64, d),
		drift: make([]float64, d),
	}
}

// rhs computes the replicator vector field in place:
//
//	out = ν ⊙ (g + Vν − Υ),   Υ = Σ_i ν_i (g_i + (Vν)_i)
//
// The replicator form conserves total mass analytically; residual
// numerical drift is corrected by Sanitize, not here.
func rhs(nu, g []float64, v *Matrix, w, drift, out []float64) {
	d := len(nu)

	for i := 0; i < d; i++ {
		row := v.Data[i*v.N : i*v.N+d]
		acc := 0.0
		for j := 0; j < d; j++ {
			acc += row[j] * nu[j]
		}
		w[i] = acc
	}

	upsilon := 0.0
	for i := 0; i < d; i++ {
		upsilon += nu[i] * (g[i] + w[i])
	}

	for i := 0; i < d; i++ {
		drift[i] = g[i] + w[i] - upsilon
	}

	for i := 0; i < d; i++ {
		out[i] = nu[i] * drift[i]
	}
}

// StepRaw advances ν by one explicit RK4 step into out. It enforces no
// simplex or capacity constraint; non-finite and nonpositive results
// are clamped to 0 to stop NaN propagation. The caller must sanitize
// the result immediately afterward.
func StepRaw(nu, g []float64, v *Matrix, dt float64, sc *Scratch, out []float64) {
	d := len(nu)
	halfDt := 0.5 * dt
	dtOver6 := dt / 6.0

	rhs(nu, g, v, sc.w, sc.drift, sc.k1)

	for i := 0; i < d; i++ {
		sc.tmp[i] = nu[i] + halfDt*sc.k1[i]
	}
	rhs(sc.tmp, g, v, sc.w, sc.drift, sc.k2)

	for i := 0; i < d; i++ {
		sc.tmp[i] = nu[i] + halfDt*sc.k2[i]
	}
	rhs(sc.tmp, g, v, sc.w, sc.drift, sc.k3)

	for i := 0; i < d; i++ {
		sc.tmp[i] = nu[i] + dt*sc.k3[i]
	}
	rhs(sc.tmp, g, v, sc.w, sc.drift, sc.k4)

	for i := 0; i < d; i++ {
		val := nu[i] + dtOver6*(sc.k1[i]+2*sc.k2[i]+2*sc.k3[i]+sc.k4[i])
		if math.IsNaN(val) || math.IsInf(val, 0) || val <= 0 {
			val = 0
		}
		out[i] = val
	}
}
