// Package noise implements the closed set of stochastic perturbations
// applied to a sanitized trajectory state once per step.
package noise

import (
	"math"
	"math/rand"

	"github.com/san-kum/replisim/internal/state"
)

// Kind selects a perturbation strategy.
type Kind string

const (
	// None leaves the state untouched.
	None Kind = "none"
	// Proportional perturbs each entry proportionally to its own
	// magnitude (multiplicative Gaussian noise).
	Proportional Kind = "proportional"
	// Demographic perturbs each entry proportionally to the square
	// root of its own value (finite-population sampling noise).
	Demographic Kind = "demographic"
)

// Model is a noise specification: variant plus strength. Perturbations
// scale with sqrt(dt) so successive small steps approximate a
// continuous diffusion.
type Model struct {
	Kind  Kind
	Sigma float64
}

func NewNone() Model {
	return Model{Kind: None}
}

func NewProportional(sigma float64) Model {
	return Model{Kind: Proportional, Sigma: sigma}
}

func NewDemographic(sigma float64) Model {
	return Model{Kind: Demographic, Sigma: sigma}
}

// Context holds per-trajectory scratch for noise generation, sized
// once to the state dimension so Apply never allocates.
type Context struct {
	incr []float64
}

func NewContext(d int) *Context {
	return &Context{incr: make([]float64, d)}
}

// Apply perturbs s.State in place. The input is expected to be freshly
// sanitized; the result is deliberately not re-sanitized, so the mass
// recorded for a noisy snapshot may drift slightly off the nominal
// invariant until the next sanitize call. Non-finite and nonpositive
// results are clamped to 0, matching the raw integrator policy.
func Apply(s *state.System, m Model, dt float64, ctx *Context, rng *rand.Rand) {
	if m.Kind == None {
		return
	}

	vec := s.State
	incr := ctx.incr[:len(vec)]
	scale := m.Sigma * math.Sqrt(dt)

	switch m.Kind {
	case Proportional:
		for i, x := range vec {
			incr[i] = scale * x * rng.NormFloat64()
		}
	case Demographic:
		for i, x := range vec {
			if x < 0 {
				x = 0
			}
			incr[i] = scale * math.Sqrt(x) * rng.NormFloat64()
		}
	default:
		return
	}

	for i := range vec {
		x := vec[i] + incr[i]
		if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
			x = 0
		}
		vec[i] = x
	}
}
