// Package solver integrates replicator trajectories: a fixed-step
// explicit RK4 stepper over the replicator vector field, driven one
// epoch at a time with sanitize and noise applied between steps.
package solver

import (
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/san-kum/replisim/internal/noise"
	"github.com/san-kum/replisim/internal/series"
	"github.com/san-kum/replisim/internal/state"
)

// ErrSaveInterval is the configuration error for a zero save interval,
// detected before any work or side effect.
var ErrSaveInterval = errors.New("solver: save interval must be >= 1")

// Progress is a single-writer step counter updated by the driver after
// every step. Readers poll it for advisory display; updates carry no
// ordering guarantee relative to other memory.
type Progress struct {
	step atomic.Int64
}

func (p *Progress) Current() int {
	return int(p.step.Load())
}

// Observer is notified after each completed step. The state passed in
// is the live trajectory buffer; observers must not retain or mutate it.
type Observer interface {
	OnStep(step int, s *state.System)
}

// Config parameterizes one epoch trajectory.
type Config struct {
	Epoch        int
	Interactions *Matrix   // V, d×d
	Growth       []float64 // g; nil means zero growth
	Noise        noise.Model
	Dt           float64
	NumSteps     int
	SaveInterval int    // record every Nth step (t=0 always recorded)
	OutputDir    string // epoch document target
}

// Solve integrates one epoch: sanitize the initial state, then per
// step raw RK4 → sanitize → noise → record every SaveInterval steps,
// and finally persist the epoch's time series. Returns the final
// state, which seeds the next epoch.
//
// The initial state is mutated in place and consumed. Growth, matrix,
// and state dimensions must agree; a mismatch is a caller bug and
// panics. rng may be nil, in which case a time-seeded source is used.
func Solve(initial *state.System, cfg Config, rng *rand.Rand, prog *Progress, obs Observer) (*state.System, error) {
	if cfg.SaveInterval == 0 {
		return nil, ErrSaveInterval
	}

	d := len(initial.State)
	if cfg.Interactions.N != d {
		panic(fmt.Sprintf("solver: interaction matrix is %d×%d but state has %d taxa",
			cfg.Interactions.N, cfg.Interactions.N, d))
	}
	if cfg.Growth != nil && len(cfg.Growth) != d {
		panic(fmt.Sprintf("solver: growth vector has %d entries but state has %d taxa",
			len(cfg.Growth), d))
	}

	// Own g for inner-loop reuse; resolves the optional default once.
	g := make([]float64, d)
	copy(g, cfg.Growth)

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// Enforce invariants at t=0 and record unconditionally.
	initial.Sanitize()

	ts := series.Empty(cfg.Epoch, initial.Mode)
	ts.Add(initial)

	if prog != nil {
		prog.step.Store(0)
	}

	// Secondary buffer with the same mode; ownership alternates with
	// the current slot each step.
	curr := initial
	next := state.Empty(initial.Mode.Clone(), 0, d, nil)

	sc := NewScratch(d)
	noiseCtx := noise.NewContext(d)

	startTime := curr.Time
	for step := 1; step <= cfg.NumSteps; step++ {
		StepRaw(curr.State, g, cfg.Interactions, cfg.Dt, sc, next.State)

		next.Sanitize()

		noise.Apply(next, cfg.Noise, cfg.Dt, noiseCtx, rng)

		next.Time = startTime + step

		// O(1) ownership transfer; the old current becomes the next
		// raw-step target.
		curr, next = next, curr

		if step%cfg.SaveInterval == 0 {
			ts.Add(curr)
		}

		if prog != nil {
			prog.step.Store(int64(step))
		}
		if obs != nil {
			obs.OnStep(step, curr)
		}
	}

	if err := ts.Save(cfg.OutputDir); err != nil {
		return nil, err
	}

	return curr, nil
}
