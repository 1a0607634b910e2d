// Package task sequences multi-epoch replicator experiments: epoch k's
// final state seeds epoch k+1, and an interrupted run can resume from
// the latest persisted epoch.
package task

import (
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/san-kum/replisim/internal/noise"
	"github.com/san-kum/replisim/internal/series"
	"github.com/san-kum/replisim/internal/solver"
	"github.com/san-kum/replisim/internal/state"
)

// Config parameterizes a sequence of epochs.
type Config struct {
	Mode          state.Mode
	Init          state.Vector // optional; nil means well-mixed uniform
	Interactions  *solver.Matrix
	Growth        []float64 // optional; nil means zero growth
	Noise         noise.Model
	Dt            float64
	StepsPerEpoch int
	SaveInterval  int
	Epochs        int
	OutputDir     string
	Seed          int64 // 0 means fresh entropy per run
}

// Status is shared advisory progress: written by the driver goroutine,
// polled by an observer such as the live TUI.
type Status struct {
	Epoch    atomic.Int64
	Epochs   int
	Steps    int
	Progress solver.Progress
}

func newRng(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Run executes cfg.Epochs trajectories back-to-back starting from the
// configured (or uniform) initial state, persisting one document per
// epoch under cfg.OutputDir. Returns the final state of the last epoch.
func Run(cfg Config, st *Status, obs solver.Observer) (*state.System, error) {
	var sys *state.System
	if cfg.Init != nil {
		sys = state.FromVector(cfg.Mode, 0, cfg.Init.Clone(), nil)
	} else {
		sys = state.WellMixed(cfg.Mode, cfg.Interactions.N)
	}

	return runFrom(sys, 1, cfg, st, obs)
}

// Resume loads the latest epoch document under cfg.OutputDir, rebuilds
// the trajectory state from its last sample, and continues for another
// cfg.Epochs epochs numbered after the loaded one.
func Resume(cfg Config, st *Status, obs solver.Observer) (*state.System, error) {
	ts, err := series.Load(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	sys, err := ts.Final()
	if err != nil {
		return nil, err
	}

	return runFrom(sys, ts.Epoch+1, cfg, st, obs)
}

func runFrom(sys *state.System, firstEpoch int, cfg Config, st *Status, obs solver.Observer) (*state.System, error) {
	rng := newRng(cfg.Seed)

	var prog *solver.Progress
	if st != nil {
		st.Epochs = firstEpoch + cfg.Epochs - 1
		st.Steps = cfg.StepsPerEpoch
		prog = &st.Progress
	}

	var err error
	for epoch := firstEpoch; epoch < firstEpoch+cfg.Epochs; epoch++ {
		if st != nil {
			st.Epoch.Store(int64(epoch))
		}

		sys, err = solver.Solve(sys, solver.Config{
			Epoch:        epoch,
			Interactions: cfg.Interactions,
			Growth:       cfg.Growth,
			Noise:        cfg.Noise,
			Dt:           cfg.Dt,
			NumSteps:     cfg.StepsPerEpoch,
			SaveInterval: cfg.SaveInterval,
			OutputDir:    cfg.OutputDir,
		}, rng, prog, obs)
		if err != nil {
			return nil, err
		}
	}

	return sys, nil
}
