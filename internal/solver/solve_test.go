package solver

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/san-kum/replisim/internal/noise"
	"github.com/san-kum/replisim/internal/series"
	"github.com/san-kum/replisim/internal/state"
)

func solveConfig(t *testing.T, dir string) Config {
	t.Helper()
	m, err := MatrixFromRows([][]float64{
		{0.0, 1.0, -0.5, 0.2},
		{-0.3, 0.0, 0.8, -0.1},
		{0.4, -0.6, 0.0, 0.9},
		{-0.2, 0.1, -0.7, 0.0},
	})
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	return Config{
		Epoch:        1,
		Interactions: m,
		Growth:       []float64{0.1, 0.0, -0.05, 0.02},
		Noise:        noise.NewNone(),
		Dt:           1e-3,
		NumSteps:     100,
		SaveInterval: 10,
		OutputDir:    dir,
	}
}

func TestSolveSaveIntervalGuard(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	cfg := solveConfig(t, dir)
	cfg.SaveInterval = 0

	s := state.WellMixed(state.Frequency(1e-9), 4)
	_, err := Solve(s, cfg, nil, nil, nil)

	if !errors.Is(err, ErrSaveInterval) {
		t.Fatalf("expected ErrSaveInterval, got %v", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Error("expected no output directory to be created")
	}
}

func TestSolveRecordsExpectedSamples(t *testing.T) {
	dir := t.TempDir()
	cfg := solveConfig(t, dir)

	s := state.WellMixed(state.Frequency(1e-9), 4)
	final, err := Solve(s, cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if final.Time != 100 {
		t.Errorf("expected final time 100, got %d", final.Time)
	}

	ts, err := series.Load(filepath.Join(dir, "1.json"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// t=0 plus every 10th step.
	if len(ts.Samples) != 11 {
		t.Fatalf("expected 11 samples, got %d", len(ts.Samples))
	}
	for i, rec := range ts.Samples {
		if rec.Time != i*10 {
			t.Errorf("sample %d: expected time %d, got %d", i, i*10, rec.Time)
		}
	}

	// With no noise every recorded state sits exactly on the simplex.
	for i, rec := range ts.Samples {
		sum := 0.0
		for _, x := range rec.State {
			sum += x
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("sample %d off the simplex: sum=%.12f", i, sum)
		}
	}
}

func TestSolveSanitizesInitialState(t *testing.T) {
	dir := t.TempDir()
	cfg := solveConfig(t, dir)
	cfg.NumSteps = 1
	cfg.SaveInterval = 1

	s := state.Empty(state.Frequency(1e-9), 0, 4, nil)
	copy(s.State, []float64{2, 2, 0, 0}) // off the simplex on purpose

	if _, err := Solve(s, cfg, nil, nil, nil); err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	ts, err := series.Load(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	first := ts.Samples[0]
	if math.Abs(first.State[0]-0.5) > 1e-12 || math.Abs(first.State[1]-0.5) > 1e-12 {
		t.Errorf("t=0 sample not sanitized: %v", first.State)
	}
}

func TestSolveEpochChaining(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(11))

	s := state.WellMixed(state.Frequency(1e-9), 4)
	var prev state.Vector

	for epoch := 1; epoch <= 3; epoch++ {
		cfg := solveConfig(t, dir)
		cfg.Epoch = epoch
		cfg.Noise = noise.NewProportional(0.05)

		if prev != nil {
			for i := range prev {
				if s.State[i] != prev[i] {
					t.Fatalf("epoch %d initial state diverged from epoch %d final", epoch, epoch-1)
				}
			}
		}

		final, err := Solve(s, cfg, rng, nil, nil)
		if err != nil {
			t.Fatalf("epoch %d failed: %v", epoch, err)
		}

		prev = final.State.Clone()
		s = final
	}

	for epoch := 1; epoch <= 3; epoch++ {
		name := strconv.Itoa(epoch) + ".json"
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("epoch %d document missing: %v", epoch, err)
		}
	}
}

type countingObserver struct {
	steps int
	last  int
}

func (o *countingObserver) OnStep(step int, s *state.System) {
	o.steps++
	o.last = step
}

func TestSolveProgressAndObserver(t *testing.T) {
	dir := t.TempDir()
	cfg := solveConfig(t, dir)
	cfg.NumSteps = 25

	var prog Progress
	obs := &countingObserver{}

	s := state.WellMixed(state.Frequency(1e-9), 4)
	if _, err := Solve(s, cfg, nil, &prog, obs); err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if prog.Current() != 25 {
		t.Errorf("expected progress 25, got %d", prog.Current())
	}
	if obs.steps != 25 || obs.last != 25 {
		t.Errorf("expected 25 observer notifications ending at 25, got %d ending at %d", obs.steps, obs.last)
	}
}

func TestSolveTimeContinuesAcrossEpochs(t *testing.T) {
	dir := t.TempDir()

	s := state.WellMixed(state.Frequency(1e-9), 4)
	cfg := solveConfig(t, dir)
	cfg.NumSteps = 50

	final, err := Solve(s, cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("epoch 1 failed: %v", err)
	}

	cfg.Epoch = 2
	final, err = Solve(final, cfg, nil, nil, nil)
	if err != nil {
		t.Fatalf("epoch 2 failed: %v", err)
	}

	if final.Time != 100 {
		t.Errorf("expected time to continue to 100, got %d", final.Time)
	}
}

func TestSolveDimensionMismatchPanics(t *testing.T) {
	dir := t.TempDir()
	cfg := solveConfig(t, dir)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on dimension mismatch")
		}
	}()

	s := state.WellMixed(state.Frequency(1e-9), 3) // matrix is 4×4
	Solve(s, cfg, nil, nil, nil)
}
