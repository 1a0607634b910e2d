package series_test

import (
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/replisim/internal/series"
	"github.com/san-kum/replisim/internal/state"
)

var _ = Describe("TimeSeries", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("save and load round trip", func() {
		It("reproduces epoch, mode, and samples", func() {
			ts := series.Empty(1, state.Frequency(1e-5))
			s := state.FromVector(state.Frequency(1e-5), 0, state.Vector{1.0}, nil)
			ts.Add(s)

			Expect(ts.Save(dir)).To(Succeed())

			loaded, err := series.Load(filepath.Join(dir, "1.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Epoch).To(Equal(1))
			Expect(loaded.Mode.Kind).To(Equal(state.KindFrequency))
			Expect(loaded.Mode.Cutoff).To(Equal(1e-5))
			Expect(loaded.Samples).To(HaveLen(1))
			Expect(loaded.Samples[0].Time).To(Equal(0))
			Expect(loaded.Samples[0].State).To(Equal(state.Vector{1.0}))
			Expect(loaded.Samples[0].Space).To(BeNil())
			Expect(loaded.Samples[0].Mass).To(Equal(1.0))
		})

		It("preserves the carrying capacity and spatial field", func() {
			ts := series.Empty(3, state.PopulationCapped(0.5, 40))
			s := state.Empty(state.PopulationCapped(0.5, 40), 7, 2, []int{2, 2})
			copy(s.State, []float64{10, 20})
			copy(s.Space.Data, []float64{1, 2, 3, 4})
			s.Mass = 30
			ts.Add(s)

			Expect(ts.Save(dir)).To(Succeed())

			loaded, err := series.Load(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Mode.Capacity).NotTo(BeNil())
			Expect(*loaded.Mode.Capacity).To(Equal(40.0))
			Expect(loaded.Samples[0].Space.Shape).To(Equal([]int{2, 2}))
			Expect(loaded.Samples[0].Space.Data).To(Equal([]float64{1, 2, 3, 4}))
		})
	})

	Describe("Add", func() {
		It("copies the snapshot instead of aliasing it", func() {
			ts := series.Empty(1, state.Frequency(0))
			s := state.WellMixed(state.Frequency(0), 2)
			ts.Add(s)

			s.State[0] = 99
			Expect(ts.Samples[0].State[0]).To(Equal(0.5))
		})
	})

	Describe("resume from latest epoch", func() {
		It("selects the numerically largest epoch filename", func() {
			for _, epoch := range []int{1, 10, 2} {
				ts := series.Empty(epoch, state.Frequency(0))
				s := state.WellMixed(state.Frequency(0), 2)
				s.Time = epoch * 100
				ts.Add(s)
				Expect(ts.Save(dir)).To(Succeed())
			}

			loaded, err := series.Load(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Epoch).To(Equal(10))
			Expect(loaded.Samples[0].Time).To(Equal(1000))
		})

		It("ignores files that do not parse as epoch numbers", func() {
			ts := series.Empty(2, state.Frequency(0))
			ts.Add(state.WellMixed(state.Frequency(0), 2))
			Expect(ts.Save(dir)).To(Succeed())

			Expect(os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, "99.txt"), []byte("x"), 0644)).To(Succeed())

			_, epoch, err := series.Latest(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(epoch).To(Equal(2))
		})

		It("fails with ErrNoEpochs on an empty directory", func() {
			_, _, err := series.Latest(dir)
			Expect(err).To(MatchError(series.ErrNoEpochs))
		})
	})

	Describe("failure modes", func() {
		It("reports malformed documents as decode errors", func() {
			path := filepath.Join(dir, "1.json")
			Expect(os.WriteFile(path, []byte("not json"), 0644)).To(Succeed())

			_, err := series.Load(path)
			Expect(err).To(MatchError(series.ErrDecode))
		})

		It("reports unencodable values as encode errors", func() {
			ts := series.Empty(1, state.Frequency(0))
			s := state.WellMixed(state.Frequency(0), 1)
			s.Mass = math.NaN()
			ts.Add(s)

			Expect(ts.Save(dir)).To(MatchError(series.ErrEncode))
		})

		It("reports missing paths as I/O errors, not decode errors", func() {
			_, err := series.Load(filepath.Join(dir, "missing.json"))
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(series.ErrDecode))
		})
	})

	Describe("Final", func() {
		It("rebuilds a mutable state from the last sample", func() {
			ts := series.Empty(1, state.Frequency(1e-5))
			first := state.WellMixed(state.Frequency(1e-5), 2)
			ts.Add(first)
			last := state.FromVector(state.Frequency(1e-5), 50, state.Vector{0.9, 0.1}, nil)
			ts.Add(last)

			s, err := ts.Final()
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Time).To(Equal(50))
			Expect(s.State).To(Equal(state.Vector{0.9, 0.1}))

			s.State[0] = 0
			Expect(ts.Samples[1].State[0]).To(Equal(0.9))
		})

		It("fails on an empty series", func() {
			ts := series.Empty(1, state.Frequency(0))
			_, err := ts.Final()
			Expect(err).To(MatchError(series.ErrEmpty))
		})
	})
})
