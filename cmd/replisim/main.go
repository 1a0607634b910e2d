package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/replisim/internal/config"
	"github.com/san-kum/replisim/internal/series"
	"github.com/san-kum/replisim/internal/solver"
	"github.com/san-kum/replisim/internal/state"
	"github.com/san-kum/replisim/internal/task"
	"github.com/san-kum/replisim/internal/tui"
)

var (
	configFile string
	outputDir  string
	taxa       int
	dt         float64
	steps      int
	epochs     int
	saveEvery  int
	cutoff     float64
	capacity   float64
	mode       string
	noiseKind  string
	sigma      float64
	seed       int64
	live       bool
	// plot flags
	taxon     int
	plotWidth int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "replisim",
		Short: "replicator population dynamics simulator",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a multi-epoch experiment",
		RunE:  runExperiment,
	}
	addRunFlags(runCmd)

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "continue an experiment from its latest persisted epoch",
		RunE:  resumeExperiment,
	}
	addRunFlags(resumeCmd)

	plotCmd := &cobra.Command{
		Use:   "plot [path]",
		Short: "plot per-taxon trajectories from an epoch document or output dir",
		Args:  cobra.ExactArgs(1),
		RunE:  plotSeries,
	}
	plotCmd.Flags().IntVar(&taxon, "taxon", 0, "plot only this taxon (1-based)")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")

	listCmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "list persisted epochs in an output directory",
		Args:  cobra.ExactArgs(1),
		RunE:  listEpochs,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage experiment configuration",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default experiment config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.Default())
		},
	}
	configShowCmd := &cobra.Command{
		Use:   "show [path]",
		Short: "validate and print a config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
	configCmd.AddCommand(configInitCmd, configShowCmd)

	rootCmd.AddCommand(runCmd, resumeCmd, plotCmd, listCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&outputDir, "out", config.DefaultOutput, "output directory")
	cmd.Flags().IntVar(&taxa, "taxa", config.DefaultTaxa, "number of taxa")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "steps per epoch")
	cmd.Flags().IntVar(&epochs, "epochs", config.DefaultEpochs, "number of epochs")
	cmd.Flags().IntVar(&saveEvery, "save-interval", config.DefaultSave, "record every Nth step")
	cmd.Flags().Float64Var(&cutoff, "cutoff", config.DefaultCutoff, "extinction cutoff")
	cmd.Flags().Float64Var(&capacity, "capacity", 0, "carrying capacity (population mode, 0 = unbounded)")
	cmd.Flags().StringVar(&mode, "mode", "frequency", "state mode: frequency or population")
	cmd.Flags().StringVar(&noiseKind, "noise", "demographic", "noise kind: none, proportional, demographic")
	cmd.Flags().Float64Var(&sigma, "sigma", config.DefaultSigma, "noise strength")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = fresh entropy)")
	cmd.Flags().BoolVar(&live, "live", false, "show live progress")
}

// buildConfig layers defaults, the optional config file, and explicit
// CLI flags, flags winning.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("out") {
		cfg.OutputDir = outputDir
	}
	if cmd.Flags().Changed("taxa") {
		cfg.Taxa = taxa
	}
	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("steps") {
		cfg.StepsPerEpoch = steps
	}
	if cmd.Flags().Changed("epochs") {
		cfg.Epochs = epochs
	}
	if cmd.Flags().Changed("save-interval") {
		cfg.SaveInterval = saveEvery
	}
	if cmd.Flags().Changed("cutoff") {
		cfg.Cutoff = cutoff
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = mode
	}
	if cmd.Flags().Changed("capacity") && capacity > 0 {
		c := capacity
		cfg.CarryingCapacity = &c
	}
	if cmd.Flags().Changed("noise") {
		cfg.Noise.Kind = noiseKind
	}
	if cmd.Flags().Changed("sigma") {
		cfg.Noise.Sigma = sigma
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}

	return cfg, nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	return execute(cmd, task.Run)
}

func resumeExperiment(cmd *cobra.Command, args []string) error {
	return execute(cmd, task.Resume)
}

type driveFunc func(task.Config, *task.Status, solver.Observer) (*state.System, error)

func execute(cmd *cobra.Command, drive driveFunc) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	tc, err := cfg.BuildTask()
	if err != nil {
		return err
	}

	var st task.Status
	start := time.Now()

	if live {
		err = tui.Run(&st, func() error {
			_, err := drive(tc, &st, nil)
			return err
		})
	} else {
		_, err = drive(tc, &st, nil)
	}
	if err != nil {
		return err
	}

	fmt.Printf("completed %d epochs in %v\n", tc.Epochs, time.Since(start).Round(time.Millisecond))
	fmt.Printf("output: %s\n", tc.OutputDir)
	return nil
}

func plotSeries(cmd *cobra.Command, args []string) error {
	ts, err := series.Load(args[0])
	if err != nil {
		return err
	}
	if len(ts.Samples) == 0 {
		return fmt.Errorf("no samples to plot in epoch %d", ts.Epoch)
	}

	fmt.Printf("epoch: %d\n", ts.Epoch)
	fmt.Printf("mode: %s (cutoff %g)\n", ts.Mode.Kind, ts.Mode.Cutoff)
	fmt.Printf("samples: %d\n\n", len(ts.Samples))

	d := len(ts.Samples[0].State)
	first, last := 0, d
	if taxon > 0 {
		if taxon > d {
			return fmt.Errorf("taxon %d out of range 1..%d", taxon, d)
		}
		first, last = taxon-1, taxon
	} else if d > 6 {
		last = 6 // keep the terminal readable
	}

	for idx := first; idx < last; idx++ {
		data := make([]float64, len(ts.Samples))
		for i, rec := range ts.Samples {
			data[i] = rec.State[idx]
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(plotWidth),
			asciigraph.Caption(fmt.Sprintf("taxon %d", idx+1)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func listEpochs(cmd *cobra.Command, args []string) error {
	dir := args[0]
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	epochNums := make([]int, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		epochNums = append(epochNums, n)
	}
	if len(epochNums) == 0 {
		fmt.Println("no epoch documents found")
		return nil
	}
	sort.Ints(epochNums)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EPOCH\tSAMPLES\tFROM\tTO\tFINAL MASS")

	for _, n := range epochNums {
		ts, err := series.Load(filepath.Join(dir, strconv.Itoa(n)+".json"))
		if err != nil {
			return err
		}
		if len(ts.Samples) == 0 {
			fmt.Fprintf(w, "%d\t0\t-\t-\t-\n", ts.Epoch)
			continue
		}
		firstRec := ts.Samples[0]
		lastRec := ts.Samples[len(ts.Samples)-1]
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%.4f\n",
			ts.Epoch, len(ts.Samples), firstRec.Time, lastRec.Time, lastRec.Mass)
	}

	return w.Flush()
}
