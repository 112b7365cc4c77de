package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crnsim/internal/codec"
	"crnsim/internal/domain"
	"crnsim/internal/loader"
	"crnsim/internal/repository"
	"crnsim/internal/repository/sqlite"
	"crnsim/internal/service"
	"crnsim/internal/simulate"
	"crnsim/internal/solver"
)

type simulateFlags struct {
	compileFlags

	force        bool
	dryrun       bool
	listLabels   bool
	labelsStrict bool
	record       bool
	nxy          bool
	header       bool

	modelPath string

	p0    []string
	rates []string
	t0    float64
	t8    float64
	tLin  int
	tLog  int

	atol   float64
	rtol   float64
	mxstep int
}

func (a *app) simulateCmd() *cobra.Command {
	f := &simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate [file.crn]",
		Short: "Compile a CRN and integrate its ODE system",
		Long: `Compile a CRN (from a file or stdin), write the model as Go source, and
integrate it over a linear or logarithmic time grid. An existing model file
of the same name is reused unless --force is given.`,
		Example: `  crnsim simulate network.crn --p0 A=1 --p0 2=0.5 --t8 10 --nxy --header
  crnsim simulate network.crn --labels C,A --labels-strict --t-log 50 --t0 0.01
  echo "A -> B; A @i 1" | crnsim simulate --list-labels
  crnsim simulate --model odesystem.yaml --p0 A=1 --nxy`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.compileDefaults(cmd, &f.compileFlags)
			a.simulateDefaults(cmd, f)
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return a.runSimulate(ctxOf(cmd), f, path)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.outdir, "outdir", ".", "Directory of the model file")
	fl.StringVar(&f.odename, "odename", "odesystem", "Model name, also the model file name")
	fl.StringSliceVar(&f.labels, "labels", nil, "Species placed first in the variable order")
	fl.Float64Var(&f.defaultRate, "default-rate", 1, "Rate for reactions without one")
	fl.BoolVar(&f.jacobian, "jacobian", false, "Also derive the Jacobian")
	fl.BoolVar(&f.rateNames, "rate-names", false, "Bind rates as named parameters, overridable with --rate")

	fl.BoolVar(&f.force, "force", false, "Overwrite an existing model file")
	fl.BoolVar(&f.dryrun, "dryrun", false, "Write the model file and stop")
	fl.BoolVar(&f.listLabels, "list-labels", false, "Print variables with their initial values and stop")
	fl.BoolVar(&f.labelsStrict, "labels-strict", false, "Only print the species given by --labels")
	fl.BoolVar(&f.record, "record", false, "Store the run in the database")
	fl.BoolVar(&f.nxy, "nxy", false, "Print the trajectory as time and one column per species")
	fl.BoolVar(&f.header, "header", false, "Print a header line with --nxy")

	fl.StringVar(&f.modelPath, "model", "", "Simulate an exported model (.json, .yaml or .go) instead of compiling a CRN")
	fl.StringSliceVar(&f.p0, "p0", nil, "Initial concentrations as <name|index>=<value>")
	fl.StringSliceVar(&f.rates, "rate", nil, "Rate overrides as <name>=<value> (needs --rate-names)")
	fl.Float64Var(&f.t0, "t0", 0, "Start time")
	fl.Float64Var(&f.t8, "t8", 100, "End time")
	fl.IntVar(&f.tLin, "t-lin", 500, "Number of linearly spaced output points")
	fl.IntVar(&f.tLog, "t-log", 0, "Number of logarithmically spaced output points (overrides --t-lin)")

	fl.Float64Var(&f.atol, "atol", 0, "Absolute tolerance (default from precision profile)")
	fl.Float64Var(&f.rtol, "rtol", 0, "Relative tolerance (default from precision profile)")
	fl.IntVar(&f.mxstep, "mxstep", 0, "Step attempts per output interval (default from precision profile)")
	return cmd
}

// simulateDefaults takes config values for flags the user did not set
func (a *app) simulateDefaults(cmd *cobra.Command, f *simulateFlags) {
	changed := cmd.Flags().Changed
	c := a.cfg
	if !changed("t0") {
		f.t0 = c.Time.T0
	}
	if !changed("t8") {
		f.t8 = c.Time.T8
	}
	if !changed("t-lin") {
		f.tLin = c.Time.TLin
	}
	if !changed("t-log") {
		f.tLog = c.Time.TLog
	}
	if !changed("nxy") {
		f.nxy = c.Output.NXY
	}
	if !changed("header") {
		f.header = c.Output.Header
	}
	if !changed("record") {
		f.record = c.Database.Record
	}

	s := c.EffectiveSolver()
	if !changed("atol") {
		f.atol = s.AbsTol
	}
	if !changed("rtol") {
		f.rtol = s.RelTol
	}
	if !changed("mxstep") {
		f.mxstep = s.MaxSteps
	}
}

func (a *app) options(f *simulateFlags) (simulate.Options, error) {
	opts := simulate.Options{
		P0:   f.p0,
		T0:   f.t0,
		T8:   f.t8,
		TLin: f.tLin,
		TLog: f.tLog,
		Solver: solver.Options{
			AbsTol:      f.atol,
			RelTol:      f.rtol,
			MaxSteps:    f.mxstep,
			InitialStep: a.cfg.EffectiveSolver().InitialStep,
		},
	}
	if len(f.rates) > 0 {
		opts.Rates = make(map[string]float64, len(f.rates))
		for _, term := range f.rates {
			k, v, err := simulate.ParseAssignment(term)
			if err != nil {
				return opts, err
			}
			opts.Rates[k] = v
		}
	}
	return opts, nil
}

func (a *app) runSimulate(ctx context.Context, f *simulateFlags, path string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := a.options(f)
	if err != nil {
		return err
	}

	var (
		m   simulate.Model
		rec *domain.ModelRecord
	)
	if f.modelPath != "" {
		if path != "" {
			return fmt.Errorf("give either a CRN file or --model, not both")
		}
		if len(f.labels) > 0 {
			return fmt.Errorf("--labels cannot reorder an exported model")
		}
		m, rec, err = a.exportedModel(ctx, f.modelPath)
		if err != nil {
			return err
		}
		if len(opts.Rates) > 0 && len(m.Rates()) == 0 {
			return fmt.Errorf("%s has no named rates to override", f.modelPath)
		}
	} else {
		if len(opts.Rates) > 0 && !f.rateNames {
			return fmt.Errorf("--rate needs --rate-names")
		}

		src, err := a.readInput(path)
		if err != nil {
			return err
		}
		compiler := service.NewCompilerService(nil, a.logger)
		compileOpts := service.CompileOptions{
			Name:        f.odename,
			Labels:      f.labels,
			DefaultRate: f.defaultRate,
			Jacobian:    f.jacobian,
			RateNames:   f.rateNames,
		}
		art, err := compiler.Compile(ctx, src, compileOpts)
		if err != nil {
			return err
		}

		m, rec, err = a.modelFile(compiler, art, f)
		if err != nil {
			return err
		}
	}
	if f.dryrun {
		return nil
	}

	limit := 0
	if f.labelsStrict {
		limit = len(f.labels)
	}

	y0, err := simulate.InitialConcentrations(m, opts.P0)
	if err != nil {
		return err
	}
	if f.listLabels {
		return simulate.ListLabels(a.stdout, m.Variables(), y0, m.ConstantFlags(), limit)
	}
	if simulate.AllZero(y0) {
		a.note("WARNING: all initial concentrations are zero, the trajectory will be flat")
	}

	var repo repository.Repository
	if f.record {
		r, err := sqlite.New(a.cfg.Database.Path)
		if err != nil {
			return err
		}
		defer r.Close()
		repo = r
	}

	sim := service.NewSimulationService(repo, nil, a.logger)
	res, run, err := sim.Simulate(ctx, m, rec, y0, opts)
	if err != nil {
		return err
	}

	if f.nxy {
		err = simulate.WriteNXY(a.stdout, res, f.header, limit)
	} else {
		err = writeFinal(a.stdout, res, limit)
	}
	if err != nil {
		return err
	}
	if run != nil {
		a.note("Recorded run %s", run.ID)
	}
	return nil
}

// modelFile writes the model source next to the outputs, or loads the
// existing file when --force is not set
func (a *app) modelFile(compiler *service.CompilerService, art *service.Artifact, f *simulateFlags) (simulate.Model, *domain.ModelRecord, error) {
	path := filepath.Join(f.outdir, f.odename+".go")

	if _, err := os.Stat(path); err == nil && !f.force {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		m, err := loader.Load(string(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w (use --force to overwrite)", path, err)
		}
		a.note("Reusing existing model file %s (use --force to overwrite)", path)
		a.logger.Info("model loaded", zap.String("path", path), zap.Int("variables", len(m.Variables())))
		hash := service.SourceHash(string(data), service.CompileOptions{Name: m.Name()})
		return m, service.ModelRecordFor(m, hash), nil
	}

	var buf bytes.Buffer
	if err := compiler.Emit(art, "go", &buf); err != nil {
		return nil, nil, err
	}
	if err := a.writeOutput(path, buf.Bytes()); err != nil {
		return nil, nil, err
	}
	a.note("Wrote %s", path)
	return art.Model, art.Record(), nil
}

// exportedModel reads a model written by compile: a JSON or YAML
// description is rebuilt into a compiled model, Go source is interpreted
func (a *app) exportedModel(ctx context.Context, path string) (simulate.Model, *domain.ModelRecord, error) {
	format, ok := codec.FormatOf(path)
	if !ok {
		return nil, nil, fmt.Errorf("%s: unknown model format (want .json, .yaml or .go)", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	if format == "go" {
		m, err := loader.Load(string(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		return m, service.ModelRecordFor(m, service.SourceHash(string(data), service.CompileOptions{Name: m.Name()})), nil
	}

	fallback := modelName(path)
	art, err := service.NewCompilerService(nil, a.logger).Import(ctx, data, format, fallback)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	a.note("Loaded model %s from %s", art.Name, path)
	return art.Model, art.Record(), nil
}

// writeFinal prints the last sampled state
func writeFinal(w io.Writer, res *simulate.Result, limit int) error {
	t, y := res.Trajectory.Last()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Final concentrations at t = %g:\n", t)
	for i, v := range res.Variables {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(bw, "%d %s %.9e\n", i+1, v, y[i])
	}
	return bw.Flush()
}
