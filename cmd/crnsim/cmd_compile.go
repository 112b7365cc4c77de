package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crnsim/internal/codec"
	"crnsim/internal/service"
	"crnsim/internal/watcher"
)

type compileFlags struct {
	output      string
	outdir      string
	odename     string
	format      string
	labels      []string
	defaultRate float64
	jacobian    bool
	rateNames   bool
	watch       bool
}

func (a *app) compileCmd() *cobra.Command {
	f := &compileFlags{}
	cmd := &cobra.Command{
		Use:   "compile [file.crn ...]",
		Short: "Translate CRN files into ODE model files",
		Long: `Compile each CRN file into a model file. With a single input (or stdin)
the model is named by --odename; with several inputs each model is named
after its file and all of them are compiled in parallel.`,
		Example: `  crnsim compile network.crn --jacobian
  crnsim compile -o - --format yaml < network.crn
  crnsim compile a.crn b.crn --outdir models --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.compileDefaults(cmd, f)
			return a.runCompile(ctxOf(cmd), f, args)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", `Output file, "-" for stdout (single input only)`)
	cmd.Flags().StringVar(&f.outdir, "outdir", ".", "Directory for model files")
	cmd.Flags().StringVar(&f.odename, "odename", "odesystem", "Model name for a single input")
	cmd.Flags().StringVar(&f.format, "format", "go", fmt.Sprintf("Output format %v", codec.Formats()))
	cmd.Flags().StringSliceVar(&f.labels, "labels", nil, "Species placed first in the variable order")
	cmd.Flags().Float64Var(&f.defaultRate, "default-rate", 1, "Rate for reactions without one")
	cmd.Flags().BoolVar(&f.jacobian, "jacobian", false, "Also derive the Jacobian")
	cmd.Flags().BoolVar(&f.rateNames, "rate-names", false, "Bind rates as named parameters k0, k1, ...")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Recompile whenever an input file is written")
	return cmd
}

// compileDefaults takes config values for flags the user did not set
func (a *app) compileDefaults(cmd *cobra.Command, f *compileFlags) {
	c := a.cfg.Compile
	if !cmd.Flags().Changed("odename") {
		f.odename = c.ODEName
	}
	if !cmd.Flags().Changed("format") {
		f.format = c.Format
	}
	if !cmd.Flags().Changed("default-rate") {
		f.defaultRate = c.DefaultRate
	}
	if !cmd.Flags().Changed("jacobian") {
		f.jacobian = c.Jacobian
	}
	if !cmd.Flags().Changed("rate-names") {
		f.rateNames = c.RateNames
	}
}

func (a *app) runCompile(ctx context.Context, f *compileFlags, files []string) error {
	if _, err := codec.ForFormat(f.format); err != nil {
		return err
	}
	if len(files) > 1 && f.output != "" {
		return errors.New("--output needs exactly one input file")
	}
	if f.watch && len(files) == 0 {
		return errors.New("--watch needs input files")
	}

	bus := service.NewEventBus()
	svc := service.NewCompilerService(bus, a.logger)

	var err error
	if len(files) <= 1 {
		path := ""
		if len(files) == 1 {
			path = files[0]
		}
		err = a.compileOne(ctx, svc, f, path, f.odename)
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for _, path := range files {
			path := path
			g.Go(func() error {
				return a.compileOne(gctx, svc, f, path, modelName(path))
			})
		}
		err = g.Wait()
	}
	if err != nil {
		if !f.watch {
			return err
		}
		reportError(a.stderr, err)
	}

	if !f.watch {
		return nil
	}
	return a.watchAndCompile(ctx, svc, bus, f, files)
}

func (a *app) compileOne(ctx context.Context, svc *service.CompilerService, f *compileFlags, path, name string) error {
	src, err := a.readInput(path)
	if err != nil {
		return err
	}
	art, err := svc.Compile(ctx, src, service.CompileOptions{
		Name:        name,
		Labels:      f.labels,
		DefaultRate: f.defaultRate,
		Jacobian:    f.jacobian,
		RateNames:   f.rateNames,
	})
	if err != nil {
		if path != "" {
			return fmt.Errorf("%s: %w", path, err)
		}
		return err
	}

	var buf bytes.Buffer
	if err := svc.Emit(art, f.format, &buf); err != nil {
		return err
	}

	out := f.output
	if out == "" {
		out = filepath.Join(f.outdir, name+codec.Extension(f.format))
	}
	if err := a.writeOutput(out, buf.Bytes()); err != nil {
		return err
	}
	if out != "-" {
		a.note("Wrote %s (%d species, %d reactions)", out, art.System.Len(), len(art.Graph.Reactions()))
	}
	return nil
}

func (a *app) watchAndCompile(ctx context.Context, svc *service.CompilerService, bus *service.EventBus, f *compileFlags, files []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan service.Event, 32)
	bus.Subscribe(events)
	defer bus.Unsubscribe(events)

	names := make(map[string]string, len(files))
	for _, path := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if len(files) == 1 {
			names[abs] = f.odename
		} else {
			names[abs] = modelName(path)
		}
	}

	w := watcher.New(files, func(path string) {
		if err := a.compileOne(ctx, svc, f, path, names[path]); err != nil {
			a.mu.Lock()
			reportError(a.stderr, err)
			a.mu.Unlock()
		}
		for {
			select {
			case ev := <-events:
				a.logger.Info("pipeline event", zap.String("type", string(ev.Type)), zap.String("model", ev.Model))
			default:
				return
			}
		}
	}, a.logger).WithDebounce(a.cfg.Watch.Debounce.Duration())

	err := w.Watch(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
