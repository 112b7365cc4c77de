package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"crnsim/internal/config"
	"crnsim/internal/logging"
	"crnsim/internal/parser"
)

// app carries the state shared by all subcommands
type app struct {
	verbose    int
	logFile    string
	configPath string

	cfg    *config.Config
	logger *zap.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	mu     sync.Mutex // guards stderr notes from parallel compiles
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := a.rootCmd().Execute(); err != nil {
		reportError(a.stderr, err)
		os.Exit(1)
	}
}

// reportError prints err, echoing the input line for syntax errors
func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	var syn *parser.SyntaxError
	if errors.As(err, &syn) {
		fmt.Fprintln(w, syn.Caret())
	}
}

// note prints a "# "-prefixed progress line to stderr
func (a *app) note(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.stderr, "# "+format+"\n", args...)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crnsim",
		Short: "Compile chemical reaction networks into ODE models and simulate them",
		Long: `crnsim reads a chemical reaction network in the plain-text CRN format,
derives the mass-action ODE system, and either writes it out as a model
(Go source, JSON or YAML) or integrates it directly.

  A + B -> C [k = 0.5]
  C <=> 2D   [kf = 1, kr = 0.1]
  A @initial 1; B @i 0.5; D @constant 2`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "Increase log verbosity (repeatable)")
	root.PersistentFlags().StringVar(&a.logFile, "logfile", "", "Write logs to this file instead of stderr")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: search $CRNSIM_CONFIG, ./crnsim.yaml, XDG dirs)")

	root.AddCommand(a.compileCmd(), a.simulateCmd(), a.speciesCmd(), a.runsCmd())
	return root
}

// setup loads the configuration and builds the logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if a.configPath != "" {
		cfg, path, err = config.LoadFromPath(a.configPath)
		if err == nil {
			err = cfg.ApplyEnv()
		}
		if err == nil {
			err = cfg.Validate()
		}
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	file := cfg.Logging.File
	if a.logFile != "" {
		file = a.logFile
	}
	a.logger, err = logging.New(logging.Verbosity(level, a.verbose), cfg.Logging.Format, file)
	if err != nil {
		return err
	}
	if path != "" {
		a.logger.Debug("config loaded", zap.String("path", path))
	}
	return nil
}
