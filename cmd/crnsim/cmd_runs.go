package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"crnsim/internal/repository/sqlite"
	"crnsim/internal/service"
	"crnsim/internal/simulate"
	"crnsim/internal/solver"
)

func (a *app) runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded simulation runs",
	}
	cmd.AddCommand(a.runsListCmd(), a.runsShowCmd(), a.runsDeleteCmd())
	return cmd
}

// withRuns opens the run database for the duration of fn
func (a *app) withRuns(fn func(*service.SimulationService, *sqlite.Repository) error) error {
	repo, err := sqlite.New(a.cfg.Database.Path)
	if err != nil {
		return err
	}
	defer repo.Close()
	return fn(service.NewSimulationService(repo, nil, a.logger), repo)
}

func (a *app) runsListCmd() *cobra.Command {
	var modelID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuns(func(svc *service.SimulationService, _ *sqlite.Repository) error {
				runs, err := svc.Runs(ctxOf(cmd), modelID)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tMODEL\tSAMPLES\tCREATED")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.ModelName, r.Samples, r.CreatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&modelID, "model", "", "Only runs of this model id")
	return cmd
}

func (a *app) runsShowCmd() *cobra.Command {
	var header bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a recorded trajectory in nxy format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuns(func(svc *service.SimulationService, _ *sqlite.Repository) error {
				run, m, err := svc.GetRun(ctxOf(cmd), args[0])
				if err != nil {
					return err
				}
				if m != nil {
					a.note("Model %s (%s), %d samples", m.Name, m.ID, run.NumSamples())
				}
				res := &simulate.Result{
					Variables:  run.Variables,
					Initial:    run.Initial,
					Trajectory: &solver.Trajectory{Times: run.Times, Values: run.Values},
				}
				return simulate.WriteNXY(a.stdout, res, header, 0)
			})
		},
	}
	cmd.Flags().BoolVar(&header, "header", false, "Print a header line")
	return cmd
}

func (a *app) runsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuns(func(_ *service.SimulationService, repo *sqlite.Repository) error {
				return repo.DeleteRun(ctxOf(cmd), args[0])
			})
		},
	}
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
