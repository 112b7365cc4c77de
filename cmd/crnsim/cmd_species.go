package main

import (
	"github.com/spf13/cobra"

	"crnsim/internal/parser"
	"crnsim/internal/simulate"
)

func (a *app) speciesCmd() *cobra.Command {
	var labels []string
	cmd := &cobra.Command{
		Use:   "species [file.crn]",
		Short: "List the species of a CRN in variable order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			src, err := a.readInput(path)
			if err != nil {
				return err
			}
			net, err := parser.ParseString(src)
			if err != nil {
				return err
			}
			order, err := simulate.Order(net, labels)
			if err != nil {
				return err
			}
			return simulate.ListLabels(a.stdout, order.Variables, order.Concentrations, order.Constant, 0)
		},
	}
	cmd.Flags().StringSliceVar(&labels, "labels", nil, "Species placed first in the variable order")
	return cmd
}
