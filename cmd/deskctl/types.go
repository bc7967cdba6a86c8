package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"complaint-desk/internal/service"
)

var typesAll bool

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Curate the complaint type list",
}

var typesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List complaint types",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, closeFn, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeFn()

		ts, err := a.Types.List(cmd.Context(), typesAll)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tACTIVE\tORDER")
		for _, t := range ts {
			fmt.Fprintf(w, "%s\t%v\t%d\n", t.Name, t.Active, t.SortOrder)
		}
		return w.Flush()
	},
}

var typesAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a complaint type, or re-enable a deactivated one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeFn()

		t, err := a.Types.Add(cmd.Context(), service.AddTypeInput{Name: args[0]})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "type %q active\n", t.Name)
		return nil
	},
}

var typesDeactivateCmd = &cobra.Command{
	Use:   "deactivate NAME",
	Short: "Hide a complaint type from new submissions (existing complaints keep it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeFn, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := a.Types.Deactivate(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "type %q deactivated\n", args[0])
		return nil
	},
}

func init() {
	typesListCmd.Flags().BoolVar(&typesAll, "all", false, "include deactivated types")
	typesCmd.AddCommand(typesListCmd, typesAddCmd, typesDeactivateCmd)
}
