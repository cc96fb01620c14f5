package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibtissamelhani/induspress/internal/core/engine"
	"github.com/ibtissamelhani/induspress/internal/core/workflow"
)

func (a *app) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List article categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.engine.Query(cmd.Context(), workflow.QueryCategories, engine.Params{})
			if err != nil {
				return err
			}
			if ok, err := a.structured(cmd.OutOrStdout(), res.Categories); ok {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, headingStyle("ID\tNAME"))
			for _, c := range res.Categories {
				fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Name)
			}
			return tw.Flush()
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count articles per status (editors only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.engine.Query(cmd.Context(), workflow.QueryStats, engine.Params{})
			if err != nil {
				return err
			}
			st := res.Stats
			if ok, err := a.structured(cmd.OutOrStdout(), st); ok {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "%s\t%d\n", okStyle("Published"), st.Published)
			fmt.Fprintf(tw, "%s\t%d\n", warnStyle("Pending"), st.Pending)
			fmt.Fprintf(tw, "%s\t%d\n", deniedStyle("Rejected"), st.Rejected)
			fmt.Fprintf(tw, "Total\t%d\n", st.Total)
			return tw.Flush()
		},
	}
}
