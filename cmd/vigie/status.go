package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var dryRun bool
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Recompute publication statuses for all figures",
		Long:  "Evaluates the priority-ordered publication rules for every figure and applies the resulting status. Figures with a manual override are never touched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				stats, err := d.StatusHandler.Handle(cmd.Context(), dryRun, limit)
				if err != nil {
					return err
				}

				if stats.DryRun {
					fmt.Println("Dry run, nothing written.")
				}
				fmt.Printf("Scanned %d figures: %d unchanged, %d overridden\n",
					stats.Scanned, stats.Unchanged, stats.Overridden)
				for target, count := range stats.Changed {
					fmt.Printf("  -> %s: %d\n", target, count)
				}
				for _, change := range stats.Sample {
					fmt.Printf("  %-30s  %s -> %s\n", change.Name, change.From, change.To)
				}
				for _, err := range stats.Errors {
					fmt.Printf("  error: %v\n", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate and report without writing")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum figures to process (0 = all)")
	return cmd
}
