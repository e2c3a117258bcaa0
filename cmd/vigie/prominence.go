package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProminenceCmd() *cobra.Command {
	var dryRun bool
	var limit int

	cmd := &cobra.Command{
		Use:   "prominence",
		Short: "Recompute prominence scores for all figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				stats, err := d.ProminenceHandler.Handle(cmd.Context(), dryRun, limit)
				if err != nil {
					return err
				}

				if stats.DryRun {
					fmt.Println("Dry run, nothing written.")
				}
				fmt.Printf("Scanned %d figures: %d updated, %d unchanged\n",
					stats.Scanned, stats.Updated, stats.Unchanged)
				for _, change := range stats.Sample {
					fmt.Printf("  %-30s  %d -> %d\n", change.Name, change.From, change.To)
				}
				for _, err := range stats.Errors {
					fmt.Printf("  error: %v\n", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and report without writing")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum figures to process (0 = all)")
	return cmd
}
