package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDedupCmd() *cobra.Command {
	var dryRun bool
	var limit int

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Detect and reconcile duplicate affairs",
		Long:  "Scans active affairs of each figure for duplicates. Certain and high confidence pairs are merged automatically; possible pairs are flagged for human review.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				report, err := d.DedupHandler.Handle(cmd.Context(), dryRun, limit)
				if err != nil {
					return err
				}

				stats := report.Stats
				if stats.DryRun {
					fmt.Println("Dry run, nothing written.")
				}
				fmt.Printf("Found %d candidate pairs: %d merged, %d flagged, %d already flagged\n",
					stats.PairsFound, stats.Merged, stats.Flagged, stats.AlreadyFlagged)
				for _, pair := range report.Pairs {
					fmt.Printf("  [%s] %q / %q (%s)\n",
						pair.Tier, pair.Older.Title, pair.Newer.Title, pair.Reason)
				}
				for _, err := range stats.Errors {
					fmt.Printf("  error: %v\n", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Detect and report without merging or flagging")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum affairs to scan (0 = all)")
	return cmd
}
