package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModerateCmd() *cobra.Command {
	var dryRun bool
	var limit int

	cmd := &cobra.Command{
		Use:   "moderate",
		Short: "Run the moderation pipeline over draft affairs",
		Long:  "Resolves duplicates, classifies unreviewed drafts with the AI moderator, and enriches thin rejected records. Classification only writes pending reviews; use 'moderate apply' to act on them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				stats, err := d.ModerateHandler.Handle(cmd.Context(), dryRun, limit)
				if err != nil {
					return err
				}

				if stats.DryRun {
					fmt.Println("Dry run, nothing written.")
				}
				if stats.Dedup != nil {
					fmt.Printf("Duplicates: %d pairs, %d merged, %d flagged\n",
						stats.Dedup.PairsFound, stats.Dedup.Merged, stats.Dedup.Flagged)
				}
				fmt.Printf("Classified %d affairs (%d failed)\n", stats.Classified, stats.ClassifyFailed)
				fmt.Printf("Enrichment: %d eligible, %d enriched, %d unchanged, %d failed\n",
					stats.EnrichmentEligible, stats.Enriched, stats.NotEnriched, stats.EnrichFailed)
				for _, err := range stats.Errors {
					fmt.Printf("  error: %v\n", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify and report without writing reviews")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum drafts to classify (0 = all)")

	cmd.AddCommand(newModerateApplyCmd())
	return cmd
}

func newModerateApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <review-id>",
		Short: "Apply a pending review to its affair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				status, err := d.ModerateHandler.HandleApply(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				fmt.Printf("Review %s applied: affair is now %s\n", args[0], status)
				return nil
			})
		},
	}
}
