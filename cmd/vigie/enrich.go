package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich <affair-id>",
		Short: "Enrich a thin affair with web-sourced detail",
		Long:  "Searches the web for press coverage of the affair, extracts structured facts with the AI extractor, and applies them atomically. The affair's review moves to needs-review, never to publish.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := d.EnrichHandler.Handle(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if !result.Enriched {
					fmt.Printf("Nothing written: %s\n", result.Reasoning)
					return nil
				}
				fmt.Printf("Enriched affair %s: %d sources added", result.AffairID, result.SourcesAdded)
				if len(result.Changes) > 0 {
					fmt.Printf(", updated %s", strings.Join(result.Changes, ", "))
				}
				fmt.Println()
				return nil
			})
		},
	}
}
