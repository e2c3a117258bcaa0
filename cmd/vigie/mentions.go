package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMentionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mentions <file>",
		Short: "Scan a text file for figure and party mentions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := d.MentionsHandler.HandleFile(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				fmt.Printf("Figures (%d):\n", len(result.Figures))
				for _, m := range result.Figures {
					fmt.Printf("  %-30s  matched %q\n", m.Name, m.MatchedText)
				}
				fmt.Printf("Parties (%d):\n", len(result.Parties))
				for _, m := range result.Parties {
					fmt.Printf("  %-30s  matched %q\n", m.Name, m.MatchedText)
				}
				return nil
			})
		},
	}
}
