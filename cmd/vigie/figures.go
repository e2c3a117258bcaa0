package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vigie-publique/vigie-core/internal/application/handlers"
)

func newFiguresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "figures",
		Short: "Manage tracked public figures",
	}
	cmd.AddCommand(newFiguresListCmd(), newFiguresAddCmd())
	return cmd
}

func newFiguresListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				result, err := d.FiguresHandler.HandleList(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}

				for _, f := range result.Figures {
					fmt.Printf("%s  %-30s  score=%-4d  status=%s\n",
						f.ID, f.FullName, f.ProminenceScore, f.PublicationStatus)
				}
				fmt.Printf("\n%d of %d figures\n", len(result.Figures), result.Total)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum figures to list (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset into the list")
	return cmd
}

func newFiguresAddCmd() *cobra.Command {
	var lastName, birthDate, deathDate string

	cmd := &cobra.Command{
		Use:   "add <full name>",
		Short: "Add a figure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				figure, err := d.FiguresHandler.HandleAdd(cmd.Context(), handlers.AddFigureInput{
					FullName:  args[0],
					LastName:  lastName,
					BirthDate: birthDate,
					DeathDate: deathDate,
				})
				if err != nil {
					return err
				}

				fmt.Printf("Added figure %s (%s)\n", figure.FullName, figure.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name (defaults to the final token of the full name)")
	cmd.Flags().StringVar(&birthDate, "birth-date", "", "Birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&deathDate, "death-date", "", "Death date (YYYY-MM-DD)")
	return cmd
}
