package main

import (
	"errors"
	"fmt"

	"github.com/gnemet/SlideWeight/internal/bytefmt"
	"github.com/gnemet/SlideWeight/internal/database"
	"github.com/spf13/cobra"
)

var errNoDatabase = errors.New("no database configured (set DB_URL or PG_HOST)")

func newHistoryCommand(cli *CLI) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List presentations archived by watch mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.history(limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of analyses to show")
	return cmd
}

func (cli *CLI) history(limit int) error {
	if !cli.cfg.Database.IsConfigured() {
		return errNoDatabase
	}

	db, err := database.NewConnection(cli.cfg.Database.GetConnectStr())
	if err != nil {
		return err
	}
	defer db.Close()

	analyses, err := database.GetRecentAnalyses(db, limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(analyses) == 0 {
		fmt.Fprintln(cli.stdout, "No analyses archived yet.")
		return nil
	}

	for _, a := range analyses {
		fmt.Fprintf(cli.stdout, "%s  %-40s %4d slides  %10s\n",
			a.CreatedAt.Format("2006-01-02 15:04"), a.Filename, a.SlideCount, bytefmt.Format(a.TotalMediaBytes))
		if len(a.Slides) > 0 && a.Slides[0].TotalMediaBytes > 0 {
			s := a.Slides[0]
			title := "(no title)"
			if s.Title != nil {
				title = *s.Title
			}
			fmt.Fprintf(cli.stdout, "    heaviest: Slide %d | %s | title=%q\n", s.SlideIndex, bytefmt.Format(s.TotalMediaBytes), title)
		}
	}
	return nil
}
