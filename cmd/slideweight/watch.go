package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnemet/SlideWeight/internal/database"
	"github.com/gnemet/SlideWeight/internal/observer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCommand(cli *CLI) *cobra.Command {
	var reportDir string

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Analyze every presentation dropped into a directory",
		Long: `Watch a stage directory and analyze every existing and newly written .pptx.

Each deck is analyzed once per content checksum. Reports are written to the
report directory when one is configured, and archived in PostgreSQL when
database settings are present.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cli.cfg.Watch.Dir = args[0]
			}
			if cmd.Flags().Changed("report-dir") {
				cli.cfg.Watch.ReportDir = reportDir
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cli.watch(ctx)
		},
	}
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Directory for <name>.report.json files")
	return cmd
}

func (cli *CLI) watch(ctx context.Context) error {
	defer cli.logger.Sync()

	var store observer.Store
	if cli.cfg.Database.IsConfigured() {
		db, err := database.NewConnection(cli.cfg.Database.GetConnectStr())
		if err != nil {
			return err
		}
		defer db.Close()
		cli.logger.Info("Database connection established")

		if err := database.EnsureSchema(db); err != nil {
			return err
		}
		store = &database.Archive{DB: db}
	} else {
		cli.logger.Info("No database configured, analyses are not archived")
	}

	o := observer.NewObserver(cli.cfg, store, cli.logger)
	if err := o.Start(ctx); err != nil {
		return err
	}
	cli.logger.Info("Watcher stopped", zap.String("dir", cli.cfg.Watch.Dir))
	return nil
}
