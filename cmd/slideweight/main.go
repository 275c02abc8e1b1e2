package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gnemet/SlideWeight/internal/analyzer"
	"github.com/gnemet/SlideWeight/internal/config"
	"github.com/gnemet/SlideWeight/internal/logging"
	"github.com/gnemet/SlideWeight/internal/pptx"
	"github.com/gnemet/SlideWeight/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	programName = "slideweight"
	version     = "1.0.0"
)

// CLI holds the flags and runtime state of one invocation.
type CLI struct {
	stdout io.Writer
	stderr io.Writer

	top                int
	outputJSON         string
	outputCSV          string
	outputHTML         string
	includeSharedMedia bool
	ignoreSharedMedia  bool
	optimizationReport bool
	mastersReport      bool
	deleteUnused       bool
	cleanedOutput      string
	verbose            bool
	configPath         string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) (code int) {
	if len(args) == 0 {
		report.Intro(stdout, programName)
		return 0
	}

	cli := &CLI{stdout: stdout, stderr: stderr}
	defer func() {
		if r := recover(); r != nil {
			if cli.logger != nil {
				cli.logger.Error("Unexpected error occurred", zap.Any("panic", r), zap.Stack("stack"))
			}
			fmt.Fprintf(stderr, "Error: unexpected error: %v\n", r)
			code = 1
		}
	}()

	cmd := NewRootCommand(cli)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCommand creates the root cobra command
func NewRootCommand(cli *CLI) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   programName + " <input.pptx>",
		Short: "Analyze PowerPoint files to identify heavy slides with embedded media",
		Long: `Analyze PowerPoint files to identify heavy slides with embedded media.

By default every slide is ranked by the bytes of the images, videos and audio
it embeds. A media file used on several slides is counted on the first of them
unless --include-shared-media is given.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.initialize()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.analyze(cmd, args[0])
		},
	}
	rootCmd.SetOut(cli.stdout)
	rootCmd.SetErr(cli.stderr)
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().BoolVar(&cli.verbose, "verbose", false, "Enable verbose debug logging")
	rootCmd.PersistentFlags().StringVar(&cli.configPath, "config", "", "Config file (default: ./config.yaml if present)")

	flags := rootCmd.Flags()
	flags.IntVar(&cli.top, "top", 0, "Show only the top N heaviest slides")
	flags.StringVar(&cli.outputJSON, "output-json", "", "Write results as JSON to the specified path")
	flags.StringVar(&cli.outputCSV, "output-csv", "", "Write results as CSV to the specified path")
	flags.StringVar(&cli.outputHTML, "output-html", "", "Write the report as a standalone HTML page")
	flags.BoolVar(&cli.includeSharedMedia, "include-shared-media", false, "Count shared media on every slide that uses it")
	flags.BoolVar(&cli.ignoreSharedMedia, "ignore-shared-media", false, "Count shared media only on first slide (default)")
	flags.BoolVar(&cli.optimizationReport, "optimization-report", false, "Generate optimization recommendations for reducing file size (conference-quality focused)")
	flags.BoolVar(&cli.mastersReport, "masters-report", false, "Generate report on slide masters and layouts, including unused layouts with media")
	flags.BoolVar(&cli.deleteUnused, "delete-unused-layouts", false, "Delete unused layouts and save as new file (original is preserved)")
	flags.StringVar(&cli.cleanedOutput, "cleaned-output", "", "Output path for --delete-unused-layouts (default: <input>_cleaned.pptx)")

	rootCmd.MarkFlagsMutuallyExclusive("include-shared-media", "ignore-shared-media")
	rootCmd.MarkFlagsMutuallyExclusive("optimization-report", "masters-report", "delete-unused-layouts")

	rootCmd.AddCommand(newWatchCommand(cli))
	rootCmd.AddCommand(newHistoryCommand(cli))
	return rootCmd
}

func (cli *CLI) initialize() error {
	cfg, err := config.LoadConfig(cli.configPath)
	if err != nil {
		return err
	}
	cli.cfg = cfg

	level := cfg.Log.Level
	if cli.verbose {
		level = "debug"
	}
	cli.logger = logging.New(level, cfg.Log.Format, cli.stderr)
	return nil
}

// includeShared resolves the shared media policy: flags win over config.
func (cli *CLI) includeShared(cmd *cobra.Command) bool {
	switch {
	case cmd.Flags().Changed("include-shared-media"):
		return cli.includeSharedMedia
	case cmd.Flags().Changed("ignore-shared-media"):
		return !cli.ignoreSharedMedia
	default:
		return cli.cfg.Analysis.IncludeSharedMedia
	}
}

func (cli *CLI) topRows(cmd *cobra.Command) int {
	if cmd.Flags().Changed("top") {
		return cli.top
	}
	return cli.cfg.Analysis.Top
}

func (cli *CLI) analyze(cmd *cobra.Command, input string) error {
	defer cli.logger.Sync()

	pkg, err := pptx.Open(input)
	if err != nil {
		return err
	}
	defer pkg.Close()

	a := analyzer.New(cli.logger)

	if cli.outputCSV != "" && (cli.optimizationReport || cli.mastersReport || cli.deleteUnused) {
		cli.logger.Warn("CSV output is only written for the slide listing", zap.String("path", cli.outputCSV))
	}

	switch {
	case cli.deleteUnused:
		return cli.deleteUnusedLayouts(a, pkg, input)
	case cli.mastersReport:
		r := a.MastersReport(pkg)
		report.Masters(cli.stdout, r, input)
		return cli.writeFiles(r, report.MastersMarkdown(r, input, nil), input)
	case cli.optimizationReport:
		opps := a.Optimizations(pkg)
		report.Optimization(cli.stdout, opps, input)
		return cli.writeFiles(opps, report.OptimizationMarkdown(opps, input), input)
	default:
		results := a.SlideStats(pkg, cli.includeShared(cmd))
		report.Slides(cli.stdout, results, input, cli.topRows(cmd))
		if cli.outputCSV != "" {
			if err := report.WriteCSV(cli.outputCSV, results); err != nil {
				return err
			}
			cli.logger.Info("CSV output written", zap.String("path", cli.outputCSV))
		}
		return cli.writeFiles(results, report.SlidesMarkdown(results, input), input)
	}
}

// cleanupResult is the JSON document of --delete-unused-layouts.
type cleanupResult struct {
	analyzer.MastersReport
	Cleanup *analyzer.LayoutCleanup `json:"cleanup"`
}

func (cli *CLI) deleteUnusedLayouts(a *analyzer.Analyzer, pkg *pptx.Package, input string) error {
	r := a.MastersReport(pkg)
	report.Masters(cli.stdout, r, input)

	var res *analyzer.LayoutCleanup
	if r.UnusedLayouts > 0 {
		var err error
		res, err = a.DeleteUnusedLayouts(pkg, cli.cleanedOutput)
		if err != nil {
			return err
		}
		report.Cleanup(cli.stdout, res, input)
	} else {
		report.NoUnusedLayouts(cli.stdout)
	}

	return cli.writeFiles(cleanupResult{MastersReport: r, Cleanup: res}, report.MastersMarkdown(r, input, res), input)
}

// writeFiles writes the optional JSON and HTML reports of any mode.
func (cli *CLI) writeFiles(v any, markdown, input string) error {
	if cli.outputJSON != "" {
		if err := report.WriteJSON(cli.outputJSON, v); err != nil {
			return err
		}
		cli.logger.Info("JSON output written", zap.String("path", cli.outputJSON))
	}
	if cli.outputHTML != "" {
		title := fmt.Sprintf("SlideWeight: %s", filepath.Base(input))
		if err := report.WriteHTML(cli.outputHTML, title, markdown); err != nil {
			return err
		}
		cli.logger.Info("HTML output written", zap.String("path", cli.outputHTML))
	}
	return nil
}
