// Package report renders analysis results for people (console, Markdown,
// HTML) and for tools (JSON, CSV).
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gnemet/SlideWeight/internal/analyzer"
	"github.com/gnemet/SlideWeight/internal/bytefmt"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

var (
	heavyRule = strings.Repeat("=", 80)
	lightRule = strings.Repeat("-", 80)
)

const noTitle = "(no title)"

func titleOrPlaceholder(t string) string {
	if t == "" {
		return noTitle
	}
	return t
}

// Intro is printed when the program runs without arguments.
func Intro(w io.Writer, prog string) {
	const heading = "SlideWeight: PowerPoint Heavy Slides Analyzer"
	fmt.Fprintln(w, bold(heading))
	fmt.Fprintln(w, strings.Repeat("=", len(heading)))
	fmt.Fprintln(w, "\nAnalyzes .pptx files to identify which slides contribute most")
	fmt.Fprintln(w, "to file size due to embedded media (images, videos, audio).")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintf(w, "  %s <file.pptx>                    Analyze media by slide\n", prog)
	fmt.Fprintf(w, "  %s <file.pptx> --top 5            Show top 5 heaviest slides\n", prog)
	fmt.Fprintf(w, "  %s <file.pptx> --optimization-report\n", prog)
	fmt.Fprintln(w, "                                             Find image optimization opportunities")
	fmt.Fprintf(w, "  %s <file.pptx> --masters-report   Analyze slide masters/layouts\n", prog)
	fmt.Fprintf(w, "  %s <file.pptx> --delete-unused-layouts\n", prog)
	fmt.Fprintln(w, "                                             Remove unused layouts")
	fmt.Fprintf(w, "  %s watch [dir]                    Analyze decks dropped into a folder\n", prog)
	fmt.Fprintf(w, "  %s history                        List decks archived by watch mode\n", prog)
	fmt.Fprintln(w, "\nRun with --help for all options.")
}

// Slides prints the ranked slide listing. top limits the rows shown; zero or
// a negative value shows every slide.
func Slides(w io.Writer, results []analyzer.SlideMediaStats, filename string, top int) {
	fmt.Fprintf(w, "\nAnalyzing: %s\n", filename)
	fmt.Fprintf(w, "\nTotal slides: %d\n", len(results))
	fmt.Fprint(w, "\nRanked by media size (descending):\n\n")

	shown := results
	if top > 0 && top < len(shown) {
		shown = shown[:top]
	}
	for i, s := range shown {
		fmt.Fprintf(w, "#%-3d Slide %-3d | %10s | title=\"%s\"\n",
			i+1, s.SlideIndex, bytefmt.Format(s.TotalMediaBytes), titleOrPlaceholder(s.Title()))
	}
	fmt.Fprintln(w)
}

type severityCounts struct{ high, medium, low int }

func countSeverities(opps []analyzer.OptimizationOpportunity) severityCounts {
	var c severityCounts
	for _, o := range opps {
		switch o.Severity {
		case analyzer.SeverityHigh:
			c.high++
		case analyzer.SeverityMedium:
			c.medium++
		case analyzer.SeverityLow:
			c.low++
		}
	}
	return c
}

func totals(opps []analyzer.OptimizationOpportunity) (savings, current int64, pct float64) {
	for _, o := range opps {
		savings += o.SavingsBytes
		current += o.CurrentBytes
	}
	if current > 0 {
		pct = float64(savings) / float64(current) * 100
	}
	return savings, current, pct
}

func severityMarker(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityHigh:
		return red("🔴 HIGH")
	case analyzer.SeverityMedium:
		return yellow("🟡 MEDIUM")
	case analyzer.SeverityLow:
		return green("🟢 LOW")
	default:
		return string(s)
	}
}

var projectorNotes = []string{
	"Most conference projectors are 1920x1080 (Full HD)",
	"2x resolution (e.g., 1536x864 for 768x432 display) ensures retina quality",
	"Images larger than 2560px rarely improve visual quality on projectors",
	"JPEG quality 85-90 is visually identical to quality 95-100 when projected",
	"PNG is best for screenshots/diagrams; JPEG is best for photos",
}

// Optimization prints the optimization recommendations grouped by severity.
func Optimization(w io.Writer, opps []analyzer.OptimizationOpportunity, filename string) {
	if len(opps) == 0 {
		fmt.Fprintf(w, "\nOptimization Report: %s\n", filename)
		fmt.Fprintln(w, "\nNo optimization opportunities found. Your images are well-optimized!")
		return
	}

	savings, _, pct := totals(opps)
	counts := countSeverities(opps)

	fmt.Fprintf(w, "\n%s\n", heavyRule)
	fmt.Fprintln(w, bold("OPTIMIZATION REPORT: "+filename))
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintln(w, "\nSUMMARY:")
	fmt.Fprintf(w, "  Total opportunities found: %d\n", len(opps))
	fmt.Fprintf(w, "  Potential savings: %s (%.1f%% reduction)\n", bytefmt.Format(savings), pct)
	fmt.Fprintf(w, "  High priority: %d | Medium: %d | Low: %d\n", counts.high, counts.medium, counts.low)

	fmt.Fprintf(w, "\n%s\n", heavyRule)
	fmt.Fprintln(w, bold("RECOMMENDATIONS (sorted by potential savings):"))
	fmt.Fprintf(w, "%s\n\n", heavyRule)

	for i, o := range opps {
		fmt.Fprintf(w, "#%d - Slide %d: %s\n", i+1, o.SlideIndex, titleOrPlaceholder(o.Title()))
		fmt.Fprintf(w, "    Priority: %s\n", severityMarker(o.Severity))
		fmt.Fprintf(w, "    Current: %s | %s | %s\n", bytefmt.Format(o.CurrentBytes), o.CurrentFormat, o.CurrentDimensions)
		fmt.Fprintf(w, "    Display size: %s pixels\n", o.DisplayDimensions)
		fmt.Fprintf(w, "    Recommended: %s | %s\n", o.RecommendedFormat, o.RecommendedDimensions)
		fmt.Fprintf(w, "    Potential savings: %s (%.1f%%)\n", bytefmt.Format(o.SavingsBytes), o.SavingsPercent)
		if o.IsShared {
			fmt.Fprintln(w, yellow("    ⚠️  SHARED: This image appears on multiple slides - optimization affects all"))
		}
		fmt.Fprintf(w, "    💡 %s\n\n", o.Details)
	}

	fmt.Fprintln(w, heavyRule)
	fmt.Fprintln(w, bold("NOTES FOR CONFERENCE PRESENTATIONS:"))
	fmt.Fprintln(w, heavyRule)
	for _, note := range projectorNotes {
		fmt.Fprintf(w, "  • %s\n", note)
	}
	fmt.Fprintln(w)
}

var layoutRemovalSteps = []string{
	"Open the presentation in PowerPoint",
	"Go to View > Slide Master",
	"Right-click unused layouts and select 'Delete Layout'",
	"Close the Slide Master view",
}

// Masters prints the slide master and layout audit.
func Masters(w io.Writer, r analyzer.MastersReport, filename string) {
	fmt.Fprintf(w, "\n%s\n", heavyRule)
	fmt.Fprintln(w, bold("SLIDE MASTERS REPORT: "+filename))
	fmt.Fprintln(w, heavyRule)

	fmt.Fprintln(w, "\nSUMMARY:")
	fmt.Fprintf(w, "  Total slide masters: %d\n", r.TotalMasters)
	fmt.Fprintf(w, "  Total layouts: %d\n", r.TotalLayouts)
	fmt.Fprintf(w, "  Unused layouts: %d\n", r.UnusedLayouts)
	fmt.Fprintf(w, "\n  Media in masters: %s\n", bytefmt.Format(r.TotalMasterMediaBytes))
	fmt.Fprintf(w, "  Media in layouts: %s\n", bytefmt.Format(r.TotalLayoutMediaBytes))
	fmt.Fprintf(w, "  Media in UNUSED layouts: %s\n", bytefmt.Format(r.UnusedLayoutMediaBytes))
	if r.UnusedLayoutMediaBytes > 0 {
		fmt.Fprintln(w, yellow(fmt.Sprintf("\n  ⚠️  You could save %s by deleting unused layouts",
			bytefmt.Format(r.UnusedLayoutMediaBytes))))
	}

	for _, m := range r.Masters {
		fmt.Fprintf(w, "\n%s\n", lightRule)
		fmt.Fprintln(w, cyan(fmt.Sprintf("MASTER %d: %s", m.MasterIndex, m.Name())))
		fmt.Fprintln(w, lightRule)

		if m.MediaCount > 0 {
			fmt.Fprintf(w, "  Media on master: %s (%d items)\n", bytefmt.Format(m.TotalMediaBytes), m.MediaCount)
		} else {
			fmt.Fprintln(w, "  Media on master: (none)")
		}
		fmt.Fprintf(w, "  Layouts: %d total, %s media\n", len(m.Layouts), bytefmt.Format(m.TotalLayoutBytes))
		if m.UnusedLayoutBytes > 0 {
			fmt.Fprintln(w, yellow("  ⚠️  Unused layout media: "+bytefmt.Format(m.UnusedLayoutBytes)))
		}

		withMedia := layoutsWithMedia(m)
		if len(withMedia) > 0 {
			fmt.Fprintln(w, "\n  Layouts with media:")
			for _, l := range withMedia {
				fmt.Fprintf(w, "    • %s: %s [%s]\n", l.LayoutName, bytefmt.Format(l.TotalMediaBytes), usageLabel(l))
			}
		}

		if bare := unusedWithoutMedia(m); len(bare) > 0 {
			fmt.Fprintln(w, "\n  Unused layouts (no media):")
			for _, l := range bare {
				fmt.Fprintf(w, "    • %s\n", l.LayoutName)
			}
		}
	}

	if r.UnusedLayouts > 0 {
		fmt.Fprintf(w, "\n%s\n", heavyRule)
		fmt.Fprintln(w, bold("RECOMMENDATIONS:"))
		fmt.Fprintln(w, heavyRule)
		fmt.Fprintln(w, "\n  To reduce file size, consider deleting unused layouts:")
		for i, step := range layoutRemovalSteps {
			fmt.Fprintf(w, "  %d. %s\n", i+1, step)
		}
		if r.UnusedLayoutMediaBytes > 0 {
			fmt.Fprintf(w, "\n  Potential savings: %s\n", bytefmt.Format(r.UnusedLayoutMediaBytes))
		}
	}
	fmt.Fprintln(w)
}

// Cleanup prints the outcome of deleting unused layouts.
func Cleanup(w io.Writer, res *analyzer.LayoutCleanup, input string) {
	fmt.Fprintf(w, "\n%s\n", heavyRule)
	fmt.Fprintln(w, green(bold("CLEANUP COMPLETE")))
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "  Layouts deleted: %d\n", res.Deleted)
	fmt.Fprintf(w, "  Saved to: %s\n", res.OutputPath)
	fmt.Fprintf(w, "  Original file preserved: %s\n", input)
	if res.BytesFreed > 0 {
		fmt.Fprintf(w, "\n  To fully reclaim %s from orphaned media:\n", bytefmt.Format(res.BytesFreed))
		fmt.Fprintf(w, "  1. Open %s in PowerPoint\n", res.OutputPath)
		fmt.Fprintln(w, "  2. File > Info > Compress Media (or Compress Pictures)")
		fmt.Fprintln(w, "  3. Save the file")
	}
	fmt.Fprintln(w)
}

// NoUnusedLayouts is printed instead of Cleanup when nothing can be removed.
func NoUnusedLayouts(w io.Writer) {
	fmt.Fprintln(w, "\nNo unused layouts to delete.")
}
