package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gnemet/SlideWeight/internal/analyzer"
	"github.com/gnemet/SlideWeight/internal/bytefmt"
)

// layoutsWithMedia returns the layouts carrying pictures, heaviest first.
func layoutsWithMedia(m analyzer.MasterMediaStats) []analyzer.LayoutMediaStats {
	var out []analyzer.LayoutMediaStats
	for _, l := range m.Layouts {
		if l.TotalMediaBytes > 0 {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalMediaBytes > out[j].TotalMediaBytes
	})
	return out
}

func unusedWithoutMedia(m analyzer.MasterMediaStats) []analyzer.LayoutMediaStats {
	var out []analyzer.LayoutMediaStats
	for _, l := range m.Layouts {
		if !l.IsUsed && l.TotalMediaBytes == 0 {
			out = append(out, l)
		}
	}
	return out
}

func usageLabel(l analyzer.LayoutMediaStats) string {
	if !l.IsUsed {
		return "UNUSED"
	}
	return fmt.Sprintf("used by %d slides", len(l.SlidesUsing))
}

// cell makes s safe inside a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// SlidesMarkdown renders the ranked slide listing as a Markdown document.
func SlidesMarkdown(results []analyzer.SlideMediaStats, filename string) string {
	var b strings.Builder
	var total int64
	for _, s := range results {
		total += s.TotalMediaBytes
	}

	fmt.Fprintf(&b, "# Media by slide: %s\n\n", cell(filename))
	fmt.Fprintf(&b, "- Total slides: %d\n", len(results))
	fmt.Fprintf(&b, "- Attributed media: %s\n\n", bytefmt.Format(total))
	b.WriteString("| Rank | Slide | Total | Images | Video | Audio | Other | Title |\n")
	b.WriteString("|---:|---:|---:|---:|---:|---:|---:|---|\n")
	for i, s := range results {
		fmt.Fprintf(&b, "| %d | %d | %s | %s | %s | %s | %s | %s |\n",
			i+1, s.SlideIndex,
			bytefmt.Format(s.TotalMediaBytes),
			bytefmt.Format(s.ImageBytes),
			bytefmt.Format(s.VideoBytes),
			bytefmt.Format(s.AudioBytes),
			bytefmt.Format(s.OtherMediaBytes),
			cell(titleOrPlaceholder(s.Title())))
	}
	return b.String()
}

// OptimizationMarkdown renders the optimization recommendations.
func OptimizationMarkdown(opps []analyzer.OptimizationOpportunity, filename string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Optimization report: %s\n\n", cell(filename))
	if len(opps) == 0 {
		b.WriteString("No optimization opportunities found. Your images are well-optimized!\n")
		return b.String()
	}

	savings, _, pct := totals(opps)
	counts := countSeverities(opps)
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Total opportunities found: %d\n", len(opps))
	fmt.Fprintf(&b, "- Potential savings: %s (%.1f%% reduction)\n", bytefmt.Format(savings), pct)
	fmt.Fprintf(&b, "- High priority: %d | Medium: %d | Low: %d\n\n", counts.high, counts.medium, counts.low)

	b.WriteString("## Recommendations\n\n")
	b.WriteString("| # | Slide | Image | Priority | Current | Display | Recommended | Savings |\n")
	b.WriteString("|---:|---|---|---|---|---|---|---:|\n")
	for i, o := range opps {
		image := cell(o.Filename)
		if o.IsShared {
			image += " (shared)"
		}
		fmt.Fprintf(&b, "| %d | %d: %s | %s | %s | %s, %s, %s | %s | %s, %s | %s (%.1f%%) |\n",
			i+1, o.SlideIndex, cell(titleOrPlaceholder(o.Title())), image,
			strings.ToUpper(string(o.Severity)),
			bytefmt.Format(o.CurrentBytes), cell(o.CurrentFormat), o.CurrentDimensions,
			o.DisplayDimensions,
			cell(o.RecommendedFormat), o.RecommendedDimensions,
			bytefmt.Format(o.SavingsBytes), o.SavingsPercent)
	}

	b.WriteString("\n## Details\n\n")
	for i, o := range opps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, o.Details)
	}

	b.WriteString("\n## Notes for conference presentations\n\n")
	for _, note := range projectorNotes {
		fmt.Fprintf(&b, "- %s\n", note)
	}
	return b.String()
}

// MastersMarkdown renders the masters audit, followed by the cleanup outcome
// when cleanup is not nil.
func MastersMarkdown(r analyzer.MastersReport, filename string, cleanup *analyzer.LayoutCleanup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Slide masters report: %s\n\n", cell(filename))
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Total slide masters: %d\n", r.TotalMasters)
	fmt.Fprintf(&b, "- Total layouts: %d\n", r.TotalLayouts)
	fmt.Fprintf(&b, "- Unused layouts: %d\n", r.UnusedLayouts)
	fmt.Fprintf(&b, "- Media in masters: %s\n", bytefmt.Format(r.TotalMasterMediaBytes))
	fmt.Fprintf(&b, "- Media in layouts: %s\n", bytefmt.Format(r.TotalLayoutMediaBytes))
	fmt.Fprintf(&b, "- Media in unused layouts: %s\n", bytefmt.Format(r.UnusedLayoutMediaBytes))

	for _, m := range r.Masters {
		fmt.Fprintf(&b, "\n## Master %d: %s\n\n", m.MasterIndex, cell(m.Name()))
		fmt.Fprintf(&b, "Media on master: %s (%d items). Layout media: %s, unused: %s.\n\n",
			bytefmt.Format(m.TotalMediaBytes), m.MediaCount,
			bytefmt.Format(m.TotalLayoutBytes), bytefmt.Format(m.UnusedLayoutBytes))
		b.WriteString("| # | Layout | Media | Items | Status |\n")
		b.WriteString("|---:|---|---:|---:|---|\n")
		for _, l := range m.Layouts {
			fmt.Fprintf(&b, "| %d | %s | %s | %d | %s |\n",
				l.LayoutIndex, cell(l.LayoutName), bytefmt.Format(l.TotalMediaBytes), l.MediaCount, usageLabel(l))
		}
	}

	if r.UnusedLayouts > 0 && cleanup == nil {
		b.WriteString("\n## Recommendations\n\n")
		b.WriteString("To reduce file size, consider deleting unused layouts:\n\n")
		for i, step := range layoutRemovalSteps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}

	if cleanup != nil {
		b.WriteString("\n## Cleanup\n\n")
		fmt.Fprintf(&b, "- Layouts deleted: %d\n", cleanup.Deleted)
		fmt.Fprintf(&b, "- Saved to: `%s`\n", cleanup.OutputPath)
		fmt.Fprintf(&b, "- Picture media left as orphans: %s\n", bytefmt.Format(cleanup.BytesFreed))
	}
	return b.String()
}
