package analyzer

import (
	"fmt"

	"go.uber.org/zap"
)

// LayoutMediaStats is the picture footprint of one slide layout.
type LayoutMediaStats struct {
	LayoutName      string `json:"layout_name"`
	LayoutIndex     int    `json:"layout_index"` // 1-based within the master
	TotalMediaBytes int64  `json:"total_media_bytes"`
	ImageBytes      int64  `json:"image_bytes"`
	VideoBytes      int64  `json:"video_bytes"`
	AudioBytes      int64  `json:"audio_bytes"`
	OtherMediaBytes int64  `json:"other_media_bytes"`
	MediaCount      int    `json:"media_count"`
	IsUsed          bool   `json:"is_used"`
	SlidesUsing     []int  `json:"slides_using"`
}

// MasterMediaStats is the picture footprint of a slide master and its layouts.
type MasterMediaStats struct {
	MasterIndex       int                `json:"master_index"`
	MasterName        *string            `json:"master_name"`
	TotalMediaBytes   int64              `json:"total_media_bytes"`
	ImageBytes        int64              `json:"image_bytes"`
	VideoBytes        int64              `json:"video_bytes"`
	AudioBytes        int64              `json:"audio_bytes"`
	OtherMediaBytes   int64              `json:"other_media_bytes"`
	MediaCount        int                `json:"media_count"`
	Layouts           []LayoutMediaStats `json:"layouts"`
	TotalLayoutBytes  int64              `json:"total_layout_bytes"`
	UnusedLayoutBytes int64              `json:"unused_layout_bytes"`
}

// Name returns the master name, falling back to "Master N".
func (m MasterMediaStats) Name() string {
	if m.MasterName == nil {
		return fmt.Sprintf("Master %d", m.MasterIndex)
	}
	return *m.MasterName
}

type MastersReport struct {
	TotalMasters           int                `json:"total_masters"`
	TotalLayouts           int                `json:"total_layouts"`
	UnusedLayouts          int                `json:"unused_layouts"`
	TotalMasterMediaBytes  int64              `json:"total_master_media_bytes"`
	TotalLayoutMediaBytes  int64              `json:"total_layout_media_bytes"`
	UnusedLayoutMediaBytes int64              `json:"unused_layout_media_bytes"`
	Masters                []MasterMediaStats `json:"masters"`
}

// layoutUsage maps layout handles to the slides that use them.
func layoutUsage(doc Document) map[int][]int {
	usage := make(map[int][]int)
	for _, slide := range doc.Slides() {
		if slide.LayoutID >= 0 {
			usage[slide.LayoutID] = append(usage[slide.LayoutID], slide.Index)
		}
	}
	return usage
}

// MastersReport measures the pictures placed directly on each master and
// layout and marks layouts no slide uses. Layouts are matched by handle,
// never by name.
func (a *Analyzer) MastersReport(doc Document) MastersReport {
	masters := doc.Masters()
	a.logger.Info("Analyzing slide masters", zap.Int("count", len(masters)))

	usage := layoutUsage(doc)
	report := MastersReport{
		TotalMasters: len(masters),
		Masters:      make([]MasterMediaStats, 0, len(masters)),
	}

	for _, master := range masters {
		stats := MasterMediaStats{
			MasterIndex: master.Index,
			Layouts:     make([]LayoutMediaStats, 0, len(master.Layouts)),
		}
		if master.Name != "" {
			name := master.Name
			stats.MasterName = &name
		}

		stats.ImageBytes, stats.MediaCount = a.pictureBytes(doc, fmt.Sprintf("master %d", master.Index), master.Shapes)
		stats.TotalMediaBytes = stats.ImageBytes
		report.TotalMasterMediaBytes += stats.TotalMediaBytes

		for i, layout := range master.Layouts {
			slidesUsing := usage[layout.ID]
			if slidesUsing == nil {
				slidesUsing = []int{}
			}

			ls := LayoutMediaStats{
				LayoutName:  layout.Name,
				LayoutIndex: i + 1,
				IsUsed:      len(slidesUsing) > 0,
				SlidesUsing: slidesUsing,
			}
			if ls.LayoutName == "" {
				ls.LayoutName = fmt.Sprintf("Layout %d", ls.LayoutIndex)
			}

			ls.ImageBytes, ls.MediaCount = a.pictureBytes(doc, "layout "+ls.LayoutName, layout.Shapes)
			ls.TotalMediaBytes = ls.ImageBytes

			report.TotalLayouts++
			stats.TotalLayoutBytes += ls.TotalMediaBytes
			report.TotalLayoutMediaBytes += ls.TotalMediaBytes
			if !ls.IsUsed {
				report.UnusedLayouts++
				stats.UnusedLayoutBytes += ls.TotalMediaBytes
				report.UnusedLayoutMediaBytes += ls.TotalMediaBytes
			}
			stats.Layouts = append(stats.Layouts, ls)
		}

		report.Masters = append(report.Masters, stats)
	}
	return report
}
