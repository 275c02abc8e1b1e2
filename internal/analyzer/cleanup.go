package analyzer

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LayoutCleanup is the outcome of DeleteUnusedLayouts.
type LayoutCleanup struct {
	Deleted    int    `json:"deleted"`
	BytesFreed int64  `json:"bytes_freed"`
	OutputPath string `json:"output_path"`
}

// CleanedPath derives the default output of DeleteUnusedLayouts:
// deck.pptx -> deck_cleaned.pptx in the same directory.
func CleanedPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_cleaned" + ext
}

// DeleteUnusedLayouts writes a copy of doc to dst without the layouts no
// slide uses. Usage is recomputed from the current slides. BytesFreed counts
// the pictures placed on the removed layouts; their parts stay in the
// package as orphans. The source file is not modified.
func (a *Analyzer) DeleteUnusedLayouts(doc Document, dst string) (*LayoutCleanup, error) {
	if dst == "" {
		dst = CleanedPath(doc.Path())
	}

	usage := layoutUsage(doc)
	var (
		ids   []int
		freed int64
	)
	for _, master := range doc.Masters() {
		for _, layout := range master.Layouts {
			if len(usage[layout.ID]) > 0 {
				continue
			}
			size, _ := a.pictureBytes(doc, "layout "+layout.Name, layout.Shapes)
			ids = append(ids, layout.ID)
			freed += size
			a.logger.Debug("Deleting layout",
				zap.Int("master", master.Index),
				zap.String("layout", layout.Name),
				zap.Int64("bytes", size),
			)
		}
	}

	deleted, err := doc.SaveWithoutLayouts(dst, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to save cleaned presentation: %w", err)
	}
	a.logger.Info("Saved cleaned presentation",
		zap.String("path", dst),
		zap.Int("layouts_deleted", deleted),
	)

	return &LayoutCleanup{Deleted: deleted, BytesFreed: freed, OutputPath: dst}, nil
}
