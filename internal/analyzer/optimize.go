package analyzer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"strings"

	"github.com/gnemet/SlideWeight/internal/media"
	"github.com/gnemet/SlideWeight/internal/pptx"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// OptimizationOpportunity is a recommendation for one image at its first
// appearance.
type OptimizationOpportunity struct {
	SlideIndex            int             `json:"slide_index"`
	SlideTitle            *string         `json:"slide_title"`
	OpportunityType       OpportunityType `json:"opportunity_type"`
	CurrentBytes          int64           `json:"current_bytes"`
	PotentialBytes        int64           `json:"potential_bytes"`
	SavingsBytes          int64           `json:"savings_bytes"`
	SavingsPercent        float64         `json:"savings_percent"`
	CurrentDimensions     string          `json:"current_dimensions"`
	DisplayDimensions     string          `json:"display_dimensions"`
	RecommendedDimensions string          `json:"recommended_dimensions"`
	CurrentFormat         string          `json:"current_format"`
	RecommendedFormat     string          `json:"recommended_format"`
	Details               string          `json:"details"`
	Severity              Severity        `json:"severity"`
	IsShared              bool            `json:"is_shared"`
	Filename              string          `json:"filename"`
}

// Title returns the slide title or an empty string.
func (o OptimizationOpportunity) Title() string {
	if o.SlideTitle == nil {
		return ""
	}
	return *o.SlideTitle
}

type firstAppearance struct {
	asset *media.Asset
	slide *pptx.Slide
	shape pptx.Shape
}

// Optimizations evaluates every unique picture once, using the shape of its
// first appearance for the display size. The result is sorted by savings
// descending.
func (a *Analyzer) Optimizations(doc Document) []OptimizationOpportunity {
	slides := doc.Slides()
	a.logger.Info("Analyzing slides for optimization opportunities", zap.Int("count", len(slides)))

	reg := media.NewRegistry()
	var firsts []firstAppearance

	for _, slide := range slides {
		for _, sh := range slide.Shapes {
			if sh.Kind != pptx.ShapePicture {
				continue
			}
			part, err := doc.Picture(sh)
			if err != nil {
				a.warn(slideLocation(slide.Index), sh, err)
				continue
			}
			asset := reg.RegisterBlob(slide.Index, part.Data, media.Metadata{
				Kind:        media.KindImage,
				ContentType: part.ContentType,
				Filename:    part.Filename(),
			})
			if len(asset.Appearances) == 1 {
				firsts = append(firsts, firstAppearance{asset: asset, slide: slide, shape: sh})
			}
		}
	}

	opportunities := make([]OptimizationOpportunity, 0)
	for _, fa := range firsts {
		facts, err := imageFacts(fa.asset, fa.shape)
		if err != nil {
			a.warn(slideLocation(fa.slide.Index), fa.shape, err)
			continue
		}
		for _, f := range Evaluate(facts) {
			opportunities = append(opportunities, OptimizationOpportunity{
				SlideIndex:            fa.slide.Index,
				SlideTitle:            title(fa.slide),
				OpportunityType:       f.Type,
				CurrentBytes:          f.CurrentBytes,
				PotentialBytes:        f.PotentialBytes,
				SavingsBytes:          f.SavingsBytes,
				SavingsPercent:        f.SavingsPercent,
				CurrentDimensions:     f.CurrentDimensions,
				DisplayDimensions:     f.DisplayDimensions,
				RecommendedDimensions: f.RecommendedDimensions,
				CurrentFormat:         f.CurrentFormat,
				RecommendedFormat:     f.RecommendedFormat,
				Details:               f.Details,
				Severity:              f.Severity,
				IsShared:              fa.asset.IsShared(),
				Filename:              fa.asset.Filename,
			})
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].SavingsBytes > opportunities[j].SavingsBytes
	})
	return opportunities
}

func imageFacts(asset *media.Asset, sh pptx.Shape) (ImageFacts, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(asset.Blob))
	if err != nil {
		return ImageFacts{}, fmt.Errorf("decode %s (%s): %w", asset.Filename, asset.ContentType, err)
	}
	return ImageFacts{
		Format:      strings.ToUpper(format),
		ContentType: asset.ContentType,
		Bytes:       asset.Size,
		Dimensions:  NewImageDimensions(cfg.Width, cfg.Height, sh.Width, sh.Height),
	}, nil
}
