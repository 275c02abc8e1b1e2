package analyzer

import (
	"sort"

	"github.com/gnemet/SlideWeight/internal/media"
	"github.com/gnemet/SlideWeight/internal/pptx"
	"go.uber.org/zap"
)

// MediaItem is one media reference on a slide. SizeBytes is the attributed
// size, zero for a shared asset counted elsewhere.
type MediaItem struct {
	Type           media.Kind `json:"type"`
	SizeBytes      int64      `json:"size_bytes"`
	Filename       string     `json:"filename"`
	ContentType    string     `json:"content_type"`
	RelationshipID string     `json:"relationship_id"`
	Shared         bool       `json:"shared"`
}

// SlideMediaStats is the media footprint of one slide.
type SlideMediaStats struct {
	SlideIndex      int         `json:"slide_index"`
	SlideTitle      *string     `json:"slide_title"`
	TotalMediaBytes int64       `json:"total_media_bytes"`
	ImageBytes      int64       `json:"image_bytes"`
	VideoBytes      int64       `json:"video_bytes"`
	AudioBytes      int64       `json:"audio_bytes"`
	OtherMediaBytes int64       `json:"other_media_bytes"`
	MediaItems      []MediaItem `json:"media_items"`
}

// Title returns the slide title or an empty string.
func (s SlideMediaStats) Title() string {
	if s.SlideTitle == nil {
		return ""
	}
	return *s.SlideTitle
}

type mediaRef struct {
	asset       *media.Asset
	relID       string
	contentType string
}

// SlideStats attributes media bytes to slides. With includeShared false an
// asset used on several slides is only counted on the first of them. The
// result holds every slide, sorted by total bytes descending; ties keep slide
// order.
func (a *Analyzer) SlideStats(doc Document, includeShared bool) []SlideMediaStats {
	slides := doc.Slides()
	a.logger.Info("Found slides", zap.Int("count", len(slides)))

	reg := media.NewRegistry()
	refs := make([][]mediaRef, len(slides))

	for i, slide := range slides {
		a.logger.Debug("Analyzing slide", zap.Int("slide", slide.Index))
		for _, sh := range slide.Shapes {
			ref, ok := a.register(doc, reg, slide, sh)
			if ok {
				refs[i] = append(refs[i], ref)
			}
		}
	}

	for _, asset := range reg.Assets() {
		if asset.IsShared() {
			a.logger.Debug("Shared media",
				zap.String("filename", asset.Filename),
				zap.Ints("slides", asset.Appearances),
			)
		}
	}

	results := make([]SlideMediaStats, 0, len(slides))
	for i, slide := range slides {
		stats := SlideMediaStats{
			SlideIndex: slide.Index,
			SlideTitle: title(slide),
			MediaItems: make([]MediaItem, 0, len(refs[i])),
		}

		for _, ref := range refs[i] {
			asset := ref.asset
			shared := asset.IsShared()

			size := int64(0)
			if includeShared || !shared || asset.FirstSlide() == slide.Index {
				size = asset.Size
			}

			stats.MediaItems = append(stats.MediaItems, MediaItem{
				Type:           asset.Kind,
				SizeBytes:      size,
				Filename:       asset.Filename,
				ContentType:    ref.contentType,
				RelationshipID: ref.relID,
				Shared:         shared,
			})

			switch asset.Kind {
			case media.KindImage:
				stats.ImageBytes += size
			case media.KindVideo:
				stats.VideoBytes += size
			case media.KindAudio:
				stats.AudioBytes += size
			default:
				stats.OtherMediaBytes += size
			}
		}

		stats.TotalMediaBytes = stats.ImageBytes + stats.VideoBytes + stats.AudioBytes + stats.OtherMediaBytes
		results = append(results, stats)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalMediaBytes > results[j].TotalMediaBytes
	})
	return results
}

func (a *Analyzer) register(doc Document, reg *media.Registry, slide *pptx.Slide, sh pptx.Shape) (mediaRef, bool) {
	switch sh.Kind {
	case pptx.ShapePicture:
		part, err := doc.Picture(sh)
		if err != nil {
			a.warn(slideLocation(slide.Index), sh, err)
			return mediaRef{}, false
		}
		asset := reg.RegisterBlob(slide.Index, part.Data, media.Metadata{
			Kind:        media.KindImage,
			ContentType: part.ContentType,
			Filename:    part.Filename(),
		})
		a.logger.Debug("Found image",
			zap.Int("slide", slide.Index),
			zap.Int64("bytes", part.Size),
			zap.String("content_type", part.ContentType),
		)
		return mediaRef{asset: asset, relID: part.RelID, contentType: part.ContentType}, true

	case pptx.ShapeMedia:
		part, err := doc.Media(sh)
		if err != nil {
			a.warn(slideLocation(slide.Index), sh, err)
			return mediaRef{}, false
		}
		kind := media.ClassifyContentType(part.ContentType)
		asset := reg.RegisterPart(slide.Index, part.Name, part.Size, media.Metadata{
			Kind:        kind,
			ContentType: part.ContentType,
			Filename:    part.Filename(),
		})
		a.logger.Debug("Found media",
			zap.Int("slide", slide.Index),
			zap.String("kind", string(kind)),
			zap.Int64("bytes", part.Size),
			zap.String("content_type", part.ContentType),
		)
		return mediaRef{asset: asset, relID: part.RelID, contentType: part.ContentType}, true
	}
	return mediaRef{}, false
}
