package analyzer

import (
	"fmt"
	"math"

	"github.com/gnemet/SlideWeight/internal/bytefmt"
)

type OpportunityType string

const (
	OversizedResolution OpportunityType = "oversized_resolution"
	AbsoluteSize        OpportunityType = "absolute_size"
	PNGPhoto            OpportunityType = "png_photo"
	UncompressedJPEG    OpportunityType = "uncompressed_jpeg"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Thresholds tuned for conference projection.
const (
	oversizedRatio    = 2.5 // pixel/display ratio that counts as oversized
	highSeverityRatio = 5
	retinaFactor      = 2
	maxEdgePx         = 3200
	targetEdgePx      = 2560
	largePNGBytes     = 1_000_000
	pngToJPEGFactor   = 0.3
	veryLargePNGBytes = 3_000_000
	jpegBytesPerPixel = 1.0
	jpegResaveFactor  = 0.5
	emuPerInch        = 914400
	displayDPI        = 96
)

// ImageDimensions compares an image's pixel size with its size on the slide.
type ImageDimensions struct {
	PixelWidth      int     `json:"pixel_width"`
	PixelHeight     int     `json:"pixel_height"`
	DisplayWidthPx  int     `json:"display_width_px"`
	DisplayHeightPx int     `json:"display_height_px"`
	ResolutionRatio float64 `json:"resolution_ratio"`
}

// NewImageDimensions converts the shape extent from EMU to pixels at 96 DPI.
// The ratio is 1.0 when either display side is zero.
func NewImageDimensions(pixelWidth, pixelHeight int, extentCx, extentCy int64) ImageDimensions {
	d := ImageDimensions{
		PixelWidth:      pixelWidth,
		PixelHeight:     pixelHeight,
		DisplayWidthPx:  emuToPx(extentCx),
		DisplayHeightPx: emuToPx(extentCy),
		ResolutionRatio: 1.0,
	}
	if d.DisplayWidthPx > 0 && d.DisplayHeightPx > 0 {
		d.ResolutionRatio = math.Max(
			float64(pixelWidth)/float64(d.DisplayWidthPx),
			float64(pixelHeight)/float64(d.DisplayHeightPx),
		)
	}
	return d
}

func emuToPx(emu int64) int {
	return int(float64(emu) / emuPerInch * displayDPI)
}

// ImageFacts are the inputs of Evaluate.
type ImageFacts struct {
	Format      string // decoder name in upper case: PNG, JPEG, GIF, ...
	ContentType string
	Bytes       int64
	Dimensions  ImageDimensions
}

func (f ImageFacts) format() string {
	if f.Format != "" {
		return f.Format
	}
	return f.ContentType
}

// Finding is one recommendation produced by Evaluate.
type Finding struct {
	Type                  OpportunityType
	CurrentBytes          int64
	PotentialBytes        int64
	SavingsBytes          int64
	SavingsPercent        float64
	CurrentDimensions     string
	DisplayDimensions     string
	RecommendedDimensions string
	CurrentFormat         string
	RecommendedFormat     string
	Details               string
	Severity              Severity
}

// Evaluate runs the four image checks in order: oversized resolution,
// absolute size cap, PNG photo and high-quality JPEG. The absolute size
// check is dropped when the resolution check fired. Savings use a linear
// bytes-per-pixel model, not a real re-encode.
func Evaluate(f ImageFacts) []Finding {
	d := f.Dimensions
	if f.Bytes <= 0 || d.PixelWidth <= 0 || d.PixelHeight <= 0 {
		return nil
	}

	current := dims(d.PixelWidth, d.PixelHeight)
	display := dims(d.DisplayWidthPx, d.DisplayHeightPx)
	aspect := float64(d.PixelWidth) / float64(d.PixelHeight)

	finding := func(typ OpportunityType, potential int64) Finding {
		savings := f.Bytes - potential
		return Finding{
			Type:              typ,
			CurrentBytes:      f.Bytes,
			PotentialBytes:    potential,
			SavingsBytes:      savings,
			SavingsPercent:    math.Round(float64(savings)/float64(f.Bytes)*100*10) / 10,
			CurrentDimensions: current,
			DisplayDimensions: display,
		}
	}

	var findings []Finding

	if d.ResolutionRatio > oversizedRatio {
		w := d.DisplayWidthPx * retinaFactor
		h := d.DisplayHeightPx * retinaFactor
		if float64(w)/float64(h) > aspect {
			w = int(float64(h) * aspect)
		} else {
			h = int(float64(w) / aspect)
		}

		fd := finding(OversizedResolution, scaleBytes(f.Bytes, w, h, d))
		fd.RecommendedDimensions = dims(w, h)
		fd.CurrentFormat = f.format()
		fd.RecommendedFormat = f.format()
		fd.Details = fmt.Sprintf("Image is %.1fx larger than display size. "+
			"Resizing to 2x (retina quality) would maintain sharpness on all screens.", d.ResolutionRatio)
		fd.Severity = SeverityMedium
		if d.ResolutionRatio > highSeverityRatio {
			fd.Severity = SeverityHigh
		}
		findings = append(findings, fd)
	}

	maxEdge := max(d.PixelWidth, d.PixelHeight)
	if maxEdge > maxEdgePx && len(findings) == 0 {
		var w, h int
		if d.PixelWidth > d.PixelHeight {
			w, h = targetEdgePx, int(targetEdgePx/aspect)
		} else {
			w, h = int(targetEdgePx*aspect), targetEdgePx
		}

		fd := finding(AbsoluteSize, scaleBytes(f.Bytes, w, h, d))
		fd.RecommendedDimensions = dims(w, h)
		fd.CurrentFormat = f.format()
		fd.RecommendedFormat = f.format()
		fd.Details = fmt.Sprintf("Image exceeds %dpx. Conference projectors rarely exceed 1920x1080 (Full HD). "+
			"Recommend max %dpx for high-quality projection.", maxEdge, targetEdgePx)
		fd.Severity = SeverityMedium
		findings = append(findings, fd)
	}

	if f.Format == "PNG" && f.Bytes > largePNGBytes {
		fd := finding(PNGPhoto, int64(float64(f.Bytes)*pngToJPEGFactor))
		fd.RecommendedDimensions = current
		fd.CurrentFormat = "PNG"
		fd.RecommendedFormat = "JPEG"
		fd.Details = fmt.Sprintf("Large PNG file (%s). Converting to JPEG at quality 85-90 provides visually "+
			"identical results for photos, with significant file size reduction.", bytefmt.Format(f.Bytes))
		fd.Severity = SeverityLow
		if f.Bytes > veryLargePNGBytes {
			fd.Severity = SeverityMedium
		}
		findings = append(findings, fd)
	}

	if f.Format == "JPEG" {
		bpp := float64(f.Bytes) / float64(d.PixelWidth*d.PixelHeight)
		if bpp > jpegBytesPerPixel {
			fd := finding(UncompressedJPEG, int64(float64(f.Bytes)*jpegResaveFactor))
			fd.RecommendedDimensions = current
			fd.CurrentFormat = "JPEG (high quality)"
			fd.RecommendedFormat = "JPEG (quality 85)"
			fd.Details = fmt.Sprintf("JPEG file appears to use very high compression quality (%.2f bytes/pixel). "+
				"Re-saving at quality 85 produces visually identical results for conference projection.", bpp)
			fd.Severity = SeverityLow
			findings = append(findings, fd)
		}
	}

	return findings
}

// scaleBytes applies the pixel-area reduction of resizing d to w×h to size.
func scaleBytes(size int64, w, h int, d ImageDimensions) int64 {
	reduction := float64(w*h) / float64(d.PixelWidth*d.PixelHeight)
	return int64(float64(size) * reduction)
}

func dims(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
