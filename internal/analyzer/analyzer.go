// Package analyzer attributes embedded media bytes to slides, audits slide
// masters and layouts, and flags images that are larger than they need to be.
package analyzer

import (
	"fmt"

	"github.com/gnemet/SlideWeight/internal/pptx"
	"go.uber.org/zap"
)

// Document is an opened presentation. *pptx.Package implements it.
type Document interface {
	Path() string
	Slides() []*pptx.Slide
	Masters() []*pptx.Master
	Layout(id int) *pptx.Layout
	Picture(sh pptx.Shape) (*pptx.Part, error)
	Media(sh pptx.Shape) (*pptx.Part, error)
	SaveWithoutLayouts(dst string, layoutIDs []int) (int, error)
}

var _ Document = (*pptx.Package)(nil)

// ExtractionWarning records a shape whose media could not be read. The shape
// is left out of the results; the scan goes on.
type ExtractionWarning struct {
	Location string // e.g. "slide 3", "layout Title Slide"
	Shape    string
	Err      error
}

func (w ExtractionWarning) Error() string {
	if w.Shape == "" {
		return fmt.Sprintf("%s: %v", w.Location, w.Err)
	}
	return fmt.Sprintf("%s, shape %q: %v", w.Location, w.Shape, w.Err)
}

func (w ExtractionWarning) Unwrap() error { return w.Err }

// Analyzer runs the analyses against a Document. Warnings accumulate across
// calls until Reset; a shape that fails again in a later call is reported once.
type Analyzer struct {
	logger   *zap.Logger
	warnings []ExtractionWarning
	warned   map[warningKey]struct{}
}

type warningKey struct {
	location string
	owner    string
	id       string
	rid      string
}

// New returns an Analyzer that logs to logger. A nil logger discards output.
func New(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger, warned: make(map[warningKey]struct{})}
}

// Warnings returns the extraction problems met so far.
func (a *Analyzer) Warnings() []ExtractionWarning {
	return a.warnings
}

// Reset clears collected warnings.
func (a *Analyzer) Reset() {
	a.warnings = nil
	clear(a.warned)
}

func (a *Analyzer) warn(location string, sh pptx.Shape, err error) {
	key := warningKey{location: location, owner: sh.Owner, id: sh.ID, rid: sh.ImageRID + sh.MediaRID}
	if _, seen := a.warned[key]; seen {
		return
	}
	a.warned[key] = struct{}{}

	w := ExtractionWarning{Location: location, Shape: sh.Name, Err: err}
	a.warnings = append(a.warnings, w)
	a.logger.Warn("Failed to extract media",
		zap.String("location", location),
		zap.String("shape", sh.Name),
		zap.Error(err),
	)
}

func slideLocation(index int) string {
	return fmt.Sprintf("slide %d", index)
}

// title returns nil for an empty title so it serializes as null.
func title(s *pptx.Slide) *string {
	if s.Title == "" {
		return nil
	}
	t := s.Title
	return &t
}

// pictureBytes sums the sizes of the top-level pictures of a master or layout.
func (a *Analyzer) pictureBytes(doc Document, location string, shapes []pptx.Shape) (total int64, count int) {
	for _, sh := range shapes {
		if sh.Kind != pptx.ShapePicture {
			continue
		}
		part, err := doc.Picture(sh)
		if err != nil {
			a.warn(location, sh, err)
			continue
		}
		total += part.Size
		count++
	}
	return total, count
}
