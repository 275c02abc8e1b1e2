// Package pptx reads the part graph of a PowerPoint package: content types,
// relationships, slides, slide masters, slide layouts and the picture and
// media shapes placed on them.
package pptx

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound        = errors.New("file not found")
	ErrUnsupportedType = errors.New("unsupported file type (expected .pptx)")
	ErrCorrupt         = errors.New("failed to open .pptx")
)

// OpenError reports why a presentation could not be opened. Kind is one of
// ErrNotFound, ErrUnsupportedType or ErrCorrupt.
type OpenError struct {
	Kind error
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Path)
}

func (e *OpenError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Package is an opened .pptx file. It must be closed after use.
type Package struct {
	path  string
	zr    *zip.ReadCloser
	files map[string]*zip.File
	types *contentTypes
	rels  map[string]Relationships
	cache map[string][]byte

	mainPart string
	slides   []*Slide
	masters  []*Master
	layouts  []*Layout
	byPart   map[string]*Layout
}

// Open validates pptxPath and parses the presentation part graph.
func Open(pptxPath string) (*Package, error) {
	if _, err := os.Stat(pptxPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &OpenError{Kind: ErrNotFound, Path: pptxPath}
		}
		return nil, &OpenError{Kind: ErrCorrupt, Path: pptxPath, Err: err}
	}

	if !strings.EqualFold(filepath.Ext(pptxPath), ".pptx") {
		return nil, &OpenError{Kind: ErrUnsupportedType, Path: pptxPath}
	}

	zr, err := zip.OpenReader(pptxPath)
	if err != nil {
		return nil, &OpenError{Kind: ErrCorrupt, Path: pptxPath, Err: err}
	}

	p := &Package{
		path:   pptxPath,
		zr:     zr,
		files:  make(map[string]*zip.File, len(zr.File)),
		rels:   make(map[string]Relationships),
		cache:  make(map[string][]byte),
		byPart: make(map[string]*Layout),
	}
	for _, f := range zr.File {
		p.files[strings.TrimPrefix(f.Name, "/")] = f
	}

	if err := p.load(); err != nil {
		zr.Close()
		return nil, &OpenError{Kind: ErrCorrupt, Path: pptxPath, Err: err}
	}
	return p, nil
}

// Close releases the underlying archive.
func (p *Package) Close() error {
	return p.zr.Close()
}

// Path returns the file the package was opened from.
func (p *Package) Path() string { return p.path }

// Slides returns the slides in presentation order.
func (p *Package) Slides() []*Slide { return p.slides }

// Masters returns the slide masters in presentation order.
func (p *Package) Masters() []*Master { return p.masters }

// Layouts returns every known layout, indexed by Layout.ID.
func (p *Package) Layouts() []*Layout { return p.layouts }

// Layout returns the layout with the given handle, or nil.
func (p *Package) Layout(id int) *Layout {
	if id < 0 || id >= len(p.layouts) {
		return nil
	}
	return p.layouts[id]
}

// HasPart reports whether the archive contains the named part.
func (p *Package) HasPart(name string) bool {
	_, ok := p.files[name]
	return ok
}

func (p *Package) load() error {
	data, err := p.readPart("[Content_Types].xml")
	if err != nil {
		return err
	}
	if p.types, err = parseContentTypes(data); err != nil {
		return fmt.Errorf("content types: %w", err)
	}

	rootRels, err := p.relsFor("")
	if err != nil {
		return err
	}
	docRel, ok := rootRels.FirstOfType(relOfficeDocument)
	if !ok {
		return errors.New("package has no main presentation part")
	}
	p.mainPart = docRel.Target

	pres, err := p.parsePresentation()
	if err != nil {
		return err
	}
	presRels, err := p.relsFor(p.mainPart)
	if err != nil {
		return err
	}

	for i, rID := range pres.masterRIDs {
		rel, ok := presRels.Get(rID)
		if !ok {
			return fmt.Errorf("slide master relationship %s not found", rID)
		}
		master, err := p.loadMaster(i+1, rel.Target)
		if err != nil {
			return fmt.Errorf("slide master %s: %w", rel.Target, err)
		}
		p.masters = append(p.masters, master)
	}

	for i, rID := range pres.slideRIDs {
		rel, ok := presRels.Get(rID)
		if !ok {
			return fmt.Errorf("slide relationship %s not found", rID)
		}
		slide, err := p.loadSlide(i+1, rel.Target)
		if err != nil {
			return fmt.Errorf("slide %s: %w", rel.Target, err)
		}
		p.slides = append(p.slides, slide)
	}
	return nil
}

// readPart returns the bytes of a part. Results are cached per part name.
func (p *Package) readPart(name string) ([]byte, error) {
	if data, ok := p.cache[name]; ok {
		return data, nil
	}
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found in package", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", name, err)
	}
	p.cache[name] = data
	return data, nil
}

func (p *Package) partSize(name string) (int64, bool) {
	f, ok := p.files[name]
	if !ok {
		return 0, false
	}
	return int64(f.UncompressedSize64), true
}
