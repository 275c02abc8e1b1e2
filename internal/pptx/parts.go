package pptx

import (
	"fmt"
	"path"
)

// Slide is one slide in presentation order.
type Slide struct {
	Index    int // 1-based
	Part     string
	Title    string // trimmed title placeholder text, empty when the slide has none
	LayoutID int // handle into Package.Layouts, -1 when the slide has no layout
	Shapes   []Shape
}

// Layout is a slide layout. Layouts are identified by ID, never by name:
// duplicate layout names are legal.
type Layout struct {
	ID     int
	Part   string
	Name   string
	Master int // 1-based index of the owning master, 0 when no master lists it
	Shapes []Shape
}

// Master is a slide master and the layouts it lists, in sldLayoutIdLst order.
type Master struct {
	Index   int // 1-based
	Part    string
	Name    string
	Layouts []*Layout
	Shapes  []Shape

	layoutRIDs []string
}

type presentationXML struct {
	masterRIDs []string
	slideRIDs  []string
}

func (p *Package) parsePresentation() (*presentationXML, error) {
	data, err := p.readPart(p.mainPart)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Masters []struct {
			RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"sldMasterIdLst>sldMasterId"`
		Slides []struct {
			RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"sldIdLst>sldId"`
	}
	if err := decodeXML(data, &doc); err != nil {
		return nil, fmt.Errorf("presentation %s: %w", p.mainPart, err)
	}

	pres := &presentationXML{}
	for _, m := range doc.Masters {
		pres.masterRIDs = append(pres.masterRIDs, m.RID)
	}
	for _, s := range doc.Slides {
		pres.slideRIDs = append(pres.slideRIDs, s.RID)
	}
	return pres, nil
}

func (p *Package) loadMaster(index int, part string) (*Master, error) {
	data, err := p.readPart(part)
	if err != nil {
		return nil, err
	}
	tree, err := parseShapeTree(data, part)
	if err != nil {
		return nil, err
	}

	master := &Master{
		Index:      index,
		Part:       part,
		Name:       tree.name,
		Shapes:     tree.shapes,
		layoutRIDs: tree.layoutRIDs,
	}

	rels, err := p.relsFor(part)
	if err != nil {
		return nil, err
	}
	for _, rID := range tree.layoutRIDs {
		rel, ok := rels.Get(rID)
		if !ok {
			return nil, fmt.Errorf("layout relationship %s not found", rID)
		}
		layout, err := p.layoutFor(rel.Target)
		if err != nil {
			return nil, fmt.Errorf("slide layout %s: %w", rel.Target, err)
		}
		if layout.Master == 0 {
			layout.Master = index
		}
		master.Layouts = append(master.Layouts, layout)
	}
	return master, nil
}

// layoutFor returns the layout handle of a layout part, parsing it on first use.
func (p *Package) layoutFor(part string) (*Layout, error) {
	if layout, ok := p.byPart[part]; ok {
		return layout, nil
	}

	data, err := p.readPart(part)
	if err != nil {
		return nil, err
	}
	tree, err := parseShapeTree(data, part)
	if err != nil {
		return nil, err
	}

	layout := &Layout{
		ID:     len(p.layouts),
		Part:   part,
		Name:   tree.name,
		Shapes: tree.shapes,
	}
	p.layouts = append(p.layouts, layout)
	p.byPart[part] = layout
	return layout, nil
}

func (p *Package) loadSlide(index int, part string) (*Slide, error) {
	data, err := p.readPart(part)
	if err != nil {
		return nil, err
	}
	tree, err := parseShapeTree(data, part)
	if err != nil {
		return nil, err
	}

	slide := &Slide{
		Index:    index,
		Part:     part,
		Title:    tree.title,
		LayoutID: -1,
		Shapes:   tree.shapes,
	}

	rels, err := p.relsFor(part)
	if err != nil {
		return nil, err
	}
	if rel, ok := rels.FirstOfType(relSlideLayout); ok && !rel.External {
		layout, err := p.layoutFor(rel.Target)
		if err != nil {
			return nil, fmt.Errorf("slide layout %s: %w", rel.Target, err)
		}
		slide.LayoutID = layout.ID
	}
	return slide, nil
}

// Part is a binary part referenced by a shape. Data is only filled for pictures.
type Part struct {
	Name        string
	RelID       string
	ContentType string
	Size        int64
	Data        []byte
}

// Filename is the base name of the part, e.g. image3.png.
func (pt *Part) Filename() string {
	return path.Base(pt.Name)
}

// Picture returns the embedded image of a picture shape.
func (p *Package) Picture(sh Shape) (*Part, error) {
	if sh.Kind != ShapePicture {
		return nil, fmt.Errorf("shape %q is not a picture", sh.Name)
	}
	if sh.ImageRID == "" {
		if sh.ImageLink != "" {
			return nil, fmt.Errorf("image of shape %q is linked, not embedded", sh.Name)
		}
		return nil, fmt.Errorf("shape %q has no image reference", sh.Name)
	}

	rel, err := p.shapeRel(sh, sh.ImageRID)
	if err != nil {
		return nil, err
	}
	data, err := p.readPart(rel.Target)
	if err != nil {
		return nil, err
	}
	return &Part{
		Name:        rel.Target,
		RelID:       rel.ID,
		ContentType: p.types.of(rel.Target),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// Media returns the embedded video or audio part of a media shape without
// reading its content.
func (p *Package) Media(sh Shape) (*Part, error) {
	if sh.Kind != ShapeMedia {
		return nil, fmt.Errorf("shape %q is not a media shape", sh.Name)
	}
	if sh.MediaRID == "" {
		return nil, fmt.Errorf("media shape %q has no media reference", sh.Name)
	}

	rel, err := p.shapeRel(sh, sh.MediaRID)
	if err != nil {
		return nil, err
	}
	size, ok := p.partSize(rel.Target)
	if !ok {
		return nil, fmt.Errorf("part %s not found in package", rel.Target)
	}
	return &Part{
		Name:        rel.Target,
		RelID:       rel.ID,
		ContentType: p.types.of(rel.Target),
		Size:        size,
	}, nil
}

func (p *Package) shapeRel(sh Shape, rID string) (Relationship, error) {
	rels, err := p.relsFor(sh.Owner)
	if err != nil {
		return Relationship{}, err
	}
	rel, ok := rels.Get(rID)
	if !ok {
		return Relationship{}, fmt.Errorf("relationship %s of %s not found", rID, sh.Owner)
	}
	if rel.External {
		return Relationship{}, fmt.Errorf("relationship %s of %s points outside the package (%s)", rID, sh.Owner, rel.Target)
	}
	return rel, nil
}
