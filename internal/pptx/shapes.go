package pptx

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

type ShapeKind int

const (
	ShapePicture ShapeKind = iota + 1
	ShapeMedia
)

func (k ShapeKind) String() string {
	switch k {
	case ShapePicture:
		return "picture"
	case ShapeMedia:
		return "media"
	default:
		return "other"
	}
}

// Shape is a top-level picture or media frame of a slide, layout or master.
// Sizes are in EMU.
type Shape struct {
	ID          string
	Name        string
	Kind        ShapeKind
	Placeholder string // placeholder type, empty when the shape is not a placeholder
	ImageRID    string
	ImageLink   string
	MediaRID    string
	Width       int64
	Height      int64
	Owner       string // part the shape lives in
}

type mediaRefXML struct {
	Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
	Link  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships link,attr"`
}

func (m *mediaRefXML) ref() string {
	if m == nil {
		return ""
	}
	if m.Embed != "" {
		return m.Embed
	}
	return m.Link
}

type placeholderXML struct {
	Type string `xml:"type,attr"`
}

type picXML struct {
	NvPicPr struct {
		CNvPr struct {
			ID   string `xml:"id,attr"`
			Name string `xml:"name,attr"`
		} `xml:"cNvPr"`
		NvPr struct {
			Ph           *placeholderXML `xml:"ph"`
			VideoFile    *mediaRefXML    `xml:"videoFile"`
			AudioFile    *mediaRefXML    `xml:"audioFile"`
			WavAudioFile *mediaRefXML    `xml:"wavAudioFile"`
			Ext          []struct {
				Media *mediaRefXML `xml:"media"`
			} `xml:"extLst>ext"`
		} `xml:"nvPr"`
	} `xml:"nvPicPr"`
	BlipFill struct {
		Blip mediaRefXML `xml:"blip"`
	} `xml:"blipFill"`
	SpPr struct {
		Ext struct {
			Cx int64 `xml:"cx,attr"`
			Cy int64 `xml:"cy,attr"`
		} `xml:"xfrm>ext"`
	} `xml:"spPr"`
}

// mediaRef prefers the p14:media embed over the legacy file links.
func (p *picXML) mediaRef() (string, bool) {
	nv := p.NvPicPr.NvPr
	for _, ext := range nv.Ext {
		if ref := ext.Media.ref(); ref != "" {
			return ref, true
		}
	}
	isMedia := false
	for _, m := range []*mediaRefXML{nv.VideoFile, nv.AudioFile, nv.WavAudioFile} {
		if m == nil {
			continue
		}
		isMedia = true
		if ref := m.ref(); ref != "" {
			return ref, true
		}
	}
	return "", isMedia
}

type spXML struct {
	NvSpPr struct {
		NvPr struct {
			Ph *placeholderXML `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	TxBody *struct {
		Paragraphs []struct {
			Items []struct {
				XMLName xml.Name
				Text    string `xml:"t"`
			} `xml:",any"`
		} `xml:"p"`
	} `xml:"txBody"`
}

func (s *spXML) text() string {
	if s.TxBody == nil {
		return ""
	}
	paragraphs := make([]string, 0, len(s.TxBody.Paragraphs))
	for _, p := range s.TxBody.Paragraphs {
		var b strings.Builder
		for _, item := range p.Items {
			switch item.XMLName.Local {
			case "r", "fld":
				b.WriteString(item.Text)
			case "br":
				// Soft line break; "\n" separates paragraphs.
				b.WriteString("\v")
			}
		}
		paragraphs = append(paragraphs, b.String())
	}
	return strings.Join(paragraphs, "\n")
}

type shapeTree struct {
	name       string
	title      string
	shapes     []Shape
	layoutRIDs []string
}

// parseShapeTree walks a slide, layout or master part. Only direct children
// of p:spTree are inspected; group shapes are not descended into.
func parseShapeTree(data []byte, owner string) (*shapeTree, error) {
	dec := newDecoder(bytes.NewReader(data))

	tree := &shapeTree{}
	titleSeen := false
	depth := 0
	treeDepth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++

			if treeDepth > 0 && depth == treeDepth+1 {
				switch el.Name.Local {
				case "pic":
					var pic picXML
					if err := dec.DecodeElement(&pic, &el); err != nil {
						return nil, err
					}
					tree.shapes = append(tree.shapes, newPictureShape(&pic, owner))

				case "sp":
					var sp spXML
					if err := dec.DecodeElement(&sp, &el); err != nil {
						return nil, err
					}
					ph := sp.NvSpPr.NvPr.Ph
					if !titleSeen && ph != nil && normalizePlaceholder(ph.Type) == "title" {
						titleSeen = true
						tree.title = strings.TrimSpace(sp.text())
					}

				default:
					if err := dec.Skip(); err != nil {
						return nil, err
					}
				}
				depth--
				continue
			}

			switch el.Name.Local {
			case "cSld":
				for _, a := range el.Attr {
					if a.Name.Local == "name" {
						tree.name = a.Value
					}
				}
			case "spTree":
				if treeDepth == 0 {
					treeDepth = depth
				}
			case "sldLayoutId":
				if rID := relAttr(el); rID != "" {
					tree.layoutRIDs = append(tree.layoutRIDs, rID)
				}
			}

		case xml.EndElement:
			if depth == treeDepth {
				treeDepth = -1
			}
			depth--
		}
	}

	return tree, nil
}

func newPictureShape(pic *picXML, owner string) Shape {
	sh := Shape{
		ID:        pic.NvPicPr.CNvPr.ID,
		Name:      pic.NvPicPr.CNvPr.Name,
		Kind:      ShapePicture,
		ImageRID:  pic.BlipFill.Blip.Embed,
		ImageLink: pic.BlipFill.Blip.Link,
		Width:     pic.SpPr.Ext.Cx,
		Height:    pic.SpPr.Ext.Cy,
		Owner:     owner,
	}
	if ph := pic.NvPicPr.NvPr.Ph; ph != nil {
		sh.Placeholder = normalizePlaceholder(ph.Type)
	}
	if ref, ok := pic.mediaRef(); ok {
		sh.Kind = ShapeMedia
		sh.MediaRID = ref
	}
	return sh
}

func normalizePlaceholder(ph string) string {
	switch ph {
	case "title", "ctrTitle":
		return "title"
	case "body":
		return "body"
	case "pic":
		return "pic"
	default:
		return "other"
	}
}
