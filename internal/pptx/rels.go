package pptx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html/charset"
)

const nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

// Relationship type suffixes. Both the transitional and the Microsoft 2007
// media namespaces end in the same segment.
const (
	relOfficeDocument = "/officeDocument"
	relSlideMaster    = "/slideMaster"
	relSlideLayout    = "/slideLayout"
)

// Relationship is one entry of a part's .rels file with its target resolved
// to a package part name (no leading slash).
type Relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// Relationships keeps the relationships of a single source part in document order.
type Relationships []Relationship

func (r Relationships) Get(id string) (Relationship, bool) {
	for _, rel := range r {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

func (r Relationships) FirstOfType(suffix string) (Relationship, bool) {
	for _, rel := range r {
		if strings.HasSuffix(rel.Type, suffix) {
			return rel, true
		}
	}
	return Relationship{}, false
}

type relsXML struct {
	Relationships []struct {
		ID         string `xml:"Id,attr"`
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// relsPartName maps a source part to its relationships part:
// ppt/slides/slide1.xml -> ppt/slides/_rels/slide1.xml.rels.
func relsPartName(source string) string {
	if source == "" {
		return "_rels/.rels"
	}
	return path.Join(path.Dir(source), "_rels", path.Base(source)+".rels")
}

func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	base := "."
	if source != "" {
		base = path.Dir(source)
	}
	return path.Join(base, target)
}

// relsFor parses the relationships of a source part. A missing .rels part
// means the source has no relationships.
func (p *Package) relsFor(source string) (Relationships, error) {
	if rels, ok := p.rels[source]; ok {
		return rels, nil
	}

	name := relsPartName(source)
	var rels Relationships
	if p.HasPart(name) {
		data, err := p.readPart(name)
		if err != nil {
			return nil, err
		}
		var doc relsXML
		if err := decodeXML(data, &doc); err != nil {
			return nil, fmt.Errorf("relationships %s: %w", name, err)
		}
		for _, r := range doc.Relationships {
			rel := Relationship{
				ID:       r.ID,
				Type:     r.Type,
				External: strings.EqualFold(r.TargetMode, "External"),
			}
			if rel.External {
				rel.Target = r.Target
			} else {
				rel.Target = resolveTarget(source, r.Target)
			}
			rels = append(rels, rel)
		}
	}
	p.rels[source] = rels
	return rels, nil
}

type contentTypes struct {
	defaults  map[string]string
	overrides map[string]string
}

func parseContentTypes(data []byte) (*contentTypes, error) {
	var doc struct {
		Defaults []struct {
			Extension   string `xml:"Extension,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Default"`
		Overrides []struct {
			PartName    string `xml:"PartName,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Override"`
	}
	if err := decodeXML(data, &doc); err != nil {
		return nil, err
	}

	ct := &contentTypes{
		defaults:  make(map[string]string, len(doc.Defaults)),
		overrides: make(map[string]string, len(doc.Overrides)),
	}
	for _, d := range doc.Defaults {
		ct.defaults[strings.ToLower(d.Extension)] = d.ContentType
	}
	for _, o := range doc.Overrides {
		ct.overrides[strings.ToLower(strings.TrimPrefix(o.PartName, "/"))] = o.ContentType
	}
	return ct, nil
}

// of returns the content type of a part; part names compare case-insensitively.
func (c *contentTypes) of(part string) string {
	if ct, ok := c.overrides[strings.ToLower(part)]; ok {
		return ct
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(part), "."))
	if ct, ok := c.defaults[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return dec
}

func decodeXML(data []byte, v any) error {
	return newDecoder(bytes.NewReader(data)).Decode(v)
}

func relAttr(el xml.StartElement) string {
	for _, a := range el.Attr {
		if a.Name.Space == nsRelationships && a.Name.Local == "id" {
			return a.Value
		}
	}
	return ""
}
