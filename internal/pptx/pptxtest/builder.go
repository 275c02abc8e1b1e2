// Package pptxtest builds small but structurally complete .pptx packages for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// EMUPerInch is the number of English Metric Units in one inch.
const EMUPerInch = 914400

const (
	nsP   = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP14 = "http://schemas.microsoft.com/office/powerpoint/2010/main"

	relBase        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	relMedia2007   = "http://schemas.microsoft.com/office/2007/relationships/media"
	ctPresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ctSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctLayout       = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	ctMaster       = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
)

// Picture is an image shape. Width and Height default to one inch.
type Picture struct {
	Data   []byte
	Ext    string // png, jpeg, gif
	Width  int64
	Height int64
	// Part names the media part explicitly so several shapes can point at the
	// same part, e.g. "logo.png". By default every picture gets its own part.
	Part        string
	Placeholder bool
	Linked      bool // reference an external URL instead of an embedded part
	Missing     bool // reference a part that is absent from the archive
}

// Media is a video or audio frame.
type Media struct {
	Data        []byte
	Ext         string // mp4, mp3, wav, ...
	ContentType string
	Audio       bool
	Part        string
}

type Slide struct {
	Title    string
	Layout   int // index into Builder.Layouts
	Pictures []Picture
	Media    []Media
	Grouped  []Picture // pictures nested in a group shape
}

type Layout struct {
	Name     string
	Master   int // index into Builder.Masters
	Pictures []Picture
}

type Master struct {
	Name     string
	Pictures []Picture
}

// Builder accumulates masters, layouts and slides and renders them as a package.
type Builder struct {
	Masters []Master
	Layouts []Layout
	Slides  []Slide
}

// New returns a builder with one master and the two layouts "Title Slide"
// and "Blank".
func New() *Builder {
	return &Builder{
		Masters: []Master{{Name: "Office Theme"}},
		Layouts: []Layout{{Name: "Title Slide"}, {Name: "Blank"}},
	}
}

// AddLayout appends a layout and returns its index.
func (b *Builder) AddLayout(l Layout) int {
	b.Layouts = append(b.Layouts, l)
	return len(b.Layouts) - 1
}

// AddSlide appends a slide and returns its 1-based slide number.
func (b *Builder) AddSlide(s Slide) int {
	b.Slides = append(b.Slides, s)
	return len(b.Slides)
}

// Save writes the package to dir/name and returns the full path.
func (b *Builder) Save(t testing.TB, dir, name string) string {
	t.Helper()
	out := filepath.Join(dir, name)
	if err := os.WriteFile(out, b.Bytes(t), 0o644); err != nil {
		t.Fatalf("write %s: %v", out, err)
	}
	return out
}

// Bytes renders the package.
func (b *Builder) Bytes(t testing.TB) []byte {
	t.Helper()
	w := &writer{parts: map[string]bool{}, overrides: map[string]string{}}
	if err := w.build(b); err != nil {
		t.Fatalf("build pptx: %v", err)
	}
	return w.buf.Bytes()
}

type rel struct {
	id, typ, target string
	external        bool
}

type writer struct {
	buf       bytes.Buffer
	zw        *zip.Writer
	parts     map[string]bool
	overrides map[string]string
	images    int
	media     int
}

func (w *writer) build(b *Builder) error {
	w.zw = zip.NewWriter(&w.buf)

	for i := range b.Layouts {
		if b.Layouts[i].Master < 0 || b.Layouts[i].Master >= len(b.Masters) {
			return fmt.Errorf("layout %d references unknown master %d", i, b.Layouts[i].Master)
		}
	}

	// presentation
	var presRels []rel
	var presXML strings.Builder
	presXML.WriteString(`<p:sldMasterIdLst>`)
	for i := range b.Masters {
		rID := fmt.Sprintf("rId%d", len(presRels)+1)
		presRels = append(presRels, rel{rID, relBase + "slideMaster", fmt.Sprintf("slideMasters/slideMaster%d.xml", i+1), false})
		fmt.Fprintf(&presXML, `<p:sldMasterId id="%d" r:id="%s"/>`, 2147483648+i*100, rID)
	}
	presXML.WriteString(`</p:sldMasterIdLst><p:sldIdLst>`)
	for i := range b.Slides {
		rID := fmt.Sprintf("rId%d", len(presRels)+1)
		presRels = append(presRels, rel{rID, relBase + "slide", fmt.Sprintf("slides/slide%d.xml", i+1), false})
		fmt.Fprintf(&presXML, `<p:sldId id="%d" r:id="%s"/>`, 256+i, rID)
	}
	presXML.WriteString(`</p:sldIdLst><p:sldSz cx="12192000" cy="6858000"/>`)

	if err := w.writeXML("ppt/presentation.xml", ctPresentation,
		`<p:presentation xmlns:p="`+nsP+`" xmlns:a="`+nsA+`" xmlns:r="`+nsR+`">`+presXML.String()+`</p:presentation>`); err != nil {
		return err
	}
	if err := w.writeRels("ppt/presentation.xml", presRels); err != nil {
		return err
	}

	// masters
	for mi, m := range b.Masters {
		part := fmt.Sprintf("ppt/slideMasters/slideMaster%d.xml", mi+1)
		var rels []rel
		var layoutList strings.Builder
		for li, l := range b.Layouts {
			if l.Master != mi {
				continue
			}
			rID := fmt.Sprintf("rId%d", len(rels)+1)
			rels = append(rels, rel{rID, relBase + "slideLayout", fmt.Sprintf("../slideLayouts/slideLayout%d.xml", li+1), false})
			fmt.Fprintf(&layoutList, `<p:sldLayoutId id="%d" r:id="%s"/>`, 2147483649+li, rID)
		}
		shapes, rels, err := w.pictures(m.Pictures, rels)
		if err != nil {
			return err
		}
		body := `<p:sldMaster xmlns:p="` + nsP + `" xmlns:a="` + nsA + `" xmlns:r="` + nsR + `">` +
			cSld(m.Name, shapes) +
			`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
			`<p:sldLayoutIdLst>` + layoutList.String() + `</p:sldLayoutIdLst></p:sldMaster>`
		if err := w.writeXML(part, ctMaster, body); err != nil {
			return err
		}
		if err := w.writeRels(part, rels); err != nil {
			return err
		}
	}

	// layouts
	for li, l := range b.Layouts {
		part := fmt.Sprintf("ppt/slideLayouts/slideLayout%d.xml", li+1)
		rels := []rel{{"rId1", relBase + "slideMaster", fmt.Sprintf("../slideMasters/slideMaster%d.xml", l.Master+1), false}}
		shapes, rels, err := w.pictures(l.Pictures, rels)
		if err != nil {
			return err
		}
		body := `<p:sldLayout xmlns:p="` + nsP + `" xmlns:a="` + nsA + `" xmlns:r="` + nsR + `">` +
			cSld(l.Name, shapes) + `</p:sldLayout>`
		if err := w.writeXML(part, ctLayout, body); err != nil {
			return err
		}
		if err := w.writeRels(part, rels); err != nil {
			return err
		}
	}

	// slides
	for si, s := range b.Slides {
		if s.Layout < 0 || s.Layout >= len(b.Layouts) {
			return fmt.Errorf("slide %d references unknown layout %d", si+1, s.Layout)
		}
		part := fmt.Sprintf("ppt/slides/slide%d.xml", si+1)
		rels := []rel{{"rId1", relBase + "slideLayout", fmt.Sprintf("../slideLayouts/slideLayout%d.xml", s.Layout+1), false}}

		var shapes strings.Builder
		if s.Title != "" {
			fmt.Fprintf(&shapes, `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:p><a:r><a:rPr lang="en-US"/><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`, esc(s.Title))
		}
		pics, rels, err := w.pictures(s.Pictures, rels)
		if err != nil {
			return err
		}
		shapes.WriteString(pics)
		media, rels, err := w.mediaShapes(s.Media, rels)
		if err != nil {
			return err
		}
		shapes.WriteString(media)
		if len(s.Grouped) > 0 {
			grouped, groupRels, err := w.pictures(s.Grouped, rels)
			if err != nil {
				return err
			}
			rels = groupRels
			shapes.WriteString(`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="90" name="Group 89"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` + grouped + `</p:grpSp>`)
		}

		body := `<p:sld xmlns:p="` + nsP + `" xmlns:a="` + nsA + `" xmlns:r="` + nsR + `">` +
			cSld("", shapes.String()) + `</p:sld>`
		if err := w.writeXML(part, ctSlide, body); err != nil {
			return err
		}
		if err := w.writeRels(part, rels); err != nil {
			return err
		}
	}

	if err := w.writeRels("", []rel{{"rId1", relBase + "officeDocument", "ppt/presentation.xml", false}}); err != nil {
		return err
	}
	if err := w.writeContentTypes(); err != nil {
		return err
	}
	return w.zw.Close()
}

func cSld(name, shapes string) string {
	nameAttr := ""
	if name != "" {
		nameAttr = ` name="` + esc(name) + `"`
	}
	return `<p:cSld` + nameAttr + `><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		shapes + `</p:spTree></p:cSld>`
}

func (w *writer) pictures(pics []Picture, rels []rel) (string, []rel, error) {
	var sb strings.Builder
	for _, pic := range pics {
		rID := fmt.Sprintf("rId%d", len(rels)+1)
		blipAttr := `r:embed="` + rID + `"`

		switch {
		case pic.Linked:
			rels = append(rels, rel{rID, relBase + "image", "https://example.com/linked.png", true})
			blipAttr = `r:link="` + rID + `"`
		case pic.Missing:
			w.images++
			rels = append(rels, rel{rID, relBase + "image", fmt.Sprintf("../media/missing%d.png", w.images), false})
		default:
			name, err := w.mediaPart(pic.Part, "image", pic.Ext, pic.Data, "")
			if err != nil {
				return "", nil, err
			}
			rels = append(rels, rel{rID, relBase + "image", "../media/" + name, false})
		}

		cx, cy := pic.Width, pic.Height
		if cx == 0 {
			cx = EMUPerInch
		}
		if cy == 0 {
			cy = EMUPerInch
		}
		ph := ""
		if pic.Placeholder {
			ph = `<p:ph type="pic" idx="1"/>`
		}
		id := 10 + len(rels)
		fmt.Fprintf(&sb, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Picture %d"/><p:cNvPicPr/><p:nvPr>%s</p:nvPr></p:nvPicPr>`+
			`<p:blipFill><a:blip %s/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
			`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"/></p:spPr></p:pic>`,
			id, id-1, ph, blipAttr, cx, cy)
	}
	return sb.String(), rels, nil
}

func (w *writer) mediaShapes(items []Media, rels []rel) (string, []rel, error) {
	var sb strings.Builder
	for _, m := range items {
		name, err := w.mediaPart(m.Part, "media", m.Ext, m.Data, m.ContentType)
		if err != nil {
			return "", nil, err
		}
		embedID := fmt.Sprintf("rId%d", len(rels)+1)
		linkID := fmt.Sprintf("rId%d", len(rels)+2)
		kind, elem, label := "video", "videoFile", "Video"
		if m.Audio {
			kind, elem, label = "audio", "audioFile", "Audio"
		}
		rels = append(rels,
			rel{embedID, relMedia2007, "../media/" + name, false},
			rel{linkID, relBase + kind, "../media/" + name, false},
		)
		id := 10 + len(rels)
		fmt.Fprintf(&sb, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s %d"/><p:cNvPicPr/><p:nvPr>`+
			`<a:%s r:link="%s"/><p:extLst><p:ext uri="{DAA4B4D4-6D71-4841-9C94-3DE7FCFB9230}"><p14:media xmlns:p14="%s" r:embed="%s"/></p:ext></p:extLst>`+
			`</p:nvPr></p:nvPicPr><p:blipFill><a:blip/></p:blipFill>`+
			`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm></p:spPr></p:pic>`,
			id, label, id, elem, linkID, nsP14, embedID, 4*EMUPerInch, 3*EMUPerInch)
	}
	return sb.String(), rels, nil
}

// mediaPart stores data under ppt/media and returns the part's base name.
// A named part is written only once.
func (w *writer) mediaPart(name, prefix, ext string, data []byte, contentType string) (string, error) {
	if ext == "" {
		ext = "bin"
	}
	if name == "" {
		if prefix == "image" {
			w.images++
			name = fmt.Sprintf("image%d.%s", w.images, ext)
		} else {
			w.media++
			name = fmt.Sprintf("media%d.%s", w.media, ext)
		}
	}
	part := "ppt/media/" + name
	if w.parts[part] {
		return name, nil
	}
	if contentType != "" {
		w.overrides[part] = contentType
	}
	return name, w.write(part, data)
}

func (w *writer) write(name string, data []byte) error {
	if w.parts[name] {
		return fmt.Errorf("duplicate part %s", name)
	}
	w.parts[name] = true
	f, err := w.zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

func (w *writer) writeXML(part, contentType, body string) error {
	w.overrides[part] = contentType
	return w.write(part, []byte(xml.Header+body))
}

func (w *writer) writeRels(source string, rels []rel) error {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, r := range rels {
		mode := ""
		if r.external {
			mode = ` TargetMode="External"`
		}
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s" Target="%s"%s/>`, r.id, r.typ, esc(r.target), mode)
	}
	sb.WriteString(`</Relationships>`)

	name := "_rels/.rels"
	if source != "" {
		dir, base := path.Split(source)
		name = dir + "_rels/" + base + ".rels"
	}
	return w.write(name, []byte(sb.String()))
}

func (w *writer) writeContentTypes() error {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	for _, d := range [][2]string{
		{"rels", "application/vnd.openxmlformats-package.relationships+xml"},
		{"xml", "application/xml"},
		{"png", "image/png"},
		{"jpeg", "image/jpeg"},
		{"jpg", "image/jpeg"},
		{"gif", "image/gif"},
		{"mp4", "video/mp4"},
		{"mp3", "audio/mpeg"},
		{"wav", "audio/wav"},
		{"bin", "application/octet-stream"},
	} {
		fmt.Fprintf(&sb, `<Default Extension="%s" ContentType="%s"/>`, d[0], d[1])
	}
	parts := make([]string, 0, len(w.overrides))
	for part := range w.overrides {
		parts = append(parts, part)
	}
	sort.Strings(parts)
	for _, part := range parts {
		fmt.Fprintf(&sb, `<Override PartName="/%s" ContentType="%s"/>`, part, esc(w.overrides[part]))
	}
	sb.WriteString(`</Types>`)
	return w.write("[Content_Types].xml", []byte(sb.String()))
}

func esc(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

// PNG encodes a solid w×h image.
func PNG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h, c)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// NoisyPNG encodes a w×h image whose pixels vary, so it compresses poorly.
func NoisyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(2463534242)
	for i := 0; i < len(img.Pix); i++ {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		img.Pix[i] = byte(seed)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a solid w×h image at the given quality.
func JPEG(t testing.TB, w, h, quality int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, c), &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
