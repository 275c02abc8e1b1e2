package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SaveWithoutLayouts writes a copy of the package to dst with the given
// layouts removed from their masters' layout lists. The layout parts and the
// master relationships pointing at them stay in the archive. The source file
// is never modified. It returns the number of layout entries removed.
func (p *Package) SaveWithoutLayouts(dst string, layoutIDs []int) (int, error) {
	same, err := samePath(p.path, dst)
	if err != nil {
		return 0, err
	}
	if same {
		return 0, fmt.Errorf("refusing to overwrite the source presentation %s", p.path)
	}

	remove := make(map[*Master]map[string]bool)
	for _, id := range layoutIDs {
		layout := p.Layout(id)
		if layout == nil {
			return 0, fmt.Errorf("unknown layout handle %d", id)
		}
		for _, master := range p.masters {
			rIDs, err := p.layoutRIDsOf(master, layout)
			if err != nil {
				return 0, err
			}
			for _, rID := range rIDs {
				if remove[master] == nil {
					remove[master] = make(map[string]bool)
				}
				remove[master][rID] = true
			}
		}
	}

	replaced := make(map[string][]byte)
	removed := 0
	for master, rIDs := range remove {
		data, err := p.readPart(master.Part)
		if err != nil {
			return 0, err
		}
		out, n, err := removeLayoutEntries(data, rIDs)
		if err != nil {
			return 0, fmt.Errorf("slide master %s: %w", master.Part, err)
		}
		replaced[master.Part] = out
		removed += n
	}

	if err := p.writeArchive(dst, replaced); err != nil {
		return 0, err
	}
	return removed, nil
}

func (p *Package) layoutRIDsOf(master *Master, layout *Layout) ([]string, error) {
	rels, err := p.relsFor(master.Part)
	if err != nil {
		return nil, err
	}
	var rIDs []string
	for _, rID := range master.layoutRIDs {
		if rel, ok := rels.Get(rID); ok && rel.Target == layout.Part {
			rIDs = append(rIDs, rID)
		}
	}
	return rIDs, nil
}

// writeArchive copies every entry of the source archive to dst, substituting
// the bytes of replaced parts. Unchanged entries are copied without
// recompression. The file appears at dst only once fully written.
func (p *Package) writeArchive(dst string, replaced map[string][]byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".slideweight-*.pptx")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, f := range p.zr.File {
		data, ok := replaced[strings.TrimPrefix(f.Name, "/")]
		if !ok {
			if err = zw.Copy(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}

		var w io.Writer
		w, err = zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
		if _, err = w.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("save %s: %w", dst, err)
	}
	return nil
}

// removeLayoutEntries cuts the p:sldLayoutId elements whose r:id is in rIDs
// out of the raw master XML, leaving every other byte untouched.
func removeLayoutEntries(data []byte, rIDs map[string]bool) ([]byte, int, error) {
	dec := newDecoder(bytes.NewReader(data))

	type span struct{ start, end int64 }
	var cuts []span

	for {
		start := dec.InputOffset()
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "sldLayoutId" || !rIDs[relAttr(el)] {
			continue
		}
		if err := dec.Skip(); err != nil {
			return nil, 0, err
		}
		cuts = append(cuts, span{start, dec.InputOffset()})
	}

	if len(cuts) == 0 {
		return data, 0, nil
	}

	out := make([]byte, 0, len(data))
	prev := int64(0)
	for _, c := range cuts {
		out = append(out, data[prev:c.start]...)
		prev = c.end
	}
	out = append(out, data[prev:]...)
	return out, len(cuts), nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	if absA == absB {
		return true, nil
	}

	infoA, errA := os.Stat(absA)
	infoB, errB := os.Stat(absB)
	if errA != nil || errB != nil {
		if errB != nil && !errors.Is(errB, os.ErrNotExist) {
			return false, errB
		}
		return false, nil
	}
	return os.SameFile(infoA, infoB), nil
}
