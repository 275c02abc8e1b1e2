package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"os"
	"strconv"

	"github.com/gnemet/SlideWeight/internal/analyzer"
	blackfriday "github.com/russross/blackfriday/v2"
)

// ErrWrite marks every failure to write a report file.
var ErrWrite = errors.New("failed to write output file")

func writeErr(path string, err error) error {
	return fmt.Errorf("%w %s: %w", ErrWrite, path, err)
}

// WriteJSON writes v as indented JSON. Non-ASCII text and HTML characters
// are written as is.
func WriteJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return writeErr(path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = writeErr(path, cerr)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return writeErr(path, err)
	}
	return nil
}

var csvHeader = []string{
	"rank",
	"slide_index",
	"slide_title",
	"total_media_bytes",
	"image_bytes",
	"video_bytes",
	"audio_bytes",
	"other_media_bytes",
}

// WriteCSV writes one row per slide in ranking order, CRLF terminated.
// Missing titles are written as empty cells.
func WriteCSV(path string, results []analyzer.SlideMediaStats) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return writeErr(path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = writeErr(path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	w.UseCRLF = true
	if err := w.Write(csvHeader); err != nil {
		return writeErr(path, err)
	}
	for i, s := range results {
		row := []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(s.SlideIndex),
			s.Title(),
			strconv.FormatInt(s.TotalMediaBytes, 10),
			strconv.FormatInt(s.ImageBytes, 10),
			strconv.FormatInt(s.VideoBytes, 10),
			strconv.FormatInt(s.AudioBytes, 10),
			strconv.FormatInt(s.OtherMediaBytes, 10),
		}
		if err := w.Write(row); err != nil {
			return writeErr(path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return writeErr(path, err)
	}
	return nil
}

var markdownExtensions = blackfriday.CommonExtensions |
	blackfriday.AutoHeadingIDs |
	blackfriday.Tables

const htmlPage = `<!doctype html><html lang="en"><head><meta charset="utf-8"/><title>%s</title>` +
	`<style>body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',sans-serif;background:#f8fafc;color:#0f172a;padding:2rem;} ` +
	`main{max-width:1100px;margin:0 auto;background:white;border-radius:1rem;box-shadow:0 10px 35px rgba(15,23,42,0.08);padding:2rem;} ` +
	`table{width:100%%;border-collapse:collapse;margin:1rem 0;} th,td{border:1px solid #e2e8f0;padding:0.5rem;text-align:left;} ` +
	`code{background:#0f172a0d;padding:0.2em 0.4em;border-radius:0.375rem;}</style></head><body><main>%s</main></body></html>`

// RenderHTML converts a Markdown report into a standalone HTML page.
func RenderHTML(title, markdown string) []byte {
	body := blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(markdownExtensions))
	return []byte(fmt.Sprintf(htmlPage, html.EscapeString(title), body))
}

// WriteHTML renders markdown with RenderHTML and writes it to path.
func WriteHTML(path, title, markdown string) error {
	if err := os.WriteFile(path, RenderHTML(title, markdown), 0o644); err != nil {
		return writeErr(path, err)
	}
	return nil
}
