package main

import (
	"bytes"
	"context"
	"encoding/json"
	imgcolor "image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gnemet/SlideWeight/internal/pptx"
	"github.com/gnemet/SlideWeight/internal/pptx/pptxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// execute runs the CLI from an empty working directory so no config.yaml or
// .env is picked up.
func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	chdir(t, t.TempDir())
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func fixture(t *testing.T) string {
	t.Helper()
	b := pptxtest.New()
	logo := bytes.Repeat([]byte{'L'}, 2048)
	b.AddSlide(pptxtest.Slide{Title: "Intro", Pictures: []pptxtest.Picture{{Data: logo, Ext: "png", Part: "logo.png"}}})
	b.AddSlide(pptxtest.Slide{Title: "Photo", Pictures: []pptxtest.Picture{
		{Data: bytes.Repeat([]byte{'p'}, 4000), Ext: "png"},
		{Data: logo, Ext: "png", Part: "logo.png"},
	}})
	b.AddSlide(pptxtest.Slide{})
	return b.Save(t, t.TempDir(), "deck.pptx")
}

func TestNoArgumentsPrintsIntro(t *testing.T) {
	code, out, errOut := execute(t)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "slideweight <file.pptx>")
	assert.Empty(t, errOut)
}

func TestVersion(t *testing.T) {
	code, out, _ := execute(t, "--version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "slideweight 1.0.0\n", out)
}

func TestSlideListing(t *testing.T) {
	input := fixture(t)
	code, out, errOut := execute(t, input)
	require.Equal(t, 0, code, errOut)

	assert.Contains(t, out, "Analyzing: "+input)
	assert.Contains(t, out, "Total slides: 3")
	assert.Contains(t, out, `#1   Slide 2   |     3.9 KB | title="Photo"`)
	assert.Contains(t, out, `#2   Slide 1   |     2.0 KB | title="Intro"`)
	assert.Contains(t, out, `#3   Slide 3   |     0.0 MB | title="(no title)"`)
}

func TestSlideListingIncludeShared(t *testing.T) {
	input := fixture(t)
	code, out, _ := execute(t, input, "--include-shared-media", "--top", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `#1   Slide 2   |     5.9 KB | title="Photo"`)
	assert.NotContains(t, out, "#2 ")
}

func TestOutputFiles(t *testing.T) {
	input := fixture(t)
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out.json")
	csvPath := filepath.Join(dir, "out.csv")
	htmlPath := filepath.Join(dir, "out.html")

	code, _, errOut := execute(t, input, "--output-json", jsonPath, "--output-csv", csvPath, "--output-html", htmlPath)
	require.Equal(t, 0, code, errOut)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var slides []map[string]any
	require.NoError(t, json.Unmarshal(data, &slides))
	require.Len(t, slides, 3)
	assert.EqualValues(t, 2, slides[0]["slide_index"])
	assert.Nil(t, slides[2]["slide_title"])

	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\r\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "rank,slide_index,slide_title,total_media_bytes,image_bytes,video_bytes,audio_bytes,other_media_bytes", lines[0])
	assert.Equal(t, "3,3,,0,0,0,0,0", lines[3])

	html, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>SlideWeight: deck.pptx</title>")
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{filepath.Join(dir, "nope.pptx")}, "Error: file not found"},
		{"wrong type", []string{txt}, "Error: unsupported file type"},
		{"exclusive media flags", []string{"x.pptx", "--include-shared-media", "--ignore-shared-media"}, "Error: if any flags in the group"},
		{"exclusive modes", []string{"x.pptx", "--masters-report", "--optimization-report"}, "Error: if any flags in the group"},
		{"too many args", []string{"a.pptx", "b.pptx"}, "Error: accepts 1 arg(s)"},
		{"missing config", []string{"x.pptx", "--config", filepath.Join(dir, "none.yaml")}, "none.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := execute(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Empty(t, out)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestOutputWriteFailure(t *testing.T) {
	input := fixture(t)
	bad := filepath.Join(t.TempDir(), "missing-dir", "out.json")
	code, _, errOut := execute(t, input, "--output-json", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error: failed to write output file "+bad)
}

func TestOptimizationReport(t *testing.T) {
	b := pptxtest.New()
	b.AddSlide(pptxtest.Slide{Title: "Big", Pictures: []pptxtest.Picture{
		{Data: pptxtest.PNG(t, 1200, 900, imgcolor.RGBA{R: 200, A: 255}), Ext: "png", Width: pptxtest.EMUPerInch, Height: pptxtest.EMUPerInch},
	}})
	input := b.Save(t, t.TempDir(), "big.pptx")
	jsonPath := filepath.Join(t.TempDir(), "opps.json")

	code, out, errOut := execute(t, input, "--optimization-report", "--output-json", jsonPath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "OPTIMIZATION REPORT: "+input)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var opps []map[string]any
	require.NoError(t, json.Unmarshal(data, &opps))
	require.NotEmpty(t, opps)
	assert.Equal(t, "oversized_resolution", opps[0]["type"])
}

func TestMastersReport(t *testing.T) {
	input := fixture(t)
	code, out, errOut := execute(t, input, "--masters-report")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "SLIDE MASTERS REPORT: "+input)
	assert.Contains(t, out, "Unused layouts: 1")
}

func TestDeleteUnusedLayouts(t *testing.T) {
	input := fixture(t)
	cleaned := filepath.Join(t.TempDir(), "slim.pptx")
	jsonPath := filepath.Join(t.TempDir(), "cleanup.json")

	code, out, errOut := execute(t, input, "--delete-unused-layouts", "--cleaned-output", cleaned, "--output-json", jsonPath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "CLEANUP COMPLETE")
	assert.Contains(t, out, "Layouts deleted: 1")
	assert.Contains(t, out, "Original file preserved: "+input)

	pkg, err := pptx.Open(cleaned)
	require.NoError(t, err)
	defer pkg.Close()
	assert.Len(t, pkg.Masters()[0].Layouts, 1)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.EqualValues(t, 1, doc["unused_layouts"])
	cleanup, ok := doc["cleanup"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, cleanup["deleted"])
	assert.Equal(t, cleaned, cleanup["output_path"])

	// Running again on the cleaned copy finds nothing to remove.
	code, out, _ = execute(t, cleaned, "--delete-unused-layouts")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No unused layouts to delete.")
}

func TestWatchAnalyzesStageDirectory(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("PG_HOST", "")
	stage := t.TempDir()
	reports := filepath.Join(t.TempDir(), "reports")
	b := pptxtest.New()
	b.AddSlide(pptxtest.Slide{Title: "Only"})
	b.Save(t, stage, "dropped.pptx")

	chdir(t, t.TempDir())
	var out, errOut bytes.Buffer
	cli := &CLI{stdout: &out, stderr: &errOut}
	require.NoError(t, cli.initialize())
	cli.cfg.Watch.Dir = stage
	cli.cfg.Watch.ReportDir = reports

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	report := filepath.Join(reports, "dropped.report.json")
	go func() {
		assert.Eventually(t, func() bool {
			_, err := os.Stat(report)
			return err == nil
		}, 5*time.Second, 10*time.Millisecond)
		cancel()
	}()

	require.NoError(t, cli.watch(ctx))
	assert.FileExists(t, report)
	assert.Contains(t, errOut.String(), "Analyzed presentation")
}

func TestHistoryRequiresDatabase(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("PG_HOST", "")
	code, _, errOut := execute(t, "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error: no database configured")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
