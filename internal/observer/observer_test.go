package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gnemet/SlideWeight/internal/config"
	"github.com/gnemet/SlideWeight/internal/database"
	"github.com/gnemet/SlideWeight/internal/pptx"
	"github.com/gnemet/SlideWeight/internal/pptx/pptxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   map[string]*database.Analysis
	slides  map[string][]database.SlideStat
	findErr error
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		saved:  map[string]*database.Analysis{},
		slides: map[string][]database.SlideStat{},
	}
}

func (s *fakeStore) FindByChecksum(checksum string) (*database.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.saved[checksum], nil
}

func (s *fakeStore) Save(a *database.Analysis, slides []database.SlideStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved[a.Checksum] = a
	s.slides[a.Checksum] = slides
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func deck() *pptxtest.Builder {
	b := pptxtest.New()
	b.AddSlide(pptxtest.Slide{Title: "Intro"})
	b.AddSlide(pptxtest.Slide{Title: "Photo", Pictures: []pptxtest.Picture{{Data: bytes.Repeat([]byte{'p'}, 4000), Ext: "png"}}})
	return b
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Watch: config.WatchConfig{
			Dir:       dir,
			ReportDir: filepath.Join(dir, "reports"),
			Settle:    10 * time.Millisecond,
		},
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	path := deck().Save(t, dir, "quarterly.pptx")
	cfg := testConfig(dir)
	require.NoError(t, os.MkdirAll(cfg.Watch.ReportDir, 0755))

	store := newFakeStore()
	o := NewObserver(cfg, store, nil)

	a, err := o.ProcessFile(path)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "quarterly.pptx", a.Filename)
	assert.Equal(t, 2, a.SlideCount)
	assert.Equal(t, int64(4000), a.TotalMediaBytes)
	assert.Len(t, a.Checksum, 64)
	assert.NotEmpty(t, a.RunID)
	assert.False(t, o.IsProcessing())

	require.Equal(t, 1, store.count())
	rows := store.slides[a.Checksum]
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 2, rows[0].SlideIndex)
	require.NotNil(t, rows[0].Title)
	assert.Equal(t, "Photo", *rows[0].Title)

	data, err := os.ReadFile(filepath.Join(cfg.Watch.ReportDir, "quarterly.report.json"))
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.EqualValues(t, 2, decoded[0]["slide_index"])
	assert.JSONEq(t, string(a.Report), string(data))
}

func TestProcessFileSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	b := deck()
	first := b.Save(t, dir, "a.pptx")
	copyPath := b.Save(t, dir, "b.pptx")

	store := newFakeStore()
	o := NewObserver(&config.Config{}, store, nil)

	a, err := o.ProcessFile(first)
	require.NoError(t, err)
	require.NotNil(t, a)

	// Same bytes under another name.
	again, err := o.ProcessFile(copyPath)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Equal(t, 1, store.count())

	// A fresh observer still finds the checksum in the archive.
	again, err = NewObserver(&config.Config{}, store, nil).ProcessFile(first)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestProcessFileWithoutStore(t *testing.T) {
	path := deck().Save(t, t.TempDir(), "deck.pptx")
	o := NewObserver(&config.Config{}, nil, nil)

	a, err := o.ProcessFile(path)
	require.NoError(t, err)
	require.NotNil(t, a)

	again, err := o.ProcessFile(path)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestProcessFileErrors(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "broken.pptx")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a zip"), 0644))

	o := NewObserver(&config.Config{}, newFakeStore(), nil)

	_, err := o.ProcessFile(filepath.Join(dir, "missing.pptx"))
	assert.Error(t, err)

	_, err = o.ProcessFile(corrupt)
	assert.ErrorIs(t, err, pptx.ErrCorrupt)

	good := deck().Save(t, dir, "good.pptx")

	lookup := newFakeStore()
	lookup.findErr = errors.New("connection refused")
	_, err = NewObserver(&config.Config{}, lookup, nil).ProcessFile(good)
	assert.ErrorContains(t, err, "connection refused")

	failing := newFakeStore()
	failing.saveErr = errors.New("disk full")
	o = NewObserver(&config.Config{}, failing, nil)
	_, err = o.ProcessFile(good)
	assert.ErrorContains(t, err, "disk full")

	// A failed save is not remembered as processed.
	failing.saveErr = nil
	a, err := o.ProcessFile(good)
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestIsPresentation(t *testing.T) {
	assert.True(t, isPresentation("/stage/deck.pptx"))
	assert.True(t, isPresentation("DECK.PPTX"))
	assert.False(t, isPresentation("notes.txt"))
	assert.False(t, isPresentation("/stage/~$deck.pptx"))
	assert.False(t, isPresentation("deck.ppt"))
}

func TestStartScansExistingFiles(t *testing.T) {
	dir := t.TempDir()
	deck().Save(t, dir, "existing.pptx")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0644))

	store := newFakeStore()
	o := NewObserver(testConfig(dir), store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Start(ctx) }()

	require.Eventually(t, func() bool { return store.count() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.FileExists(t, filepath.Join(dir, "reports", "existing.report.json"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("observer did not stop")
	}
}

func TestStartRequiresDirectory(t *testing.T) {
	err := NewObserver(&config.Config{}, nil, nil).Start(context.Background())
	assert.ErrorContains(t, err, "watch directory not configured")
}
