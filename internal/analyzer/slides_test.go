package analyzer

import (
	"testing"

	"github.com/gnemet/SlideWeight/internal/media"
	"github.com/gnemet/SlideWeight/internal/pptx/pptxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlideStatsSingleImage(t *testing.T) {
	img := blob(12345, 'a')
	b := pptxtest.New()
	b.AddSlide(pptxtest.Slide{Title: "Photo", Pictures: []pptxtest.Picture{{Data: img, Ext: "png"}}})

	stats := New(nil).SlideStats(open(t, b), false)
	require.Len(t, stats, 1)

	s := stats[0]
	assert.Equal(t, 1, s.SlideIndex)
	assert.Equal(t, "Photo", s.Title())
	assert.Equal(t, int64(len(img)), s.ImageBytes)
	assert.Equal(t, s.ImageBytes, s.TotalMediaBytes)
	require.Len(t, s.MediaItems, 1)

	item := s.MediaItems[0]
	assert.Equal(t, media.KindImage, item.Type)
	assert.Equal(t, int64(len(img)), item.SizeBytes)
	assert.Equal(t, "image1.png", item.Filename)
	assert.Equal(t, "image/png", item.ContentType)
	assert.Equal(t, "rId2", item.RelationshipID)
	assert.False(t, item.Shared)
}

func TestSlideStatsSharedImage(t *testing.T) {
	logo := blob(5000, 'L')
	b := pptxtest.New()
	b.AddSlide(pptxtest.Slide{Title: "No logo"})
	for i := 0; i < 3; i++ {
		// every slide gets its own part with identical bytes
		b.AddSlide(pptxtest.Slide{Pictures: []pptxtest.Picture{{Data: logo, Ext: "png"}}})
	}
	doc := open(t, b)

	t.Run("ignore shared", func(t *testing.T) {
		stats := bySlide(New(nil).SlideStats(doc, false))
		assert.Equal(t, int64(5000), stats[2].TotalMediaBytes)
		assert.Zero(t, stats[3].TotalMediaBytes)
		assert.Zero(t, stats[4].TotalMediaBytes)
		for _, idx := range []int{2, 3, 4} {
			require.Len(t, stats[idx].MediaItems, 1)
			assert.True(t, stats[idx].MediaItems[0].Shared, "slide %d", idx)
		}
	})

	t.Run("include shared", func(t *testing.T) {
		stats := bySlide(New(nil).SlideStats(doc, true))
		for _, idx := range []int{2, 3, 4} {
			assert.Equal(t, int64(5000), stats[idx].TotalMediaBytes, "slide %d", idx)
			assert.True(t, stats[idx].MediaItems[0].Shared)
		}
		assert.Zero(t, stats[1].TotalMediaBytes)
	})
}

func TestSlideStatsRepeatedOnOneSlide(t *testing.T) {
	logo := blob(700, 'R')
	b := pptxtest.New()
	b.AddSlide(pptxtest.Slide{Pictures: []pptxtest.Picture{
		{Data: logo, Ext: "png", Part: "logo.png"},
		{Data: logo, Ext: "png", Part: "logo.png"},
	}})

	stats := New(nil).SlideStats(open(t, b), false)
	require.Len(t, stats[0].MediaItems, 2)
	assert.True(t, stats[0].MediaItems[0].Shared)
	assert.Equal(t, int64(1400), stats[0].TotalMediaBytes, "first slide counts every reference")
}

func TestSlideStatsNoMedia(t *testing.T) {
	b := pptxtest.New()
	b.AddSlide(pptxtest.Slide{Title: "One"})
	b.AddSlide(pptxtest.Slide{})

	stats := New(nil).SlideStats(open(t, b), false)
	require.Len(t, stats, 2)
	for _, s := range stats {
		assert.Zero(t, s.TotalMediaBytes)
		assert.Zero(t, s.ImageBytes)
		assert.Zero(t, s.VideoBytes)
		assert.Zero(t, s.AudioBytes)
		assert.Zero(t, s.OtherMediaBytes)
		assert.NotNil(t, s.MediaItems)
		assert.Empty(t, s.MediaItems)
	}
	assert.Equal(t, []int{1, 2}, []int{stats[0].SlideIndex, stats[1].SlideIndex}, "ties keep slide order")
	assert.Nil(t, stats[1].SlideTitle)
}

func TestSlideStatsRanking(t *testing.T) {
	b := pptxtest.New()
	for i, n := range []int{100, 200, 300} {
		b.AddSlide(pptxtest.Slide{Pictures: []pptxtest.Picture{{Data: blob(n, byte('a'+i)), Ext: "png"}}})
	}

	stats := New(nil).SlideStats(open(t, b), false)
	require.Len(t, stats, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{stats[0].SlideIndex, stats[1].SlideIndex, stats[2].SlideIndex})
	assert.Equal(t, []int64{300, 200, 100},
		[]int64{stats[0].TotalMediaBytes, stats[1].TotalMediaBytes, stats[2].TotalMediaBytes})
}

func TestSlideStatsVideoAudioOther(t *testing.T) {
	video := pptxtest.Media{Data: blob(9000, 'v'), Ext: "mp4", Part: "intro.mp4"}
	b := pptxtest.New()
	b.AddSlide(pptxtest.Slide{Media: []pptxtest.Media{
		video,
		{Data: blob(3000, 's'), Ext: "mp3", Audio: true},
		{Data: blob(100, 'x'), Ext: "bin", ContentType: "application/x-custom"},
	}})
	b.AddSlide(pptxtest.Slide{Media: []pptxtest.Media{video}})

	stats := bySlide(New(nil).SlideStats(open(t, b), false))

	first := stats[1]
	assert.Equal(t, int64(9000), first.VideoBytes)
	assert.Equal(t, int64(3000), first.AudioBytes)
	assert.Equal(t, int64(100), first.OtherMediaBytes)
	assert.Equal(t, int64(12100), first.TotalMediaBytes)
	require.Len(t, first.MediaItems, 3)
	assert.Equal(t, media.KindVideo, first.MediaItems[0].Type)
	assert.Equal(t, "intro.mp4", first.MediaItems[0].Filename)
	assert.True(t, first.MediaItems[0].Shared)
	assert.Equal(t, media.KindAudio, first.MediaItems[1].Type)
	assert.Equal(t, "audio/mpeg", first.MediaItems[1].ContentType)
	assert.Equal(t, media.KindOther, first.MediaItems[2].Type)

	second := stats[2]
	assert.Zero(t, second.TotalMediaBytes)
	require.Len(t, second.MediaItems, 1)
	assert.True(t, second.MediaItems[0].Shared)
}

func TestSlideStatsSkipsBrokenShapes(t *testing.T) {
	b := pptxtest.New()
	b.AddSlide(pptxtest.Slide{Pictures: []pptxtest.Picture{
		{Linked: true},
		{Data: blob(50, 'g'), Ext: "png"},
		{Missing: true},
	}})

	a := New(nil)
	stats := a.SlideStats(open(t, b), false)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(50), stats[0].TotalMediaBytes)
	require.Len(t, stats[0].MediaItems, 1)

	warnings := a.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "slide 1", warnings[0].Location)
	assert.Contains(t, warnings[0].Error(), "linked")

	a.Reset()
	assert.Empty(t, a.Warnings())
}

func TestSlideStatsIgnoresGroupedPictures(t *testing.T) {
	b := pptxtest.New()
	b.AddSlide(pptxtest.Slide{Grouped: []pptxtest.Picture{{Data: blob(80, 'q'), Ext: "png"}}})

	stats := New(nil).SlideStats(open(t, b), false)
	assert.Zero(t, stats[0].TotalMediaBytes)
	assert.Empty(t, stats[0].MediaItems)
}
