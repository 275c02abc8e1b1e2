package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyContentType(t *testing.T) {
	cases := map[string]Kind{
		"video/mp4":                KindVideo,
		"VIDEO/QuickTime":          KindVideo,
		"audio/mpeg":               KindAudio,
		"audio/x-wav":              KindAudio,
		"application/octet-stream": KindOther,
		"":                         KindOther,
	}
	for ct, want := range cases {
		assert.Equal(t, want, ClassifyContentType(ct), ct)
	}
}

func TestRegisterBlobDeduplicates(t *testing.T) {
	r := NewRegistry()
	logo := []byte("logo-bytes")
	meta := Metadata{Kind: KindImage, ContentType: "image/png", Filename: "image1.png"}

	a1 := r.RegisterBlob(3, logo, meta)
	a2 := r.RegisterBlob(1, []byte("logo-bytes"), Metadata{Kind: KindImage, Filename: "image7.png"})
	a3 := r.RegisterBlob(3, logo, meta)

	require.Same(t, a1, a2)
	require.Same(t, a1, a3)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []int{3, 1, 3}, a1.Appearances, "repeat references on a slide are kept")
	assert.Equal(t, 1, a1.FirstSlide())
	assert.True(t, a1.IsShared())
	assert.Equal(t, "image1.png", a1.Filename, "metadata comes from the first registration")
	assert.Equal(t, int64(len(logo)), a1.Size)
	assert.Equal(t, logo, a1.Blob)
	assert.Len(t, a1.Key, 64)

	got, ok := r.Get(a1.Key)
	require.True(t, ok)
	assert.Same(t, a1, got)
}

func TestRegisterBlobSingleAppearance(t *testing.T) {
	r := NewRegistry()
	a := r.RegisterBlob(2, []byte{1, 2, 3}, Metadata{Kind: KindImage})
	b := r.RegisterBlob(2, []byte{1, 2, 4}, Metadata{Kind: KindImage})

	assert.NotSame(t, a, b)
	assert.False(t, a.IsShared())
	assert.Equal(t, 2, a.FirstSlide())
	assert.Equal(t, []*Asset{a, b}, r.Assets())
}

func TestRegisterBlobHashCollision(t *testing.T) {
	r := NewRegistry()
	r.hash = func([]byte) string { return "same" }

	a := r.RegisterBlob(1, []byte("first"), Metadata{Kind: KindImage})
	b := r.RegisterBlob(2, []byte("second"), Metadata{Kind: KindImage})
	c := r.RegisterBlob(3, []byte("second"), Metadata{Kind: KindImage})

	assert.NotSame(t, a, b, "colliding digests with different bytes stay separate")
	assert.Same(t, b, c)
	assert.Equal(t, "same", a.Key)
	assert.Equal(t, "same#1", b.Key)
	assert.Equal(t, []int{2, 3}, b.Appearances)
	assert.False(t, a.IsShared())
}

func TestRegisterPart(t *testing.T) {
	r := NewRegistry()
	meta := Metadata{Kind: KindVideo, ContentType: "video/mp4", Filename: "media1.mp4"}

	a := r.RegisterPart(4, "ppt/media/media1.mp4", 1<<20, meta)
	b := r.RegisterPart(2, "ppt/media/media1.mp4", 1<<20, meta)
	c := r.RegisterPart(2, "ppt/media/media2.mp4", 10, meta)

	require.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "part:ppt/media/media1.mp4", a.Key)
	assert.Equal(t, 2, a.FirstSlide())
	assert.True(t, a.IsShared())
	assert.Nil(t, a.Blob)
	assert.Equal(t, int64(1<<20), a.Size)
}

func TestFirstSlideEmpty(t *testing.T) {
	assert.Zero(t, (&Asset{}).FirstSlide())
}
