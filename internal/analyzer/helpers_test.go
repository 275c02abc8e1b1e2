package analyzer

import (
	"bytes"
	"testing"

	"github.com/gnemet/SlideWeight/internal/pptx"
	"github.com/gnemet/SlideWeight/internal/pptx/pptxtest"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, b *pptxtest.Builder) *pptx.Package {
	t.Helper()
	pkg, err := pptx.Open(b.Save(t, t.TempDir(), "deck.pptx"))
	require.NoError(t, err)
	t.Cleanup(func() { pkg.Close() })
	return pkg
}

// blob returns n bytes filled with c.
func blob(n int, c byte) []byte {
	return bytes.Repeat([]byte{c}, n)
}

func bySlide(stats []SlideMediaStats) map[int]SlideMediaStats {
	m := make(map[int]SlideMediaStats, len(stats))
	for _, s := range stats {
		m[s.SlideIndex] = s
	}
	return m
}
