// Package media deduplicates embedded assets across a presentation and
// records every slide that references them.
package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindOther Kind = "other"
)

// ClassifyContentType maps a media part content type to a kind.
func ClassifyContentType(contentType string) Kind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "video"):
		return KindVideo
	case strings.Contains(ct, "audio"):
		return KindAudio
	default:
		return KindOther
	}
}

// Metadata describes an asset the first time it is registered. Later
// registrations of the same asset do not change it.
type Metadata struct {
	Kind        Kind
	ContentType string
	Filename    string
}

// Asset is one unique binary payload.
type Asset struct {
	Key         string
	Kind        Kind
	Size        int64
	ContentType string
	Filename    string
	// Appearances holds the slide of every registration in call order.
	Appearances []int
	// Blob is the raw content of picture assets; nil for part-keyed media.
	Blob []byte
}

// FirstSlide is the lowest slide index the asset appears on.
func (a *Asset) FirstSlide() int {
	first := 0
	for i, s := range a.Appearances {
		if i == 0 || s < first {
			first = s
		}
	}
	return first
}

// IsShared reports whether the asset was registered more than once.
func (a *Asset) IsShared() bool {
	return len(a.Appearances) > 1
}

// Registry is not safe for concurrent use.
type Registry struct {
	assets map[string]*Asset
	byHash map[string][]*Asset
	order  []*Asset

	hash func([]byte) string
}

func NewRegistry() *Registry {
	return &Registry{
		assets: make(map[string]*Asset),
		byHash: make(map[string][]*Asset),
		hash:   sha256Hex,
	}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// RegisterBlob records a picture on slide. Pictures are identified by the
// SHA-256 of their bytes; a digest match is confirmed with a byte comparison
// so colliding but different blobs never merge.
func (r *Registry) RegisterBlob(slide int, blob []byte, meta Metadata) *Asset {
	digest := r.hash(blob)

	candidates := r.byHash[digest]
	for _, a := range candidates {
		if bytes.Equal(a.Blob, blob) {
			a.Appearances = append(a.Appearances, slide)
			return a
		}
	}

	key := digest
	if len(candidates) > 0 {
		key = fmt.Sprintf("%s#%d", digest, len(candidates))
	}
	a := r.add(key, int64(len(blob)), meta, slide)
	a.Blob = blob
	r.byHash[digest] = append(candidates, a)
	return a
}

// RegisterPart records a video, audio or other media part on slide. Such
// parts are identified by their part name and are never read.
func (r *Registry) RegisterPart(slide int, part string, size int64, meta Metadata) *Asset {
	key := "part:" + part
	if a, ok := r.assets[key]; ok {
		a.Appearances = append(a.Appearances, slide)
		return a
	}
	return r.add(key, size, meta, slide)
}

func (r *Registry) add(key string, size int64, meta Metadata, slide int) *Asset {
	a := &Asset{
		Key:         key,
		Kind:        meta.Kind,
		Size:        size,
		ContentType: meta.ContentType,
		Filename:    meta.Filename,
		Appearances: []int{slide},
	}
	r.assets[key] = a
	r.order = append(r.order, a)
	return a
}

// Get returns the asset with the given key.
func (r *Registry) Get(key string) (*Asset, bool) {
	a, ok := r.assets[key]
	return a, ok
}

// Assets returns every asset in creation order.
func (r *Registry) Assets() []*Asset {
	return r.order
}

func (r *Registry) Len() int {
	return len(r.order)
}
