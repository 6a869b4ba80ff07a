package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsACopy(t *testing.T) {
	a := DefaultConfig()
	a.TrackingParams[0] = "changed"
	a.MediaTypes["image/gif"] = "GIF"

	b := DefaultConfig()
	assert.Equal(t, "utm_source", b.TrackingParams[0])
	assert.NotContains(t, b.MediaTypes, "image/gif")
	assert.Len(t, b.TrackingParams, 11)
	assert.Len(t, b.MediaTypes, 6)
}

func TestWithTrackingParams(t *testing.T) {
	base := DefaultConfig()

	replaced := base.WithTrackingParams("ref", " ref ", "", "src")
	assert.Equal(t, []string{"ref", "src"}, replaced.TrackingParams)
	assert.Len(t, base.TrackingParams, 11)

	extended := base.WithExtraTrackingParams("ref", "gclid")
	assert.Len(t, extended.TrackingParams, 12)
	assert.Contains(t, extended.TrackingSet(), "ref")
}

func TestFormatFor(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		mediaType string
		want      FormatTag
		ok        bool
	}{
		{"application/pdf", TagPDF, true},
		{"Image/JPEG", TagJPEG, true},
		{"video/mp4; codecs=avc1", TagMP4, true},
		{"video/quicktime", TagMOV, true},
		{"video/x-m4v", TagM4V, true},
		{"image/gif", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := cfg.FormatFor(tt.mediaType)
		assert.Equal(t, tt.ok, ok, tt.mediaType)
		assert.Equal(t, tt.want, got, tt.mediaType)
	}
}

func TestSniffMediaType(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"png", []byte("\x89PNG\r\n\x1a\n"), "image/png"},
		{"pdf", []byte("%PDF-1.4"), "application/pdf"},
		{"mp4", []byte("\x00\x00\x00\x18ftypisom"), "video/mp4"},
		{"mov", []byte("\x00\x00\x00\x14ftypqt  "), "video/quicktime"},
		{"m4v", []byte("\x00\x00\x00\x18ftypM4V "), "video/x-m4v"},
		{"short", []byte{0xFF}, MediaTypeUnknown},
		{"text", []byte("hello world"), MediaTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SniffMediaType(tt.head))
		})
	}
}

func TestDeclaredMediaType(t *testing.T) {
	assert.Equal(t, "image/jpeg", DeclaredMediaType("a/B.JPG", nil))
	assert.Equal(t, "video/quicktime", DeclaredMediaType("clip.mov", []byte("%PDF-")))
	assert.Equal(t, "application/pdf", DeclaredMediaType("noext", []byte("%PDF-1.7")))
	assert.Equal(t, MediaTypeUnknown, DeclaredMediaType("notes.txt", []byte("hello")))
	assert.Equal(t, []string{".mov", ".qt"}, ExtensionsFor("video/quicktime"))
}

func TestErrors(t *testing.T) {
	de := NewDecodeError(TagJPEG, "truncated segment at %d", 7)
	assert.Equal(t, "invalid JPEG: truncated segment at 7", de.Error())

	fe := FileError{Name: "a.jpg", Err: de}
	assert.Equal(t, "Failed to process a.jpg: invalid JPEG: truncated segment at 7", fe.Error())
	assert.True(t, IsDecodeError(fe))
	assert.False(t, IsDecodeError(fmt.Errorf("wrapped: %w", ErrUnsupportedFormat)))
	assert.True(t, errors.Is(fmt.Errorf("x: %w", ErrUnsupportedFormat), ErrUnsupportedFormat))
}

func TestMetadataKeys(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "a"}, Metadata{"a": 1, "B": 2, "A": 3}.Keys())
}
