package core

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
)

// MediaTypeUnknown is declared for files nothing else matches. No strategy
// is registered for it.
const MediaTypeUnknown = "application/octet-stream"

// SniffLen is how many leading bytes SniffMediaType looks at.
const SniffLen = 16

// extMediaTypes maps lowercase extensions to the media type a browser
// would declare for them.
var extMediaTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".qt":   "video/quicktime",
	".m4v":  "video/x-m4v",
}

// DeclaredMediaType returns the media type for a file, first by extension
// and falling back to the magic bytes in head.
func DeclaredMediaType(path string, head []byte) string {
	if mt, ok := extMediaTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return SniffMediaType(head)
}

// ExtensionsFor lists the extensions declared as mediaType, sorted.
func ExtensionsFor(mediaType string) []string {
	var exts []string
	for ext, mt := range extMediaTypes {
		if mt == mediaType {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

// SniffMediaType guesses a media type from leading magic bytes.
func SniffMediaType(b []byte) string {
	if len(b) < 4 {
		return MediaTypeUnknown
	}
	switch {
	// JPEG: FF D8 FF
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return "image/jpeg"
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	case bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return "image/png"
	// PDF: %PDF
	case bytes.HasPrefix(b, []byte("%PDF")):
		return "application/pdf"
	// ISO base media: ftyp box at offset 4
	case len(b) >= 8 && bytes.Equal(b[4:8], []byte("ftyp")):
		return sniffISOBMFF(b)
	}
	return MediaTypeUnknown
}

func sniffISOBMFF(b []byte) string {
	if len(b) < 12 {
		return "video/mp4"
	}
	switch string(b[8:12]) {
	case "qt  ":
		return "video/quicktime"
	case "M4V ", "M4VH", "M4VP":
		return "video/x-m4v"
	default:
		return "video/mp4"
	}
}
