// Package core defines the shared types, interfaces, and configuration
// for privacy-scrub.
package core

import "sort"

// FormatTag is the detected format reported for a cleaned file.
type FormatTag string

const (
	TagPDF  FormatTag = "PDF"
	TagJPEG FormatTag = "JPEG"
	TagPNG  FormatTag = "PNG"
	TagMP4  FormatTag = "MP4"
	TagMOV  FormatTag = "MOV"
	TagM4V  FormatTag = "M4V"
)

// Metadata maps a field name to what was found in the file. Values are
// strings, numbers, nested Metadata or lists of Metadata.
type Metadata map[string]any

// Keys returns the top-level keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stripped is what a format strategy hands back for one file.
type Stripped struct {
	Content  []byte
	Metadata Metadata
	Caveat   string // Known limitation for this format, empty if none
}

// Stripper is implemented by every per-format strategy. Strip must not
// retain or modify content.
type Stripper interface {
	Strip(content []byte) (Stripped, error)
}

// StripperFunc adapts a plain function to Stripper.
type StripperFunc func(content []byte) (Stripped, error)

// Strip calls f(content).
func (f StripperFunc) Strip(content []byte) (Stripped, error) { return f(content) }

// CleanedFileResult is the immutable record produced for one processed file.
type CleanedFileResult struct {
	ID           string
	OriginalName string
	Source       string // Path the input was read from, empty for in-memory input
	SizeBytes    int64
	Content      []byte
	Format       FormatTag
	Caveat       string
	Metadata     Metadata
}

// Label returns the format tag with its caveat, if any, e.g.
// "PNG (Metadata stripping not supported for PNG)".
func (r *CleanedFileResult) Label() string {
	if r.Caveat == "" {
		return string(r.Format)
	}
	return string(r.Format) + " (" + r.Caveat + ")"
}

// FormatInfo describes what a format strategy does.
type FormatInfo struct {
	Format     FormatTag
	MediaTypes []string
	Extensions []string
	Strips     bool     // Whether the returned content differs from the input
	Reports    []string // Top-level metadata keys the strategy may fill
	Notes      string
}
