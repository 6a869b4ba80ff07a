package core

import (
	"slices"
	"strings"
)

// Config carries the constant lists the two cores work from. It is passed
// explicitly so callers and tests can substitute alternate lists; methods
// never modify the receiver.
type Config struct {
	// TrackingParams are query keys removed by the URL sanitizer.
	// Matching is exact and case-sensitive.
	TrackingParams []string
	// MediaTypes maps a declared media type to the reported format tag.
	// Only types listed here are processed.
	MediaTypes map[string]FormatTag
}

var defaultTrackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "ttclid", "irclickid", "wickedid", "yxclid",
}

var defaultMediaTypes = map[string]FormatTag{
	"application/pdf": TagPDF,
	"image/jpeg":      TagJPEG,
	"image/png":       TagPNG,
	"video/mp4":       TagMP4,
	"video/quicktime": TagMOV,
	"video/x-m4v":     TagM4V,
}

// DefaultConfig returns a fresh copy of the built-in lists.
func DefaultConfig() Config {
	return Config{
		TrackingParams: slices.Clone(defaultTrackingParams),
		MediaTypes:     cloneMediaTypes(defaultMediaTypes),
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	return Config{
		TrackingParams: slices.Clone(c.TrackingParams),
		MediaTypes:     cloneMediaTypes(c.MediaTypes),
	}
}

// WithTrackingParams returns a copy of c using params as the tracking list.
func (c Config) WithTrackingParams(params ...string) Config {
	n := c.Clone()
	n.TrackingParams = normalizeParams(params)
	return n
}

// WithExtraTrackingParams returns a copy of c with params appended to the
// tracking list. Duplicates are ignored.
func (c Config) WithExtraTrackingParams(params ...string) Config {
	n := c.Clone()
	n.TrackingParams = normalizeParams(append(n.TrackingParams, params...))
	return n
}

// TrackingSet returns the tracking list as a lookup set.
func (c Config) TrackingSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.TrackingParams))
	for _, p := range c.TrackingParams {
		set[p] = struct{}{}
	}
	return set
}

// FormatFor returns the format tag for a declared media type. The lookup
// ignores case, surrounding space and media type parameters.
func (c Config) FormatFor(mediaType string) (FormatTag, bool) {
	tag, ok := c.MediaTypes[NormalizeMediaType(mediaType)]
	return tag, ok
}

// NormalizeMediaType lowercases mediaType and drops any parameters.
func NormalizeMediaType(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func normalizeParams(params []string) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func cloneMediaTypes(src map[string]FormatTag) map[string]FormatTag {
	dst := make(map[string]FormatTag, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
