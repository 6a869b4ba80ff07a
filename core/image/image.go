// Package image handles metadata for still image formats:
// JPEG (Exif removal) and PNG (pass-through)
package image

import (
	"github.com/ankit-chaubey/privacy-scrub/core"
)

// ──────────────────────────────────────────────────────────────────────────────
// Strategies
// ──────────────────────────────────────────────────────────────────────────────

// JPEG is the core.Stripper for image/jpeg.
type JPEG struct{}

// PNG is the core.Stripper for image/png.
type PNG struct{}

// NewJPEG returns the JPEG strategy.
func NewJPEG() JPEG { return JPEG{} }

// NewPNG returns the PNG strategy.
func NewPNG() PNG { return PNG{} }

func (JPEG) Info() core.FormatInfo { return formatInfo[core.TagJPEG] }

func (PNG) Info() core.FormatInfo { return formatInfo[core.TagPNG] }

// Top-level metadata keys for JPEG.
const (
	KeyExif        = "Exif"
	KeyExifDetails = "ExifDetails"
	KeyGPS         = "GPS"
)

// PNGCaveat is attached to every PNG result.
const PNGCaveat = "Metadata stripping not supported for PNG"

var formatInfo = map[core.FormatTag]core.FormatInfo{
	core.TagJPEG: {
		Format:  core.TagJPEG,
		Strips:  true,
		Reports: []string{KeyExif, KeyExifDetails, KeyGPS},
		Notes:   "Every Exif APP1 segment removed. XMP, ICC and comments are kept.",
	},
	core.TagPNG: {
		Format: core.TagPNG,
		Strips: false,
		Notes:  PNGCaveat + ". Content returned unchanged.",
	},
}
