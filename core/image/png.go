package image

import (
	"bytes"

	"github.com/ankit-chaubey/privacy-scrub/core"
)

// ─── PNG ─────────────────────────────────────────────────────────────────────

// Strip returns content untouched. Chunks are never inspected.
func (PNG) Strip(content []byte) (core.Stripped, error) {
	return core.Stripped{
		Content:  bytes.Clone(content),
		Metadata: core.Metadata{},
		Caveat:   PNGCaveat,
	}, nil
}
