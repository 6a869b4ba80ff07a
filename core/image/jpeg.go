package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ankit-chaubey/privacy-scrub/core"
)

// ─── JPEG ────────────────────────────────────────────────────────────────────

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1
)

var exifHeader = []byte("Exif\x00\x00")

// Strip decodes the first Exif block, then drops every Exif APP1 segment.
// All other bytes, including the entropy coded scan, are copied as is.
func (JPEG) Strip(content []byte) (core.Stripped, error) {
	segs, scan, err := parseJPEGSegments(content)
	if err != nil {
		return core.Stripped{}, &core.DecodeError{Format: core.TagJPEG, Err: err}
	}

	meta := core.Metadata{}
	for _, seg := range segs {
		if seg.isExif() {
			if err := readExif(seg.payload, meta); err != nil {
				return core.Stripped{}, &core.DecodeError{Format: core.TagJPEG, Err: err}
			}
			break
		}
	}

	var out bytes.Buffer
	out.Grow(len(content))
	out.Write(content[:2]) // SOI
	for _, seg := range segs {
		if seg.isExif() {
			continue
		}
		out.Write(content[seg.start:seg.end])
	}
	out.Write(content[scan:])

	return core.Stripped{Content: out.Bytes(), Metadata: meta}, nil
}

type jpegSegment struct {
	marker     byte
	start, end int // Span in the source, marker bytes included
	payload    []byte
}

func (s jpegSegment) isExif() bool {
	return s.marker == markerAPP1 && bytes.HasPrefix(s.payload, exifHeader)
}

// parseJPEGSegments walks the marker segments after SOI. It stops at SOS
// or EOI and returns the offset of that marker; everything from there on is
// scan data the caller copies verbatim.
func parseJPEGSegments(data []byte) ([]jpegSegment, int, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, 0, errors.New("missing SOI marker")
	}
	var segs []jpegSegment

	i := 2
	for i < len(data) {
		if data[i] != 0xFF {
			return nil, 0, fmt.Errorf("expected marker at offset %d", i)
		}
		// Any number of 0xFF fill bytes may precede a marker.
		j := i + 1
		for j < len(data) && data[j] == 0xFF {
			j++
		}
		if j >= len(data) {
			return nil, 0, fmt.Errorf("truncated marker at offset %d", i)
		}
		marker := data[j]

		switch {
		case marker == markerSOS || marker == markerEOI:
			return segs, i, nil
		case marker == 0x01 || marker == markerSOI || (marker >= 0xD0 && marker <= 0xD7):
			// standalone, no length field
			segs = append(segs, jpegSegment{marker: marker, start: i, end: j + 1})
			i = j + 1
			continue
		}

		if j+3 > len(data) {
			return nil, 0, fmt.Errorf("truncated segment %02X at offset %d", marker, i)
		}
		segLen := int(binary.BigEndian.Uint16(data[j+1 : j+3]))
		end := j + 1 + segLen
		if segLen < 2 || end > len(data) {
			return nil, 0, fmt.Errorf("truncated segment %02X at offset %d", marker, i)
		}
		segs = append(segs, jpegSegment{
			marker:  marker,
			start:   i,
			end:     end,
			payload: data[j+3 : end],
		})
		i = end
	}
	return segs, len(data), nil
}

// readExif decodes an Exif APP1 payload into meta, grouping fields by the
// IFD they came from. A block goexif can partly read is still reported.
func readExif(payload []byte, meta core.Metadata) error {
	x, err := exif.Decode(bytes.NewReader(payload))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return fmt.Errorf("exif: %w", err)
	}

	w := &exifWalker{
		primary: core.Metadata{},
		details: core.Metadata{},
		gps:     core.Metadata{},
	}
	if len(x.Tiff.Dirs) > 0 {
		w.ifd0 = tagSet(x.Tiff.Dirs[0])
	}
	if len(x.Tiff.Dirs) > 1 {
		w.thumb = tagSet(x.Tiff.Dirs[1])
	}
	if err := x.Walk(w); err != nil {
		return err
	}

	if len(w.primary) > 0 {
		meta[KeyExif] = w.primary
	}
	if len(w.details) > 0 {
		meta[KeyExifDetails] = w.details
	}
	if len(w.gps) > 0 {
		meta[KeyGPS] = w.gps
	}
	return nil
}

func tagSet(d *tiff.Dir) map[*tiff.Tag]bool {
	set := make(map[*tiff.Tag]bool, len(d.Tags))
	for _, t := range d.Tags {
		set[t] = true
	}
	return set
}

// IFD offsets, not metadata.
var exifPointers = map[exif.FieldName]bool{
	exif.ExifIFDPointer:             true,
	exif.GPSInfoIFDPointer:          true,
	exif.InteroperabilityIFDPointer: true,
}

type exifWalker struct {
	ifd0, thumb           map[*tiff.Tag]bool
	primary, details, gps core.Metadata
}

func (w *exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if exifPointers[name] || w.thumb[tag] {
		return nil
	}
	val := tag.String()
	// Remove surrounding quotes from string values
	if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
		val = val[1 : len(val)-1]
	}

	switch {
	case w.ifd0[tag]:
		w.primary[string(name)] = val
	case len(name) > 3 && name[:3] == "GPS":
		w.gps[string(name)] = val
	default:
		w.details[string(name)] = val
	}
	return nil
}
