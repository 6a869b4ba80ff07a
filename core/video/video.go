// Package video reports container metadata for the ISO base media family:
// MP4, MOV, M4V. The container itself is never rewritten.
package video

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/abema/go-mp4"
	"github.com/dhowden/tag"

	"github.com/ankit-chaubey/privacy-scrub/core"
)

// Caveat is attached to every result of this package.
const Caveat = "Metadata reported, container not rewritten"

// Top-level metadata keys.
const (
	KeyMajorBrand = "MajorBrand"
	KeyBrands     = "Brands"
	KeyCreated    = "Created"
	KeyModified   = "Modified"
	KeyDuration   = "Duration"
	KeyTracks     = "Tracks"
	KeyTags       = "Tags"
)

// ISOBMFF is the core.Stripper for video/mp4, video/quicktime and
// video/x-m4v. The three only differ in the reported tag.
type ISOBMFF struct {
	format core.FormatTag
}

// New returns the strategy reporting the given format.
func New(format core.FormatTag) ISOBMFF { return ISOBMFF{format: format} }

func (v ISOBMFF) Info() core.FormatInfo {
	return core.FormatInfo{
		Format:  v.format,
		Strips:  false,
		Reports: []string{KeyMajorBrand, KeyBrands, KeyCreated, KeyModified, KeyDuration, KeyTracks, KeyTags},
		Notes:   Caveat + ". Original bytes are returned.",
	}
}

// ─── MP4 / MOV ───────────────────────────────────────────────────────────────

// Seconds between 1904-01-01 and the Unix epoch.
const mp4EpochOffset = 2082844800

// Strip reads movie, track and iTunes metadata. The returned content is a
// copy of the input.
func (v ISOBMFF) Strip(content []byte) (core.Stripped, error) {
	meta, err := v.read(bytes.NewReader(content))
	if err != nil {
		return core.Stripped{}, err
	}
	if tags := readTags(bytes.NewReader(content)); len(tags) > 0 {
		meta[KeyTags] = tags
	}
	return core.Stripped{
		Content:  bytes.Clone(content),
		Metadata: meta,
		Caveat:   Caveat,
	}, nil
}

func (v ISOBMFF) decodeErr(err error) error {
	return &core.DecodeError{Format: v.format, Err: err}
}

func (v ISOBMFF) read(r *bytes.Reader) (core.Metadata, error) {
	top, err := mp4.ExtractBoxesWithPayload(r, nil, []mp4.BoxPath{
		{mp4.BoxTypeFtyp()},
		{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()},
	})
	if err != nil {
		return nil, v.decodeErr(err)
	}
	moov, err := mp4.ExtractBox(r, nil, mp4.BoxPath{mp4.BoxTypeMoov()})
	if err != nil {
		return nil, v.decodeErr(err)
	}
	if len(moov) == 0 {
		return nil, v.decodeErr(fmt.Errorf("no moov box"))
	}

	meta := core.Metadata{}
	for _, b := range top {
		switch p := b.Payload.(type) {
		case *mp4.Ftyp:
			meta[KeyMajorBrand] = brand(p.MajorBrand)
			var brands []string
			for _, c := range p.CompatibleBrands {
				brands = append(brands, brand(c.CompatibleBrand))
			}
			if len(brands) > 0 {
				meta[KeyBrands] = strings.Join(brands, ", ")
			}
		case *mp4.Mvhd:
			setTime(meta, KeyCreated, p.GetCreationTime())
			setTime(meta, KeyModified, p.GetModificationTime())
			if p.Timescale > 0 {
				meta[KeyDuration] = seconds(p.GetDuration(), p.Timescale)
			}
		}
	}

	traks, err := mp4.ExtractBox(r, moov[0], mp4.BoxPath{mp4.BoxTypeTrak()})
	if err != nil {
		return nil, v.decodeErr(err)
	}
	var tracks []core.Metadata
	for _, trak := range traks {
		t, err := readTrack(r, trak)
		if err != nil {
			return nil, v.decodeErr(err)
		}
		tracks = append(tracks, t)
	}
	if len(tracks) > 0 {
		meta[KeyTracks] = tracks
	}
	return meta, nil
}

// readTrack summarises one trak box: id, handler, codec, times, duration
// and average bitrate.
func readTrack(r *bytes.Reader, trak *mp4.BoxInfo) (core.Metadata, error) {
	boxes, err := mp4.ExtractBoxesWithPayload(r, trak, []mp4.BoxPath{
		{mp4.BoxTypeTkhd()},
		{mp4.BoxTypeMdia(), mp4.BoxTypeMdhd()},
		{mp4.BoxTypeMdia(), mp4.BoxTypeHdlr()},
		{mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeStsz()},
	})
	if err != nil {
		return nil, fmt.Errorf("trak at %d: %w", trak.Offset, err)
	}

	t := core.Metadata{}
	var mdhd *mp4.Mdhd
	var stsz *mp4.Stsz
	for _, b := range boxes {
		switch p := b.Payload.(type) {
		case *mp4.Tkhd:
			t["id"] = int(p.TrackID)
			setTime(t, "created", p.GetCreationTime())
			setTime(t, "modified", p.GetModificationTime())
		case *mp4.Mdhd:
			mdhd = p
		case *mp4.Hdlr:
			t["type"] = brand(p.HandlerType)
		case *mp4.Stsz:
			stsz = p
		}
	}

	if codec := sampleCodec(r, trak); codec != "" {
		t["codec"] = codec
	}
	if mdhd != nil && mdhd.Timescale > 0 {
		t["duration"] = seconds(mdhd.GetDuration(), mdhd.Timescale)
		if stsz != nil && mdhd.GetDuration() > 0 {
			t["bitrate"] = int64(sampleBytes(stsz) * 8 * uint64(mdhd.Timescale) / mdhd.GetDuration())
		}
	}
	return t, nil
}

// sampleCodec returns the fourcc of the first sample entry, extended with
// profile and level for AVC ("avc1.42C01E"). Lookup failures yield "".
func sampleCodec(r *bytes.Reader, trak *mp4.BoxInfo) string {
	entries, err := mp4.ExtractBox(r, trak, mp4.BoxPath{
		mp4.BoxTypeMdia(), mp4.BoxTypeMinf(), mp4.BoxTypeStbl(), mp4.BoxTypeStsd(), mp4.BoxTypeAny(),
	})
	if err != nil || len(entries) == 0 {
		return ""
	}
	entry := entries[0]
	codec := entry.Type.String()
	if entry.Type != mp4.BoxTypeAvc1() && entry.Type != mp4.StrToBoxType("avc3") {
		return codec
	}
	avcC, err := mp4.ExtractBoxWithPayload(r, entry, mp4.BoxPath{mp4.BoxTypeAvcC()})
	if err != nil || len(avcC) == 0 {
		return codec
	}
	if c, ok := avcC[0].Payload.(*mp4.AVCDecoderConfiguration); ok {
		codec = fmt.Sprintf("%s.%02X%02X%02X", codec, c.Profile, c.ProfileCompatibility, c.Level)
	}
	return codec
}

func sampleBytes(stsz *mp4.Stsz) uint64 {
	if stsz.SampleSize != 0 {
		return uint64(stsz.SampleSize) * uint64(stsz.SampleCount)
	}
	var total uint64
	for _, s := range stsz.EntrySize {
		total += uint64(s)
	}
	return total
}

// ─── iTunes tags ─────────────────────────────────────────────────────────────

// readTags returns the ilst text tags. Files without tags give nil.
func readTags(r *bytes.Reader) core.Metadata {
	m, err := tag.ReadFrom(r)
	if err != nil || m == nil {
		return nil
	}
	tags := core.Metadata{}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			tags[k] = v
		}
	}
	set("Title", m.Title())
	set("Artist", m.Artist())
	set("Album", m.Album())
	set("AlbumArtist", m.AlbumArtist())
	set("Composer", m.Composer())
	set("Genre", m.Genre())
	set("Comment", m.Comment())
	if m.Year() > 0 {
		tags["Year"] = m.Year()
	}
	return tags
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func brand(b [4]byte) string {
	return strings.TrimRight(string(b[:]), "\x00")
}

func seconds(d uint64, timescale uint32) float64 {
	return float64(d) / float64(timescale)
}

// setTime stores an mp4 timestamp as RFC 3339. Zero means unset.
func setTime(m core.Metadata, key string, secs uint64) {
	if secs == 0 {
		return
	}
	m[key] = time.Unix(int64(secs)-mp4EpochOffset, 0).UTC().Format(time.RFC3339)
}
