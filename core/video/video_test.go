package video

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"

	"github.com/abema/go-mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/privacy-scrub/core"
)

// 2024-01-01T00:00:00Z in seconds since 1904.
const jan2024 = 3786912000

type fixture struct {
	t *testing.T
	w *mp4.Writer
}

func (f fixture) start(typ mp4.BoxType) {
	_, err := f.w.StartBox(&mp4.BoxInfo{Type: typ})
	require.NoError(f.t, err)
}

func (f fixture) end() {
	_, err := f.w.EndBox()
	require.NoError(f.t, err)
}

func (f fixture) leaf(box mp4.IImmutableBox) {
	f.start(box.GetType())
	_, err := mp4.Marshal(f.w, box, mp4.Context{})
	require.NoError(f.t, err)
	f.end()
}

func (f fixture) raw(b []byte) {
	_, err := f.w.Write(b)
	require.NoError(f.t, err)
}

func atom(typ string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	b := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(b, uint32(8+len(body)))
	copy(b[4:], typ)
	return append(b, body...)
}

// udtaTitle is a moov/udta/meta/ilst tree carrying a single title.
func udtaTitle(title string) []byte {
	data := atom("data", []byte{0, 0, 0, 1, 0, 0, 0, 0}, []byte(title))
	return atom("udta", atom("meta", []byte{0, 0, 0, 0}, atom("ilst", atom("\xa9nam", data))))
}

// buildMP4 writes a one track AVC movie of 2 seconds with two samples of
// 1000 and 3000 bytes. withMoov false leaves only ftyp and mdat.
func buildMP4(t *testing.T, withMoov bool) []byte {
	tmp, err := os.CreateTemp(t.TempDir(), "*.mp4")
	require.NoError(t, err)
	defer tmp.Close()

	f := fixture{t: t, w: mp4.NewWriter(tmp)}
	f.leaf(&mp4.Ftyp{
		MajorBrand:   [4]byte{'i', 's', 'o', 'm'},
		MinorVersion: 0x200,
		CompatibleBrands: []mp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
			{CompatibleBrand: [4]byte{'a', 'v', 'c', '1'}},
		},
	})

	if withMoov {
		f.start(mp4.BoxTypeMoov())
		f.leaf(&mp4.Mvhd{
			CreationTimeV0:     jan2024,
			ModificationTimeV0: jan2024 + 60,
			Timescale:          1000,
			DurationV0:         2000,
			Rate:               0x00010000,
			Volume:             0x0100,
			NextTrackID:        2,
		})

		f.start(mp4.BoxTypeTrak())
		f.leaf(&mp4.Tkhd{
			FullBox:        mp4.FullBox{Flags: [3]byte{0, 0, 3}},
			CreationTimeV0: jan2024,
			TrackID:        1,
			DurationV0:     2000,
			Width:          320 << 16,
			Height:         240 << 16,
		})
		f.start(mp4.BoxTypeMdia())
		f.leaf(&mp4.Mdhd{Timescale: 1000, DurationV0: 2000, Language: [3]byte{'u', 'n', 'd'}})
		f.leaf(&mp4.Hdlr{HandlerType: [4]byte{'v', 'i', 'd', 'e'}, Name: "VideoHandler"})
		f.start(mp4.BoxTypeMinf())
		f.start(mp4.BoxTypeStbl())

		f.start(mp4.BoxTypeStsd())
		_, err := mp4.Marshal(f.w, &mp4.Stsd{EntryCount: 1}, mp4.Context{})
		require.NoError(t, err)
		f.start(mp4.BoxTypeAvc1())
		_, err = mp4.Marshal(f.w, &mp4.VisualSampleEntry{
			SampleEntry:     mp4.SampleEntry{AnyTypeBox: mp4.AnyTypeBox{Type: mp4.BoxTypeAvc1()}, DataReferenceIndex: 1},
			Width:           320,
			Height:          240,
			Horizresolution: 0x00480000,
			Vertresolution:  0x00480000,
			FrameCount:      1,
			Depth:           0x0018,
			PreDefined3:     -1,
		}, mp4.Context{})
		require.NoError(t, err)
		f.leaf(&mp4.AVCDecoderConfiguration{
			AnyTypeBox:           mp4.AnyTypeBox{Type: mp4.BoxTypeAvcC()},
			ConfigurationVersion: 1,
			Profile:              0x42,
			ProfileCompatibility: 0xC0,
			Level:                0x1E,
			Reserved:             63,
			LengthSizeMinusOne:   3,
			Reserved2:            7,
		})
		f.end() // avc1
		f.end() // stsd

		f.leaf(&mp4.Stsz{SampleCount: 2, EntrySize: []uint32{1000, 3000}})
		f.end() // stbl
		f.end() // minf
		f.end() // mdia
		f.end() // trak

		f.raw(udtaTitle("Holiday"))
		f.end() // moov
	}

	f.raw(atom("mdat", make([]byte, 16)))

	b, err := os.ReadFile(tmp.Name())
	require.NoError(t, err)
	return b
}

func TestStripMP4(t *testing.T) {
	in := buildMP4(t, true)

	res, err := New(core.TagMP4).Strip(in)
	require.NoError(t, err)

	assert.Equal(t, in, res.Content)
	assert.Equal(t, Caveat, res.Caveat)

	m := res.Metadata
	assert.Equal(t, "isom", m[KeyMajorBrand])
	assert.Equal(t, "isom, avc1", m[KeyBrands])
	assert.Equal(t, "2024-01-01T00:00:00Z", m[KeyCreated])
	assert.Equal(t, "2024-01-01T00:01:00Z", m[KeyModified])
	assert.Equal(t, 2.0, m[KeyDuration])

	require.IsType(t, []core.Metadata{}, m[KeyTracks])
	tracks := m[KeyTracks].([]core.Metadata)
	require.Len(t, tracks, 1)
	assert.Equal(t, core.Metadata{
		"id":       1,
		"type":     "vide",
		"codec":    "avc1.42C01E",
		"created":  "2024-01-01T00:00:00Z",
		"duration": 2.0,
		"bitrate":  int64(16000),
	}, tracks[0])

	assert.Equal(t, core.Metadata{"Title": "Holiday"}, m[KeyTags])
}

func TestStripMOVReportsTag(t *testing.T) {
	res, err := New(core.TagMOV).Strip(buildMP4(t, true))
	require.NoError(t, err)
	assert.Equal(t, core.TagMOV, New(core.TagMOV).Info().Format)
	assert.Contains(t, res.Metadata, KeyCreated)
}

func TestStripMP4DoesNotModifyInput(t *testing.T) {
	in := buildMP4(t, true)
	orig := bytes.Clone(in)

	_, err := New(core.TagMP4).Strip(in)
	require.NoError(t, err)
	assert.Equal(t, orig, in)
}

func TestStripMP4WithoutMoov(t *testing.T) {
	_, err := New(core.TagM4V).Strip(buildMP4(t, false))
	require.Error(t, err)
	assert.True(t, core.IsDecodeError(err))
	assert.Contains(t, err.Error(), "invalid M4V")
}

func TestStripMP4Garbage(t *testing.T) {
	_, err := New(core.TagMP4).Strip([]byte("definitely not a movie"))
	require.Error(t, err)
	assert.True(t, core.IsDecodeError(err))
}
