package core

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *CleanedFileResult {
	return &CleanedFileResult{
		ID:           "3f1c",
		OriginalName: "clip.mp4",
		SizeBytes:    42,
		Format:       TagMP4,
		Caveat:       "Metadata reported, container not rewritten",
		Metadata: Metadata{
			"Duration": 2.5,
			"Created":  "2024-01-01T00:00:00Z",
			"Tags":     Metadata{"Title": "Holiday"},
			"Tracks":   []Metadata{{"id": 1, "type": "vide"}},
		},
	}
}

func TestPrintResultText(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Writer: &buf}

	p.PrintResult(sampleResult(), "/tmp/cleaned_clip.mp4")
	out := buf.String()

	assert.Contains(t, out, "File  : clip.mp4\n")
	assert.Contains(t, out, "Format: MP4 (Metadata reported, container not rewritten)\n")
	assert.Contains(t, out, "Saved : /tmp/cleaned_clip.mp4\n")
	assert.Contains(t, out, "── Fields ──\n")
	assert.Contains(t, out, "Duration:")
	assert.Contains(t, out, " 2.5\n")
	assert.Contains(t, out, "── Tags ──\n")
	assert.Contains(t, out, "── Tracks ──\n  #1\n")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("── Fields")), bytes.Index(buf.Bytes(), []byte("── Tags")))
}

func TestPrintResultEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Writer: &buf}

	p.PrintResult(&CleanedFileResult{OriginalName: "a.png", Format: TagPNG}, "")
	assert.Contains(t, buf.String(), "(no metadata found)")
	assert.NotContains(t, buf.String(), "Saved")
}

func TestPrintResultJSON(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{JSON: true, Writer: &buf}

	p.PrintResult(sampleResult(), "")

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "MP4", got["format"])
	assert.Equal(t, "clip.mp4", got["file"])
	assert.EqualValues(t, 42, got["size"])
	assert.NotContains(t, got, "saved")

	meta := got["metadata"].(map[string]any)
	assert.Equal(t, 2.5, meta["Duration"])
	assert.Equal(t, map[string]any{"Title": "Holiday"}, meta["Tags"])
}

func TestPrintURLs(t *testing.T) {
	var buf bytes.Buffer
	(&Printer{Writer: &buf}).PrintURLs([]string{"a", "b"})
	assert.Equal(t, "a\nb\n", buf.String())

	buf.Reset()
	(&Printer{JSON: true, Writer: &buf}).PrintURLs(nil)
	assert.Equal(t, "[]\n", buf.String())
}

func TestPrintFormats(t *testing.T) {
	var buf bytes.Buffer
	formats := []FormatInfo{{Format: TagPNG, MediaTypes: []string{"image/png"}, Extensions: []string{".png"}}}

	(&Printer{Writer: &buf}).PrintFormats(formats)
	assert.Contains(t, buf.String(), "PNG   report only")

	buf.Reset()
	(&Printer{JSON: true, Writer: &buf}).PrintFormats(formats)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "PNG", got[0]["format"])
	assert.Equal(t, false, got[0]["strips"])
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "2", FormatValue(2.0))
	assert.Equal(t, "16000", FormatValue(int64(16000)))
	assert.Equal(t, "a=1, b=x", FormatValue(Metadata{"b": "x", "a": 1}))
}

func TestResolveOutPath(t *testing.T) {
	assert.Equal(t, filepath.Join("in", "cleaned_a.pdf"), ResolveOutPath(filepath.Join("in", "a.pdf"), ""))
	assert.Equal(t, filepath.Join("out", "cleaned_a.pdf"), ResolveOutPath(filepath.Join("in", "a.pdf"), "out"))
	assert.Equal(t, "cleaned_photo.jpg", CleanedName("photo.jpg"))
}

func TestPrintNotes(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Writer: &buf}
	p.PrintInfo("Skipped a.txt: unsupported type text/plain")
	p.PrintSuccess("Cleaned 1 of 2 files")
	assert.Equal(t, "Skipped a.txt: unsupported type text/plain\n✓ Cleaned 1 of 2 files\n", buf.String())

	buf.Reset()
	p.JSON = true
	p.PrintInfo("x")
	p.PrintSuccess("y")
	assert.Empty(t, buf.String())
}
