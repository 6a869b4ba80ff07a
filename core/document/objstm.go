package document

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// ─── Object streams ──────────────────────────────────────────────────────────
// PDF 1.5 writers pack small objects, the Info dictionary among them, into
// compressed /ObjStm streams. Such a stream is inflated, its Info values are
// blanked in the inflated copy and the copy is deflated back into the same
// byte range. Offsets inside the stream and in the file stay valid.

var objHeaderRe = regexp.MustCompile(`(?:^|[^0-9])(\d+)\s+(\d+)\s+obj\b`)

type objStream struct {
	pos        int // file offset of the stream object
	dataStart  int
	length     int
	lengthSpan token // digits of the /Length value, in the file
	flate      bool
	orig, data []byte // inflated content; data receives the blanking
	offsets    map[int]int
	dirty      bool
	written    bool
}

// objectStreams returns every object stream in the file, loading them on
// first use. Streams that cannot be decoded are left out; the first reason
// is kept in f.streamErr.
func (f *pdfFile) objectStreams() []*objStream {
	if f.streamsLoaded {
		return f.streams
	}
	f.streamsLoaded = true
	if !bytes.Contains(f.src, []byte("/ObjStm")) {
		return nil
	}

	for _, m := range objHeaderRe.FindAllSubmatchIndex(f.src, -1) {
		s, err := f.loadObjStream(m[2], m[1])
		if err != nil {
			if f.streamErr == nil {
				f.streamErr = err
			}
			continue
		}
		if s != nil {
			f.streams = append(f.streams, s)
		}
	}
	return f.streams
}

// loadObjStream reads the object whose header starts at pos and whose body
// starts at body. Objects other than object streams give nil, nil.
func (f *pdfFile) loadObjStream(pos, body int) (*objStream, error) {
	l := &lexer{data: f.src, pos: body}
	t, err := l.next()
	if err != nil || t.kind != tokDict {
		return nil, nil
	}
	entries, end, err := l.dictBody()
	if err != nil {
		return nil, nil
	}
	if typ, ok := lookup(entries, "Type"); !ok || f.raw(typ.value) != "/ObjStm" {
		return nil, nil
	}

	s := &objStream{pos: pos}
	n, err := f.intEntry(entries, "N")
	if err != nil {
		return nil, err
	}
	first, err := f.intEntry(entries, "First")
	if err != nil {
		return nil, err
	}
	if _, ok := lookup(entries, "DecodeParms"); ok {
		return nil, fmt.Errorf("object stream at %d: /DecodeParms not supported", pos)
	}
	if filter, ok := lookup(entries, "Filter"); ok {
		name := strings.Trim(f.raw(filter.value), "[] \t\r\n")
		if name != "/FlateDecode" && name != "/Fl" {
			return nil, fmt.Errorf("object stream at %d: filter %s not supported", pos, name)
		}
		s.flate = true
	}
	if s.length, s.lengthSpan, err = f.streamLength(entries); err != nil {
		return nil, fmt.Errorf("object stream at %d: %w", pos, err)
	}

	// "stream" followed by CRLF or LF
	i := end
	for i < len(f.src) && isWhite(f.src[i]) {
		i++
	}
	if !bytes.HasPrefix(f.src[i:], []byte("stream")) {
		return nil, fmt.Errorf("object stream at %d: missing stream keyword", pos)
	}
	i += len("stream")
	if i < len(f.src) && f.src[i] == '\r' {
		i++
	}
	if i < len(f.src) && f.src[i] == '\n' {
		i++
	}
	s.dataStart = i
	if s.dataStart+s.length > len(f.src) {
		return nil, fmt.Errorf("object stream at %d: truncated", pos)
	}

	raw := f.src[s.dataStart : s.dataStart+s.length]
	if s.flate {
		if raw, err = inflate(raw); err != nil {
			return nil, fmt.Errorf("object stream at %d: %w", pos, err)
		}
	}
	s.orig = raw
	s.data = bytes.Clone(raw)

	if s.offsets, err = streamOffsets(raw, n, first); err != nil {
		return nil, fmt.Errorf("object stream at %d: %w", pos, err)
	}
	return s, nil
}

// streamOffsets parses the "num offset" pairs at the head of an inflated
// object stream.
func streamOffsets(data []byte, n, first int) (map[int]int, error) {
	if first < 0 || first > len(data) {
		return nil, fmt.Errorf("/First %d out of range", first)
	}
	l := &lexer{data: data[:first]}
	offsets := make(map[int]int, n)
	for range n {
		a, err1 := l.next()
		b, err2 := l.next()
		if err1 != nil || err2 != nil || a.kind != tokOther || b.kind != tokOther {
			return nil, fmt.Errorf("bad object stream header")
		}
		num, err1 := strconv.Atoi(string(data[a.start:a.end]))
		off, err2 := strconv.Atoi(string(data[b.start:b.end]))
		if err1 != nil || err2 != nil || first+off >= len(data) {
			return nil, fmt.Errorf("bad object stream header")
		}
		offsets[num] = first + off
	}
	return offsets, nil
}

// streamLength resolves /Length, which may be an indirect integer.
func (f *pdfFile) streamLength(entries []dictEntry) (int, token, error) {
	e, ok := lookup(entries, "Length")
	if !ok {
		return 0, token{}, fmt.Errorf("missing /Length")
	}
	t := e.value
	if e.ref {
		ref, ok := parseRef(f.raw(e.value))
		offs := objectOffsets(f.src, ref)
		if !ok || len(offs) == 0 {
			return 0, token{}, fmt.Errorf("/Length object not found")
		}
		l := &lexer{data: f.src, pos: offs[len(offs)-1]}
		var err error
		if t, err = l.next(); err != nil {
			return 0, token{}, err
		}
	}
	v, err := strconv.Atoi(f.raw(t))
	if t.kind != tokOther || err != nil || v < 0 {
		return 0, token{}, fmt.Errorf("bad /Length")
	}
	return v, t, nil
}

func (f *pdfFile) intEntry(entries []dictEntry, key string) (int, error) {
	e, ok := lookup(entries, key)
	if !ok || e.value.kind != tokOther {
		return 0, fmt.Errorf("object stream: missing /%s", key)
	}
	v, err := strconv.Atoi(f.raw(e.value))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("object stream: bad /%s", key)
	}
	return v, nil
}

func (f *pdfFile) raw(t token) string {
	return string(f.src[t.start:t.end])
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// rewrite stores the blanked content back into out over the original
// stream bytes and shortens /Length to match. It reports false, leaving out
// untouched, when the new data does not fit.
func (s *objStream) rewrite(out []byte) bool {
	enc := s.data
	if s.flate {
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return false
		}
		if _, err := zw.Write(s.data); err != nil {
			return false
		}
		if err := zw.Close(); err != nil {
			return false
		}
		enc = buf.Bytes()
	}
	digits := strconv.Itoa(len(enc))
	if len(enc) > s.length || len(digits) > s.lengthSpan.end-s.lengthSpan.start {
		return false
	}

	n := copy(out[s.dataStart:], enc)
	for i := s.dataStart + n; i < s.dataStart+s.length; i++ {
		out[i] = '\n'
	}
	span := out[s.lengthSpan.start:s.lengthSpan.end]
	copy(span, digits)
	for i := len(digits); i < len(span); i++ {
		span[i] = ' '
	}
	s.written = true
	return true
}

// ─── Incremental update ──────────────────────────────────────────────────────

var (
	startxrefRe = regexp.MustCompile(`startxref\s+(\d+)`)
	rootRe      = regexp.MustCompile(`/Root\s+(\d+\s+\d+)\s+R\b`)
	sizeRe      = regexp.MustCompile(`/Size\s+(\d+)`)
)

// appendInfoUpdate redefines object ref as a plain object holding dict and
// chains a cross-reference stream for it onto the latest one.
func appendInfoUpdate(doc []byte, ref objRef, dict []byte) ([]byte, error) {
	prev := lastSubmatch(startxrefRe, doc)
	root := lastSubmatch(rootRe, doc)
	size, err := strconv.Atoi(string(lastSubmatch(sizeRe, doc)))
	if prev == nil || root == nil || err != nil {
		return nil, fmt.Errorf("trailer lacks /Size, /Root or startxref")
	}
	if ref.num >= size {
		size = ref.num + 1
	}
	xrefNum := size

	b := bytes.NewBuffer(doc)
	if !bytes.HasSuffix(doc, []byte("\n")) {
		b.WriteByte('\n')
	}
	infoOff := b.Len()
	fmt.Fprintf(b, "%d 0 obj\n%s\nendobj\n", ref.num, bytes.TrimSpace(dict))
	xrefOff := b.Len()

	var rows []byte
	for _, off := range []int{infoOff, xrefOff} {
		rows = append(rows, 1)
		rows = binary.BigEndian.AppendUint32(rows, uint32(off))
		rows = append(rows, 0, 0)
	}
	fmt.Fprintf(b, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] /Index [%d 1 %d 1] /Root %s R /Info %d 0 R /Prev %s /Length %d >>\nstream\n",
		xrefNum, xrefNum+1, ref.num, xrefNum, root, ref.num, prev, len(rows))
	b.Write(rows)
	fmt.Fprintf(b, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", xrefOff)
	return b.Bytes(), nil
}

func lastSubmatch(re *regexp.Regexp, data []byte) []byte {
	ms := re.FindAllSubmatch(data, -1)
	if len(ms) == 0 {
		return nil
	}
	return ms[len(ms)-1][1]
}
