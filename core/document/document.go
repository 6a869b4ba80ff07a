// Package document strips author and producer fields from PDF files.
package document

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ankit-chaubey/privacy-scrub/core"
)

// PDF is the core.Stripper for application/pdf.
type PDF struct{}

// New returns the PDF strategy.
func New() PDF { return PDF{} }

// Info describes what PDF does.
func (PDF) Info() core.FormatInfo {
	return core.FormatInfo{
		Format:  core.TagPDF,
		Strips:  true,
		Reports: infoFields,
		Notes:   "Info dictionary fields blanked in place in every revision, including indirect values and compressed object streams; XMP streams are left alone.",
	}
}

// ─── PDF ─────────────────────────────────────────────────────────────────────

// infoFields are the Info dictionary keys that get reported and blanked.
var infoFields = []string{"Author", "Title", "Subject", "Creator", "Producer"}

const headerWindow = 1024

var infoRefRe = regexp.MustCompile(`/Info\s+(\d+)\s+(\d+)\s+R\b`)

type objRef struct{ num, gen int }

// Caveat for files whose Info object sits in an object stream that could
// not be written back in place.
const UpdateCaveat = "Info fields hidden by an appended update; the original object stream is left as is"

// Strip reads the Info fields and overwrites their values with an empty
// string padded to the original width, so every xref offset stays valid.
// Indirect values are resolved and their string objects blanked too.
func (PDF) Strip(content []byte) (core.Stripped, error) {
	if bytes.Index(content[:min(len(content), headerWindow)], []byte("%PDF-")) < 0 {
		return core.Stripped{}, core.NewDecodeError(core.TagPDF, "missing %%PDF- header")
	}
	if bytes.LastIndex(content, []byte("%%EOF")) < 0 {
		return core.Stripped{}, core.NewDecodeError(core.TagPDF, "missing %%%%EOF marker")
	}

	f := &pdfFile{src: content, out: bytes.Clone(content)}
	meta := core.Metadata{}

	var (
		latest    *objDef
		latestRef objRef
	)
	for _, ref := range infoRefs(content) {
		defs := f.definitions(ref)
		if len(defs) == 0 {
			err := fmt.Errorf("info object %d %d not found", ref.num, ref.gen)
			if f.streamErr != nil {
				err = fmt.Errorf("%w (%w)", err, f.streamErr)
			}
			return core.Stripped{}, &core.DecodeError{Format: core.TagPDF, Err: err}
		}
		// Later definitions belong to later revisions and win.
		for i := range defs {
			if err := f.scrubInfo(&defs[i], meta); err != nil {
				return core.Stripped{}, &core.DecodeError{Format: core.TagPDF, Err: fmt.Errorf("info object %d %d: %w", ref.num, ref.gen, err)}
			}
		}
		latest, latestRef = &defs[len(defs)-1], ref
	}

	caveat, err := f.commit(latestRef, latest)
	if err != nil {
		return core.Stripped{}, &core.DecodeError{Format: core.TagPDF, Err: err}
	}
	return core.Stripped{Content: f.out, Metadata: meta, Caveat: caveat}, nil
}

// pdfFile is one Strip call's working state: the source, the output copy
// and the object streams, loaded on demand.
type pdfFile struct {
	src, out      []byte
	streams       []*objStream
	streamsLoaded bool
	streamErr     error
}

// objDef is one definition of an object. Plain objects are read from the
// source and blanked in the output copy; objects inside an object stream
// are read from and blanked in its inflated content.
type objDef struct {
	pos      int // file offset, orders revisions
	src, dst []byte
	off, end int
	stm      *objStream
}

func (d *objDef) blank(t token) {
	blank(d.dst[t.start:t.end])
	if d.stm != nil {
		d.stm.dirty = true
	}
}

// definitions lists every definition of ref in file order.
func (f *pdfFile) definitions(ref objRef) []objDef {
	var defs []objDef
	for _, off := range objectOffsets(f.src, ref) {
		defs = append(defs, objDef{pos: off, src: f.src, dst: f.out, off: off})
	}
	if ref.gen == 0 {
		for _, s := range f.objectStreams() {
			if off, ok := s.offsets[ref.num]; ok {
				defs = append(defs, objDef{pos: s.pos, src: s.orig, dst: s.data, off: off, stm: s})
			}
		}
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].pos < defs[j].pos })
	return defs
}

// scrubInfo copies the non-empty Info fields of d into meta and blanks them.
func (f *pdfFile) scrubInfo(d *objDef, meta core.Metadata) error {
	entries, end, err := infoDict(d.src, d.off)
	if err != nil {
		return err
	}
	d.end = end
	for _, e := range entries {
		if !isInfoField(e.key) {
			continue
		}
		raw := d.src[e.value.start:e.value.end]
		switch {
		case e.ref:
			ref, ok := parseRef(string(raw))
			if !ok {
				break
			}
			v, err := f.scrubString(ref)
			if err != nil {
				return fmt.Errorf("/%s: %w", e.key, err)
			}
			if v != "" {
				meta[e.key] = v
			}
		case e.value.kind == tokLiteral || e.value.kind == tokHex:
			v, err := decodeString(raw, e.value.kind)
			if err != nil {
				return fmt.Errorf("/%s: %w", e.key, err)
			}
			if v != "" {
				meta[e.key] = v
			}
		}
		d.blank(e.value)
	}
	return nil
}

// scrubString blanks every definition of a string object and returns the
// latest non-empty value. A missing object counts as null.
func (f *pdfFile) scrubString(ref objRef) (string, error) {
	var value string
	for _, d := range f.definitions(ref) {
		l := &lexer{data: d.src, pos: d.off}
		t, err := l.next()
		if err != nil {
			return "", err
		}
		if t.kind != tokLiteral && t.kind != tokHex {
			continue
		}
		v, err := decodeString(d.src[t.start:t.end], t.kind)
		if err != nil {
			return "", err
		}
		if v != "" {
			value = v
		}
		d.blank(t)
	}
	return value, nil
}

// commit writes changed object streams back. If one no longer fits, the
// latest Info definition is appended as an incremental update instead.
func (f *pdfFile) commit(ref objRef, latest *objDef) (string, error) {
	overflow := false
	for _, s := range f.streams {
		if s.dirty && !s.rewrite(f.out) {
			overflow = true
		}
	}
	if !overflow {
		return "", nil
	}
	if latest != nil && latest.stm != nil && !latest.stm.written {
		out, err := appendInfoUpdate(f.out, ref, latest.dst[latest.off:latest.end])
		if err != nil {
			return "", err
		}
		f.out = out
	}
	return UpdateCaveat, nil
}

func parseRef(s string) (objRef, bool) {
	fields := strings.Fields(s)
	if len(fields) != 3 || fields[2] != "R" {
		return objRef{}, false
	}
	num, err1 := strconv.Atoi(fields[0])
	gen, err2 := strconv.Atoi(fields[1])
	return objRef{num, gen}, err1 == nil && err2 == nil
}

func lookup(entries []dictEntry, key string) (dictEntry, bool) {
	for _, e := range entries {
		if e.key == key {
			return e, true
		}
	}
	return dictEntry{}, false
}

// infoRefs returns every distinct /Info reference in file order. Each
// incremental update carries its own trailer.
func infoRefs(data []byte) []objRef {
	var refs []objRef
	seen := map[objRef]bool{}
	for _, m := range infoRefRe.FindAllSubmatch(data, -1) {
		num, err1 := strconv.Atoi(string(m[1]))
		gen, err2 := strconv.Atoi(string(m[2]))
		if err1 != nil || err2 != nil {
			continue
		}
		r := objRef{num, gen}
		if !seen[r] {
			seen[r] = true
			refs = append(refs, r)
		}
	}
	return refs
}

// objectOffsets returns the offset just past "N G obj" for every definition
// of ref.
func objectOffsets(data []byte, ref objRef) []int {
	re := regexp.MustCompile(fmt.Sprintf(`(?:^|[^0-9])%d\s+%d\s+obj\b`, ref.num, ref.gen))
	var offs []int
	for _, loc := range re.FindAllIndex(data, -1) {
		offs = append(offs, loc[1])
	}
	return offs
}

func infoDict(data []byte, off int) ([]dictEntry, int, error) {
	l := &lexer{data: data, pos: off}
	t, err := l.next()
	if err != nil {
		return nil, 0, err
	}
	if t.kind != tokDict {
		return nil, 0, fmt.Errorf("not a dictionary")
	}
	return l.dictBody()
}

func isInfoField(key string) bool {
	for _, f := range infoFields {
		if f == key {
			return true
		}
	}
	return false
}

// blank replaces a value with "()" followed by spaces.
func blank(span []byte) {
	if len(span) < 2 {
		return
	}
	span[0], span[1] = '(', ')'
	for i := 2; i < len(span); i++ {
		span[i] = ' '
	}
}
