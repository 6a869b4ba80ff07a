package document

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ─── Lexer ───────────────────────────────────────────────────────────────────
// Just enough PDF object syntax to walk a dictionary and find the byte span
// of every value. Streams are never entered.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLiteral
	tokHex
	tokName
	tokDict
	tokArray
	tokDictEnd
	tokArrayEnd
	tokOther // numbers, keywords (true, false, null, R, ...)
)

type token struct {
	kind       tokenKind
	start, end int // byte span in the source, end exclusive
}

type lexer struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	switch c {
	case 0x00, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// next reads one token. Dictionaries and arrays are returned as their
// opening token only; use skipValue to consume a whole value.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return token{kind: tokEOF, start: l.pos, end: l.pos}, nil
	}
	start := l.pos
	c := l.data[l.pos]
	switch {
	case c == '(':
		end, err := literalEnd(l.data, l.pos)
		if err != nil {
			return token{}, err
		}
		l.pos = end
		return token{kind: tokLiteral, start: start, end: end}, nil
	case c == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<':
		l.pos += 2
		return token{kind: tokDict, start: start, end: l.pos}, nil
	case c == '<':
		i := bytes.IndexByte(l.data[l.pos:], '>')
		if i < 0 {
			return token{}, fmt.Errorf("unterminated hex string at offset %d", start)
		}
		l.pos += i + 1
		return token{kind: tokHex, start: start, end: l.pos}, nil
	case c == '>' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '>':
		l.pos += 2
		return token{kind: tokDictEnd, start: start, end: l.pos}, nil
	case c == '[':
		l.pos++
		return token{kind: tokArray, start: start, end: l.pos}, nil
	case c == ']':
		l.pos++
		return token{kind: tokArrayEnd, start: start, end: l.pos}, nil
	case c == '/':
		l.pos++
		for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
			l.pos++
		}
		return token{kind: tokName, start: start, end: l.pos}, nil
	case isDelim(c):
		return token{}, fmt.Errorf("unexpected %q at offset %d", c, start)
	default:
		for l.pos < len(l.data) && !isWhite(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
			l.pos++
		}
		return token{kind: tokOther, start: start, end: l.pos}, nil
	}
}

// skipValue consumes the value starting with t and returns its full span.
func (l *lexer) skipValue(t token) (token, error) {
	switch t.kind {
	case tokDict:
		_, end, err := l.dictBody()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokDict, start: t.start, end: end}, nil
	case tokArray:
		for {
			n, err := l.next()
			if err != nil {
				return token{}, err
			}
			switch n.kind {
			case tokEOF:
				return token{}, fmt.Errorf("unterminated array at offset %d", t.start)
			case tokArrayEnd:
				return token{kind: tokArray, start: t.start, end: n.end}, nil
			}
			if _, err := l.skipValue(n); err != nil {
				return token{}, err
			}
		}
	case tokEOF, tokDictEnd, tokArrayEnd:
		return token{}, fmt.Errorf("missing value at offset %d", t.start)
	}
	return t, nil
}

// dictEntry is one key of a dictionary with the span of its value.
type dictEntry struct {
	key   string
	value token
	ref   bool // value is an indirect reference "N G R"
}

// dictBody reads entries up to and including the closing ">>". The opening
// "<<" must already be consumed.
func (l *lexer) dictBody() ([]dictEntry, int, error) {
	var entries []dictEntry
	for {
		t, err := l.next()
		if err != nil {
			return nil, 0, err
		}
		switch t.kind {
		case tokDictEnd:
			return entries, t.end, nil
		case tokEOF:
			return nil, 0, fmt.Errorf("unterminated dictionary")
		case tokName:
		default:
			return nil, 0, fmt.Errorf("expected name at offset %d", t.start)
		}
		key := string(l.data[t.start+1 : t.end])

		v, err := l.next()
		if err != nil {
			return nil, 0, err
		}
		v, err = l.skipValue(v)
		if err != nil {
			return nil, 0, err
		}
		e := dictEntry{key: key, value: v}
		if v.kind == tokOther && isInteger(l.data[v.start:v.end]) {
			if end, ok := l.refTail(); ok {
				e.value.end = end
				e.ref = true
			}
		}
		entries = append(entries, e)
	}
}

// refTail consumes "G R" after an object number if present.
func (l *lexer) refTail() (int, bool) {
	save := l.pos
	gen, err := l.next()
	if err == nil && gen.kind == tokOther && isInteger(l.data[gen.start:gen.end]) {
		r, err := l.next()
		if err == nil && r.kind == tokOther && string(l.data[r.start:r.end]) == "R" {
			return r.end, true
		}
	}
	l.pos = save
	return 0, false
}

func isInteger(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// literalEnd returns the offset just past the literal string opening at
// pos, honouring nested parentheses and backslash escapes.
func literalEnd(data []byte, pos int) (int, error) {
	depth := 0
	for i := pos; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated string at offset %d", pos)
}

// ─── String decoding ─────────────────────────────────────────────────────────

// decodeString turns a literal or hex string token into text.
func decodeString(raw []byte, kind tokenKind) (string, error) {
	var b []byte
	switch kind {
	case tokLiteral:
		b = unescapeLiteral(raw[1 : len(raw)-1])
	case tokHex:
		var err error
		if b, err = decodeHex(raw[1 : len(raw)-1]); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("not a string")
	}
	return decodeText(b)
}

func unescapeLiteral(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch c = s[i]; c {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '\r':
			// line continuation
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\n':
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := int(c - '0')
			for n := 0; n < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; n++ {
				i++
				v = v*8 + int(s[i]-'0')
			}
			out = append(out, byte(v))
		default:
			out = append(out, c)
		}
	}
	return out
}

func decodeHex(s []byte) ([]byte, error) {
	digits := make([]byte, 0, len(s)+1)
	for _, c := range s {
		if !isWhite(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 != 0 {
		digits = append(digits, '0')
	}
	b := make([]byte, len(digits)/2)
	if _, err := hex.Decode(b, digits); err != nil {
		return nil, fmt.Errorf("bad hex string: %w", err)
	}
	return b, nil
}

// decodeText applies the PDF text string rules: UTF-16BE with BOM, UTF-8
// with BOM, otherwise a single byte encoding (Latin-1 stands in for
// PDFDocEncoding).
func decodeText(b []byte) (string, error) {
	switch {
	case bytes.HasPrefix(b, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(b)
		if err != nil {
			return "", fmt.Errorf("bad UTF-16 string: %w", err)
		}
		return string(out), nil
	case bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}):
		return string(b[3:]), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
