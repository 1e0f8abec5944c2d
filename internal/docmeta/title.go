// Package docmeta extracts display metadata from raw document bytes and
// response headers.
package docmeta

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// MaxTitleLength is the maximum length of a normalized title, in runes.
const MaxTitleLength = 200

var placeholderTitles = map[string]bool{
	"untitled": true,
	"document": true,
	"unknown":  true,
}

// NormalizeTitle replaces control characters with spaces, collapses
// whitespace and truncates to MaxTitleLength runes. It returns "" for empty
// titles and generic placeholders such as "Untitled".
func NormalizeTitle(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > MaxTitleLength {
		s = strings.TrimSpace(string([]rune(s)[:MaxTitleLength]))
	}
	if s == "" || placeholderTitles[strings.ToLower(s)] {
		return ""
	}
	return s
}

// Title returns the best embedded title of a PDF, or "" when it carries none.
// Sources in order: XMP dc:title, Info /Title literal string, Info /Title hex
// string, then a structural parse for titles stored in compressed objects.
func Title(data []byte) string {
	if t := NormalizeTitle(xmpTitle(data)); t != "" {
		return t
	}
	literals, hexes := scanTitleStrings(data)
	for _, raw := range literals {
		if t := NormalizeTitle(decodeTextString(raw)); t != "" {
			return t
		}
	}
	for _, raw := range hexes {
		if t := NormalizeTitle(decodeHexText(raw)); t != "" {
			return t
		}
	}
	if !IsPDF(data) {
		return ""
	}
	if title, err := structuralTitle(data); err == nil {
		return NormalizeTitle(title)
	}
	return ""
}

var titleKey = []byte("/Title")

// scanTitleStrings walks every /Title key in data and returns the raw bytes
// of the literal and hex string values that follow it.
func scanTitleStrings(data []byte) (literals, hexes [][]byte) {
	for off := 0; off < len(data); {
		i := bytes.Index(data[off:], titleKey)
		if i < 0 {
			break
		}
		pos := off + i + len(titleKey)
		off = pos

		// /TitleFoo is a different name
		if pos < len(data) && isRegular(data[pos]) {
			continue
		}
		pos = skipWhitespace(data, pos)
		if pos >= len(data) {
			break
		}

		switch {
		case data[pos] == '(':
			if raw, end, ok := readLiteral(data, pos); ok {
				literals = append(literals, raw)
				off = end
			}
		case data[pos] == '<' && (pos+1 >= len(data) || data[pos+1] != '<'):
			if raw, end, ok := readHex(data, pos); ok {
				hexes = append(hexes, raw)
				off = end
			}
		}
	}
	return literals, hexes
}

// readLiteral parses a literal string starting at data[start] == '('.
// It returns the unescaped bytes and the offset just past the closing paren.
func readLiteral(data []byte, start int) ([]byte, int, bool) {
	var out []byte
	depth := 0
	for i := start; i < len(data); i++ {
		c := data[i]
		switch c {
		case '(':
			depth++
			if depth > 1 {
				out = append(out, c)
			}
		case ')':
			depth--
			if depth == 0 {
				return out, i + 1, true
			}
			out = append(out, c)
		case '\\':
			i++
			if i >= len(data) {
				return nil, 0, false
			}
			n := data[i]
			switch n {
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
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				if n >= '0' && n <= '7' {
					v := int(n - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						v = v*8 + int(data[i]-'0')
					}
					out = append(out, byte(v))
				} else {
					out = append(out, n)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return nil, 0, false
}

// readHex parses a hex string starting at data[start] == '<'. Whitespace is
// ignored and an odd final digit is treated as followed by zero.
func readHex(data []byte, start int) ([]byte, int, bool) {
	var out []byte
	var hi byte
	half := false
	for i := start + 1; i < len(data); i++ {
		c := data[i]
		if c == '>' {
			if half {
				out = append(out, hi<<4)
			}
			return out, i + 1, true
		}
		if isWhitespace(c) {
			continue
		}
		v, ok := hexValue(c)
		if !ok {
			return nil, 0, false
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	return nil, 0, false
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func skipWhitespace(data []byte, pos int) int {
	for pos < len(data) && isWhitespace(data[pos]) {
		pos++
	}
	return pos
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool {
	return !isWhitespace(c) && !isDelimiter(c)
}
