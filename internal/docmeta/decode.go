package docmeta

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var (
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// decodeTextString decodes a literal string value: UTF-16BE when it carries
// a byte order mark, Latin-1 otherwise.
func decodeTextString(raw []byte) string {
	if bytes.HasPrefix(raw, bomUTF16BE) {
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), raw[2:])
	}
	return decodeWith(charmap.ISO8859_1, raw)
}

// decodeHexText decodes the bytes of a hex string value: UTF-16 by byte order
// mark, then UTF-8 when valid, then Latin-1.
func decodeHexText(raw []byte) string {
	switch {
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), raw[2:])
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), raw[2:])
	case utf8.Valid(raw):
		return string(raw)
	}
	return decodeWith(charmap.ISO8859_1, raw)
}

func decodeWith(enc encoding.Encoding, raw []byte) string {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return ""
	}
	return string(out)
}
