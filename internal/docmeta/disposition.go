package docmeta

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	extendedFilename = regexp.MustCompile(`(?i)filename\*\s*=\s*([^;]+)`)
	plainFilename    = regexp.MustCompile(`(?i)filename\s*=\s*(?:"([^"]+)"|([^;]+))`)
)

// DispositionFilename returns the filename carried by a Content-Disposition
// header value. The extended filename* form wins over the plain form.
func DispositionFilename(cd string) string {
	if cd == "" {
		return ""
	}
	if m := extendedFilename.FindStringSubmatch(cd); m != nil {
		return strings.TrimSpace(decodeExtValue(strings.Trim(strings.TrimSpace(m[1]), `"`)))
	}
	if m := plainFilename.FindStringSubmatch(cd); m != nil {
		if m[1] != "" {
			return strings.TrimSpace(m[1])
		}
		return strings.TrimSpace(m[2])
	}
	return ""
}

// decodeExtValue decodes an RFC 5987 value: charset'lang'pct-encoded.
func decodeExtValue(v string) string {
	parts := strings.SplitN(v, "'", 3)
	if len(parts) != 3 {
		return v
	}
	charset, encoded := strings.ToLower(parts[0]), parts[2]
	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		return encoded
	}
	if charset == "iso-8859-1" || charset == "latin1" {
		if s, err := charmap.ISO8859_1.NewDecoder().String(decoded); err == nil {
			return s
		}
	}
	return decoded
}
