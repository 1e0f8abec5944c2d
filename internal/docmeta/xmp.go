package docmeta

import (
	"bytes"
	"log/slog"

	"github.com/antchfx/xmlquery"
)

var (
	xmpStart = []byte("<x:xmpmeta")
	xmpEnd   = []byte("</x:xmpmeta>")
)

// xmpTitle returns the first dc:title alternative of an uncompressed XMP
// packet embedded in data.
func xmpTitle(data []byte) string {
	start := bytes.Index(data, xmpStart)
	if start < 0 {
		return ""
	}
	end := bytes.Index(data[start:], xmpEnd)
	if end < 0 {
		return ""
	}
	packet := data[start : start+end+len(xmpEnd)]

	doc, err := xmlquery.Parse(bytes.NewReader(packet))
	if err != nil {
		slog.Debug("failed to parse XMP packet", "error", err)
		return ""
	}
	node := xmlquery.FindOne(doc, "//dc:title//rdf:li")
	if node == nil {
		return ""
	}
	return node.InnerText()
}
