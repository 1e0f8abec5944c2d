package resolver

import (
	"net/url"
	"strings"

	"github.com/mfenderov/pageocr/pkg/models"
)

// ViewerExtensionID is the id of the browser's built-in PDF viewer.
const ViewerExtensionID = "mhjfbmdgcfjbbpaeojofohoefgiehjai"

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// IsViewerURL reports whether rawURL belongs to the built-in PDF viewer.
func IsViewerURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "chrome-extension" && u.Host == ViewerExtensionID
}

// PrimaryURL returns the src query parameter of an embedded viewer URL, or
// the page URL itself.
func PrimaryURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	if src := u.Query().Get("src"); src != "" {
		return src
	}
	return pageURL
}

// Classify decides the kind of resource rawURL points at from its path.
// The name is the last path segment, or a kind-specific default.
func Classify(rawURL string) (kind models.Kind, name string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}
	p := strings.ToLower(decodedPath(u))

	switch {
	case strings.HasSuffix(p, ".pdf") || strings.Contains(p, "/viewer/secure/pdf"):
		kind = models.KindDocument
	case hasAnySuffix(p, imageExtensions):
		kind = models.KindImage
	default:
		return "", "", false
	}

	name = lastSegment(u)
	if name == "" {
		if kind == models.KindDocument {
			name = "document.pdf"
		} else {
			name = "image"
		}
	}
	return kind, name, true
}

// ProbeURL returns rawURL with ".pdf" appended to its path. It reports false
// for URLs that already end in ".pdf".
func ProbeURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return "", false
	}
	u.Path += ".pdf"
	u.RawPath = ""
	return u.String(), true
}

func decodedPath(u *url.URL) string {
	if p, err := url.PathUnescape(u.EscapedPath()); err == nil {
		return p
	}
	return u.Path
}

// lastSegment returns the decoded last path segment.
func lastSegment(u *url.URL) string {
	p := u.EscapedPath()
	seg := p[strings.LastIndex(p, "/")+1:]
	if dec, err := url.PathUnescape(seg); err == nil {
		seg = dec
	}
	return strings.TrimSpace(seg)
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
