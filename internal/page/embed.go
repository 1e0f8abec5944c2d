// Package page finds document resources embedded in a web page.
package page

import (
	"net/url"
	"strings"

	"github.com/mfenderov/pageocr/pkg/models"
)

var pdfMIMETypes = map[string]bool{
	"application/pdf":   true,
	"application/x-pdf": true,
}

var mimeParams = []string{"mime", "mimeType", "contentType"}

// IsPDFLikeURL reports whether rawURL, resolved against base, points at a
// PDF judging by its path or query parameters.
func IsPDFLikeURL(base *url.URL, rawURL string) bool {
	u, err := resolve(base, rawURL)
	if err != nil {
		return false
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return true
	}
	q := u.Query()
	if strings.EqualFold(q.Get("format"), "pdf") {
		return true
	}
	for _, key := range mimeParams {
		if pdfMIMETypes[strings.ToLower(q.Get(key))] {
			return true
		}
	}
	return false
}

// qualifies applies the per-tag rules: embed and object may declare a PDF
// type attribute, iframes are judged by URL only.
func qualifies(base *url.URL, c models.EmbedCandidate) bool {
	if c.Src == "" {
		return false
	}
	switch strings.ToLower(c.Tag) {
	case "embed", "object":
		return pdfMIMETypes[strings.ToLower(strings.TrimSpace(c.Type))] || IsPDFLikeURL(base, c.Src)
	case "iframe":
		return IsPDFLikeURL(base, c.Src)
	}
	return false
}

// SingleDocumentURL returns the absolute URL of the only qualifying embedded
// document. Zero or several distinct candidates report false.
func SingleDocumentURL(pageURL string, candidates []models.EmbedCandidate) (string, bool) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}

	seen := make(map[string]bool)
	var unique []string
	for _, c := range candidates {
		if !qualifies(base, c) {
			continue
		}
		u, err := resolve(base, c.Src)
		if err != nil {
			continue
		}
		abs := u.String()
		if !seen[abs] {
			seen[abs] = true
			unique = append(unique, abs)
		}
	}

	if len(unique) != 1 {
		return "", false
	}
	return unique[0], true
}

func resolve(base *url.URL, rawURL string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	if base == nil {
		return ref, nil
	}
	return base.ResolveReference(ref), nil
}
