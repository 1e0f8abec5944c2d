package resolver

import (
	"net/url"
	"strings"

	"github.com/mfenderov/pageocr/internal/docmeta"
	"github.com/mfenderov/pageocr/pkg/models"
)

var filenameParams = []string{"filename", "file", "name", "title", "download", "attname"}

// DisplayName picks the name shown for a resource in entry lists.
// Documents prefer their embedded title, then the Content-Disposition
// filename, then URL heuristics. Office exports and images keep their hint.
func DisplayName(res *models.ResolvedResource, data []byte, contentDisposition string) string {
	if res.Kind != models.KindDocument || res.Strategy == StrategyOffice {
		return nameOr(res.NameHint)
	}
	if t := docmeta.Title(data); t != "" {
		return t
	}
	if contentDisposition == "" {
		contentDisposition = res.ContentDisposition
	}
	if fn := docmeta.DispositionFilename(contentDisposition); fn != "" {
		return fn
	}
	if fn := FilenameFromURL(res.URL); fn != "" {
		return fn
	}
	return nameOr(res.NameHint)
}

// FilenameFromURL returns a filename-like query parameter of rawURL, or its
// last path segment.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, key := range filenameParams {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
	}
	return lastSegment(u)
}

func nameOr(name string) string {
	if name == "" {
		return "document"
	}
	return name
}
