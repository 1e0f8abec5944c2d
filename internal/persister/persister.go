// Package persister writes OCR results to artifact storage.
package persister

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/mfenderov/pageocr/internal/markdown"
	"github.com/mfenderov/pageocr/internal/ocr"
	"github.com/mfenderov/pageocr/internal/storage"
	"github.com/mfenderov/pageocr/pkg/models"
)

// TranscriptName is the transcript's file name inside a digest folder.
const TranscriptName = "transcription.md"

// Persister lays out a transcription as <root>/<digest>/transcription.md
// plus one file per extracted image.
type Persister struct {
	store storage.Store
}

// New creates a Persister writing to store.
func New(store storage.Store) *Persister {
	return &Persister{store: store}
}

type pendingImage struct {
	name string
	data []byte
}

// Persist writes the transcript and, if includeImages is set, the images of
// result. The returned Entry has its artifact fields filled; identity and
// timestamps are left to the caller.
func (p *Persister) Persist(ctx context.Context, result *ocr.Result, digest models.Digest, includeImages bool) (*models.Entry, error) {
	var transcript strings.Builder
	var images []pendingImage

	for _, page := range result.Pages {
		transcript.WriteString(page.Markdown)
		transcript.WriteString("\n\n")

		if !includeImages {
			continue
		}
		links := markdown.ImageLinks(page.Markdown)
		for i, img := range page.Images {
			if img.ImageBase64 == "" {
				continue
			}
			data, err := decodePayload(img.ImageBase64)
			if err != nil {
				slog.Warn("Skipping undecodable image", "digest", digest.Short(), "page", page.Index, "image", i, "error", err)
				continue
			}
			images = append(images, pendingImage{name: imageName(i, page, links), data: data})
		}
	}

	folder := string(digest)
	text := transcript.String()

	handle, err := p.store.Put(ctx, path.Join(folder, TranscriptName), []byte(text), markdown.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to write transcript: %w", err)
	}

	entry := &models.Entry{
		Digest:         digest,
		PageCount:      len(result.Pages),
		StorageFolder:  p.store.Location(folder) + "/",
		Files:          models.EntryFiles{Transcript: handle},
		TranscriptText: text,
	}

	for _, img := range images {
		h, err := p.store.Put(ctx, path.Join(folder, img.name), img.data, contentTypeFor(img.name))
		if err != nil {
			return nil, fmt.Errorf("failed to write image %s: %w", img.name, err)
		}
		entry.Files.Images = append(entry.Files.Images, h)
	}
	entry.ImageCount = len(entry.Files.Images)

	slog.Debug("Persisted transcription", "digest", digest.Short(), "pages", entry.PageCount, "images", entry.ImageCount)
	return entry, nil
}

// imageName picks the file name of the i-th image of page: the Markdown image
// link at the same position, then the image id, then a generated name. Only
// the base name is kept.
func imageName(i int, page ocr.Page, links []string) string {
	candidates := []string{}
	if i < len(links) {
		candidates = append(candidates, links[i])
	}
	candidates = append(candidates, page.Images[i].ID)

	for _, c := range candidates {
		if name := baseName(c); name != "" {
			return name
		}
	}
	return fmt.Sprintf("img-%d-%d.jpeg", page.Index, i)
}

func baseName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}

// decodePayload accepts bare base64 or a base64 data URL.
func decodePayload(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		s = s[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	return data, nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "image/jpeg"
}
