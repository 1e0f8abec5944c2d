package persister

import (
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/mfenderov/pageocr/internal/ocr"
	"github.com/mfenderov/pageocr/internal/storage"
	"github.com/mfenderov/pageocr/pkg/models"
)

func newPersister() (*Persister, afero.Fs) {
	mem := afero.NewMemMapFs()
	return New(storage.NewFS(mem, "Mistral-OCR")), mem
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestPersist_Transcript(t *testing.T) {
	p, mem := newPersister()
	result := &ocr.Result{Pages: []ocr.Page{
		{Index: 0, Markdown: "# One"},
		{Index: 1, Markdown: "Two"},
	}}

	entry, err := p.Persist(t.Context(), result, models.Digest("abc"), false)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	want := "# One\n\nTwo\n\n"
	if entry.TranscriptText != want {
		t.Errorf("TranscriptText = %q, want %q", entry.TranscriptText, want)
	}
	if entry.PageCount != 2 || entry.ImageCount != 0 {
		t.Errorf("counts = %d pages, %d images", entry.PageCount, entry.ImageCount)
	}
	if entry.StorageFolder != filepath.Join("Mistral-OCR", "abc")+"/" {
		t.Errorf("StorageFolder = %q", entry.StorageFolder)
	}

	data, err := afero.ReadFile(mem, filepath.Join("Mistral-OCR", "abc", "transcription.md"))
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	if string(data) != want {
		t.Errorf("file content = %q", data)
	}
	if entry.Files.Transcript.Path != filepath.Join("Mistral-OCR", "abc", "transcription.md") {
		t.Errorf("transcript handle = %+v", entry.Files.Transcript)
	}
}

func TestPersist_ImageNaming(t *testing.T) {
	p, mem := newPersister()
	result := &ocr.Result{Pages: []ocr.Page{
		{
			Index:    0,
			Markdown: "![img-0.jpeg](from-link.jpeg)",
			Images: []ocr.Image{
				{ID: "ignored-id", ImageBase64: b64("first")},
				{ID: "by-id.png", ImageBase64: "data:image/png;base64," + b64("second")},
			},
		},
		{
			Index: 3,
			Images: []ocr.Image{
				{ImageBase64: b64("third")},
				{ID: "empty-payload.jpeg"},
			},
		},
	}}

	entry, err := p.Persist(t.Context(), result, models.Digest("d1"), true)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if entry.ImageCount != 3 {
		t.Fatalf("ImageCount = %d, want 3", entry.ImageCount)
	}

	want := map[string]string{
		"from-link.jpeg": "first",
		"by-id.png":      "second",
		"img-3-0.jpeg":   "third",
	}
	for name, content := range want {
		data, err := afero.ReadFile(mem, filepath.Join("Mistral-OCR", "d1", name))
		if err != nil {
			t.Errorf("%s not written: %v", name, err)
			continue
		}
		if string(data) != content {
			t.Errorf("%s = %q, want %q", name, data, content)
		}
	}
	if exists, _ := afero.Exists(mem, filepath.Join("Mistral-OCR", "d1", "empty-payload.jpeg")); exists {
		t.Error("image without payload should be skipped")
	}
}

func TestPersist_ImagesExcluded(t *testing.T) {
	p, mem := newPersister()
	result := &ocr.Result{Pages: []ocr.Page{
		{Index: 0, Markdown: "![x](x.jpeg)", Images: []ocr.Image{{ID: "x.jpeg", ImageBase64: b64("x")}}},
	}}

	entry, err := p.Persist(t.Context(), result, models.Digest("d2"), false)
	if err != nil {
		t.Fatal(err)
	}
	if entry.ImageCount != 0 || len(entry.Files.Images) != 0 {
		t.Errorf("images written with includeImages=false: %+v", entry.Files.Images)
	}
	if exists, _ := afero.Exists(mem, filepath.Join("Mistral-OCR", "d2", "x.jpeg")); exists {
		t.Error("image file should not exist")
	}
}

func TestPersist_NamesStayInFolder(t *testing.T) {
	p, mem := newPersister()
	result := &ocr.Result{Pages: []ocr.Page{
		{Index: 0, Markdown: "![a](../../escape.jpeg)", Images: []ocr.Image{{ImageBase64: b64("a")}}},
	}}

	if _, err := p.Persist(t.Context(), result, models.Digest("d3"), true); err != nil {
		t.Fatal(err)
	}
	if exists, _ := afero.Exists(mem, filepath.Join("Mistral-OCR", "d3", "escape.jpeg")); !exists {
		t.Error("image should be written under the digest folder by base name")
	}
}

func TestImageName(t *testing.T) {
	page := ocr.Page{Index: 2, Images: []ocr.Image{{ID: ""}, {ID: "id.jpeg"}}}

	tests := []struct {
		name  string
		i     int
		links []string
		want  string
	}{
		{"link wins", 1, []string{"a.jpeg", "b.jpeg"}, "b.jpeg"},
		{"id when no link", 1, nil, "id.jpeg"},
		{"generated", 0, nil, "img-2-0.jpeg"},
		{"url link", 0, []string{"https://cdn.example.com/x/pic.png"}, "pic.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := imageName(tt.i, page, tt.links); got != tt.want {
				t.Errorf("imageName() = %q, want %q", got, tt.want)
			}
		})
	}
}
