package page

import (
	"net/url"
	"testing"

	"github.com/mfenderov/pageocr/pkg/models"
)

func TestIsPDFLikeURL(t *testing.T) {
	base, _ := url.Parse("https://example.com/docs/index.html")

	tests := []struct {
		raw  string
		want bool
	}{
		{"/files/report.pdf", true},
		{"REPORT.PDF", true},
		{"https://cdn.example.com/view?format=pdf", true},
		{"/get?mimeType=application/pdf", true},
		{"/get?contentType=application/x-pdf", true},
		{"/get?mime=image/png", false},
		{"/viewer.html", false},
		{"https://example.com/report.pdf.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := IsPDFLikeURL(base, tt.raw); got != tt.want {
				t.Errorf("IsPDFLikeURL(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSingleDocumentURL(t *testing.T) {
	pageURL := "https://example.com/articles/view"

	tests := []struct {
		name       string
		candidates []models.EmbedCandidate
		want       string
		wantOK     bool
	}{
		{
			name:       "single relative embed",
			candidates: []models.EmbedCandidate{{Tag: "embed", Src: "../files/a.pdf"}},
			want:       "https://example.com/files/a.pdf",
			wantOK:     true,
		},
		{
			name:       "object by type attribute",
			candidates: []models.EmbedCandidate{{Tag: "object", Src: "/stream/42", Type: "application/pdf"}},
			want:       "https://example.com/stream/42",
			wantOK:     true,
		},
		{
			name:       "iframe type attribute is ignored",
			candidates: []models.EmbedCandidate{{Tag: "iframe", Src: "/stream/42", Type: "application/pdf"}},
			wantOK:     false,
		},
		{
			name: "duplicates collapse",
			candidates: []models.EmbedCandidate{
				{Tag: "embed", Src: "/files/a.pdf"},
				{Tag: "iframe", Src: "https://example.com/files/a.pdf"},
			},
			want:   "https://example.com/files/a.pdf",
			wantOK: true,
		},
		{
			name: "two distinct documents are ambiguous",
			candidates: []models.EmbedCandidate{
				{Tag: "embed", Src: "/files/a.pdf"},
				{Tag: "embed", Src: "/files/b.pdf"},
			},
			wantOK: false,
		},
		{
			name:       "non-document embeds ignored",
			candidates: []models.EmbedCandidate{{Tag: "iframe", Src: "https://video.example.com/player"}},
			wantOK:     false,
		},
		{
			name:   "none",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SingleDocumentURL(pageURL, tt.candidates)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v (url %q)", ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Errorf("url = %q, want %q", got, tt.want)
			}
		})
	}
}
