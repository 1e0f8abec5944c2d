package resolver

import (
	"testing"

	"github.com/mfenderov/pageocr/pkg/models"
)

func TestDisplayName(t *testing.T) {
	titled := []byte("%PDF-1.4 << /Title (Board Minutes) >>")
	untitled := []byte("%PDF-1.4 << /Title (Untitled) >>")

	tests := []struct {
		name string
		res  models.ResolvedResource
		data []byte
		cd   string
		want string
	}{
		{
			name: "embedded title wins",
			res:  models.ResolvedResource{URL: "https://x.test/a.pdf", Kind: models.KindDocument, NameHint: "a.pdf"},
			data: titled,
			cd:   `attachment; filename="file.pdf"`,
			want: "Board Minutes",
		},
		{
			name: "content disposition",
			res:  models.ResolvedResource{URL: "https://x.test/a.pdf", Kind: models.KindDocument},
			data: untitled,
			cd:   `attachment; filename="Invoice 7.pdf"`,
			want: "Invoice 7.pdf",
		},
		{
			name: "disposition captured during resolution",
			res: models.ResolvedResource{
				URL: "https://x.test/a.pdf", Kind: models.KindDocument,
				ContentDisposition: `inline; filename*=UTF-8''cached%20name.pdf`,
			},
			data: untitled,
			want: "cached name.pdf",
		},
		{
			name: "query parameter",
			res:  models.ResolvedResource{URL: "https://x.test/dl?id=4&attname=Slides.pdf", Kind: models.KindDocument},
			data: untitled,
			want: "Slides.pdf",
		},
		{
			name: "path segment",
			res:  models.ResolvedResource{URL: "https://x.test/files/q3.pdf", Kind: models.KindDocument},
			data: untitled,
			want: "q3.pdf",
		},
		{
			name: "office export keeps its name",
			res:  models.ResolvedResource{URL: "https://docs.google.com/document/d/1", Kind: models.KindDocument, Strategy: StrategyOffice, NameHint: "Plan.pdf"},
			data: titled,
			want: "Plan.pdf",
		},
		{
			name: "image keeps its hint",
			res:  models.ResolvedResource{URL: "https://x.test/p.png", Kind: models.KindImage, NameHint: "p.png"},
			want: "p.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayName(&tt.res, tt.data, tt.cd); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
