package docmeta

import "testing"

func TestDispositionFilename(t *testing.T) {
	tests := []struct {
		name string
		cd   string
		want string
	}{
		{"empty", "", ""},
		{"quoted", `attachment; filename="report 2024.pdf"`, "report 2024.pdf"},
		{"bare", `inline; filename=report.pdf`, "report.pdf"},
		{"extended utf-8", `attachment; filename*=UTF-8''Caf%C3%A9%20menu.pdf`, "Café menu.pdf"},
		{"extended wins", `attachment; filename="fallback.pdf"; filename*=UTF-8''real.pdf`, "real.pdf"},
		{"extended latin-1", `attachment; filename*=iso-8859-1'en'Caf%E9.pdf`, "Café.pdf"},
		{"no filename", `inline`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DispositionFilename(tt.cd); got != tt.want {
				t.Errorf("DispositionFilename(%q) = %q, want %q", tt.cd, got, tt.want)
			}
		})
	}
}
