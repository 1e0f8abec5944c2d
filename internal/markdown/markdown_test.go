package markdown

import (
	"reflect"
	"testing"
)

func TestImageLinks(t *testing.T) {
	tests := []struct {
		name string
		md   string
		want []string
	}{
		{"none", "# Title\n\nplain text", []string{}},
		{"single", "before ![img-0.jpeg](img-0.jpeg) after", []string{"img-0.jpeg"}},
		{"ordered", "![a](first.png)\n\ntext\n\n![](second.jpeg)", []string{"first.png", "second.jpeg"}},
		{"regular link ignored", "[doc](https://example.com) ![x](pic.jpeg)", []string{"pic.jpeg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageLinks(tt.md); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ImageLinks() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	md := "# Annual Report\n\n![img-0.jpeg](img-0.jpeg)\n\nRevenue   grew\nby 4%.\n\n"
	if got := Snippet(md, 100); got != "Annual Report Revenue grew by 4%." {
		t.Errorf("Snippet() = %q", got)
	}
	if got := Snippet(md, 6); got != "Annual…" {
		t.Errorf("Snippet() truncated = %q", got)
	}
}
