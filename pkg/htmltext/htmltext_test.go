package htmltext

import (
	"slices"
	"testing"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"tags removed", "<p>Hello <b>world</b></p>", "Hello world"},
		{"whitespace collapsed", "<div>\n  spaced\t out  </div>", "spaced out"},
		{"nested markup", "<ul><li>one</li><li>two</li></ul>", "one two"},
		{"sibling blocks", "<p>first</p><p>second</p>", "first second"},
		{"plain text untouched", "just text", "just text"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Strip(tt.html)
			if err != nil {
				t.Fatalf("Strip() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Strip() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImages(t *testing.T) {
	html := `<p><img src="/a.png"><span><img src="/b.jpg" alt="x"></span><img src=""></p>`
	got := Images(html)
	want := []string{"/a.png", "/b.jpg"}
	if !slices.Equal(got, want) {
		t.Errorf("Images() = %v, want %v", got, want)
	}
}

func TestImagesNone(t *testing.T) {
	if got := Images("<p>no pictures</p>"); got != nil {
		t.Errorf("Images() = %v, want nil", got)
	}
}
