package download

import (
	"strings"
	"testing"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		suffix   string
		want     string
	}{
		{"plain", "Report", "download", ".pdf", "Report.pdf"},
		{"no suffix", "Report", "download", "", "Report"},
		{"suffix already present", "report.PDF", "download", ".pdf", "report.PDF"},
		{"empty uses fallback", "", "brochure", ".pdf", "brochure.pdf"},
		{"whitespace uses fallback", "   ", "brochure", "", "brochure"},
		{"unicode only uses fallback", "日本語", "brochure", "", "brochure"},
		{"nothing left", "", "", "", "download"},
		{"spaces collapse", "Annual   Report 2024", "download", "", "Annual_Report_2024"},
		{"quotes and crlf", "evil\"\r\nSet-Cookie: x=1", "download", "", "evil_Set-Cookie_x_1"},
		{"path traversal", "../../etc/passwd", "download", "", "_.._etc_passwd"},
		{"leading dots", "...hidden", "download", "", "hidden"},
		{"unsafe suffix", "Report", "download", "\".pdf", "Report.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(tt.input, tt.fallback, tt.suffix)
			if got != tt.want {
				t.Errorf("Filename(%q, %q, %q) = %q, want %q", tt.input, tt.fallback, tt.suffix, got, tt.want)
			}
		})
	}
}

func TestFilenameIsHeaderSafe(t *testing.T) {
	inputs := []string{
		"a\"b",
		"a\x00b\x7f",
		"line\nbreak",
		"semi;colon",
		"back\\slash",
		strings.Repeat("x", 500),
	}

	for _, in := range inputs {
		got := Filename(in, "download", ".bin")
		if len(got) > maxFilenameLength {
			t.Errorf("%q: length %d exceeds %d", in, len(got), maxFilenameLength)
		}
		for _, r := range got {
			if !isSafe(r) {
				t.Errorf("%q: unsafe rune %q in %q", in, r, got)
			}
		}
		if !strings.HasSuffix(got, ".bin") {
			t.Errorf("%q: expected .bin suffix, got %q", in, got)
		}
	}
}

func TestContentDisposition(t *testing.T) {
	want := `attachment; filename="Report.pdf"`
	if got := ContentDisposition("Report.pdf"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
