package services

import (
	"strings"
	"testing"
)

func TestExtractHTMLContent(t *testing.T) {
	page := "<!DOCTYPE html>\n<html>\n<body><h1>Attention Is All You Need</h1></body>\n</html>"

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "fenced html block",
			input: "Here is your tutorial:\n```html\n" + page + "\n```\nEnjoy!",
			want:  page,
		},
		{
			name:  "bare document with trailing prose",
			input: page + "\n\nLet me know if you want changes.",
			want:  page,
		},
		{
			name:  "document without doctype",
			input: "Sure!\n<html><body>hi</body></html>\nDone.",
			want:  "<html><body>hi</body></html>",
		},
		{
			name:  "no markers returns everything",
			input: "plain text, no markup at all",
			want:  "plain text, no markup at all",
		},
		{
			name:  "truncated document keeps tail from start marker",
			input: "Intro prose.\n<!DOCTYPE html>\n<html><body>cut off",
			want:  "<!DOCTYPE html>\n<html><body>cut off",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractHTMLContent(tt.input)
			if got != tt.want {
				t.Errorf("extractHTMLContent:\n got %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestExtractHTMLContentStripsFenceWhitespace(t *testing.T) {
	got := extractHTMLContent("```html\n\n  <html></html>\n\n```")
	if strings.HasPrefix(got, "\n") || strings.HasSuffix(got, "\n") {
		t.Errorf("content should be trimmed, got %q", got)
	}
}
