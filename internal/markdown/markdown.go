// Package markdown holds helpers for the Markdown returned by the OCR backend.
package markdown

import (
	"regexp"
	"strings"
)

// ContentType is used when storing transcripts.
const ContentType = "text/markdown; charset=utf-8"

var imageLinkRe = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)

// ImageLinks returns the targets of all image links (![alt](target)) in
// document order.
func ImageLinks(md string) []string {
	matches := imageLinkRe.FindAllStringSubmatch(md, -1)
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		links = append(links, m[1])
	}
	return links
}

// Snippet returns a plain single-line excerpt of md, at most n runes long.
// Image links are dropped and heading markers stripped.
func Snippet(md string, n int) string {
	text := imageLinkRe.ReplaceAllString(md, " ")
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#>"))
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(line)
	}
	out := strings.Join(strings.Fields(b.String()), " ")
	r := []rune(out)
	if len(r) > n {
		return strings.TrimSpace(string(r[:n])) + "…"
	}
	return out
}
