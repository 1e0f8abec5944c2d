// Package office exports documents from online office-suite editors as PDF.
package office

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const host = "docs.google.com"

// Family is an office-suite editor family.
type Family string

const (
	FamilyDocument     Family = "document"
	FamilyPresentation Family = "presentation"
	FamilySpreadsheet  Family = "spreadsheets"
)

var familyPattern = regexp.MustCompile(`^/(document|presentation|spreadsheets)/d/([^/]+)`)

// Target identifies one exportable office document.
type Target struct {
	Family Family
	ID     string
}

// Match reports whether rawURL is an office editor page and returns its target.
func Match(rawURL string) (Target, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() != host {
		return Target{}, false
	}
	m := familyPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return Target{}, false
	}
	return Target{Family: Family(m[1]), ID: m[2]}, true
}

// BaseURL is the canonical document URL, used as the resource URL.
func (t Target) BaseURL() string {
	return "https://" + host + "/" + string(t.Family) + "/d/" + t.ID
}

// ExportURL is the PDF export endpoint for the family.
func (t Target) ExportURL() string {
	switch t.Family {
	case FamilyPresentation:
		return t.BaseURL() + "/export/pdf"
	default:
		return t.BaseURL() + "/export?format=pdf"
	}
}

func (t Target) defaultTitle() string {
	switch t.Family {
	case FamilyPresentation:
		return "slides"
	case FamilySpreadsheet:
		return "sheet"
	default:
		return "document"
	}
}

const maxNameLength = 100

var unsafeNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// FileName turns a page title into a PDF file name.
func FileName(title string) string {
	name := unsafeNameChars.ReplaceAllString(strings.TrimSpace(title), " ")
	name = strings.Join(strings.Fields(name), " ")
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
