package office

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/mfenderov/pageocr/internal/fetcher"
	"github.com/mfenderov/pageocr/pkg/models"
)

type fakeGetter struct {
	responses map[string]*fetcher.Response
	requested []string
}

func (f *fakeGetter) Get(_ context.Context, rawURL string, mode fetcher.Mode) (*fetcher.Response, error) {
	f.requested = append(f.requested, rawURL)
	if mode != fetcher.Credentialed {
		return nil, errors.New("exports must be credentialed")
	}
	if r, ok := f.responses[rawURL]; ok {
		return r, nil
	}
	return &fetcher.Response{URL: rawURL, Status: http.StatusNotFound, Header: http.Header{}}, nil
}

type fakeBrowser struct {
	finalURL string
	err      error
	called   bool
}

func (b *fakeBrowser) ResolveExport(ctx context.Context, exportURL string) (string, error) {
	b.called = true
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("browser step must be bounded")
	}
	return b.finalURL, b.err
}

func pdfResponse(body string) *fetcher.Response {
	return &fetcher.Response{Status: http.StatusOK, Header: http.Header{}, Body: []byte(body)}
}

const docPage = "https://docs.google.com/document/d/abc/edit"

func TestExporter_Direct(t *testing.T) {
	getter := &fakeGetter{responses: map[string]*fetcher.Response{
		"https://docs.google.com/document/d/abc/export?format=pdf": pdfResponse("%PDF-direct"),
	}}
	e := NewExporter(Config{}, getter, nil)

	exp, err := e.Export(t.Context(), models.Page{URL: docPage, Title: "Plan: Q3/Q4"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if string(exp.Data) != "%PDF-direct" {
		t.Errorf("Data = %q", exp.Data)
	}
	if exp.Name != "Plan Q3 Q4.pdf" {
		t.Errorf("Name = %q", exp.Name)
	}
	if exp.URL != "https://docs.google.com/document/d/abc" {
		t.Errorf("URL = %q", exp.URL)
	}
}

func TestExporter_FollowsLocation(t *testing.T) {
	redirect := &fetcher.Response{
		Status: http.StatusFound,
		Header: http.Header{"Location": []string{"https://signed.example.com/file"}},
	}
	getter := &fakeGetter{responses: map[string]*fetcher.Response{
		"https://docs.google.com/document/d/abc/export?format=pdf": redirect,
		"https://signed.example.com/file":                         pdfResponse("%PDF-signed"),
	}}
	e := NewExporter(Config{}, getter, nil)

	exp, err := e.Export(t.Context(), models.Page{URL: docPage, Title: "t"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if string(exp.Data) != "%PDF-signed" {
		t.Errorf("Data = %q", exp.Data)
	}
}

func TestExporter_BrowserFallback(t *testing.T) {
	getter := &fakeGetter{responses: map[string]*fetcher.Response{
		// sign-in page served with 200
		"https://docs.google.com/document/d/abc/export?format=pdf": pdfResponse("<html>sign in</html>"),
		"https://signed.example.com/final":                         pdfResponse("%PDF-browser"),
	}}
	browser := &fakeBrowser{finalURL: "https://signed.example.com/final"}
	e := NewExporter(Config{}, getter, browser)

	exp, err := e.Export(t.Context(), models.Page{URL: docPage, Title: "t"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !browser.called {
		t.Error("expected browser fallback")
	}
	if string(exp.Data) != "%PDF-browser" {
		t.Errorf("Data = %q", exp.Data)
	}
}

func TestExporter_FailsWithoutBrowser(t *testing.T) {
	e := NewExporter(Config{}, &fakeGetter{}, nil)
	if _, err := e.Export(t.Context(), models.Page{URL: docPage, Title: "t"}); err == nil {
		t.Error("expected error when every export path fails")
	}
}

func TestExporter_TitleFromPage(t *testing.T) {
	getter := &fakeGetter{responses: map[string]*fetcher.Response{
		"https://docs.google.com/presentation/d/p1/edit": pdfResponse(
			"<html><head><title>Roadmap - Slides</title></head><body></body></html>"),
		"https://docs.google.com/presentation/d/p1/export/pdf": pdfResponse("%PDF-slides"),
	}}
	e := NewExporter(Config{}, getter, nil)

	exp, err := e.Export(t.Context(), models.Page{URL: "https://docs.google.com/presentation/d/p1/edit"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if exp.Name != "Roadmap - Slides.pdf" {
		t.Errorf("Name = %q", exp.Name)
	}
}

func TestExporter_DefaultTitle(t *testing.T) {
	getter := &fakeGetter{responses: map[string]*fetcher.Response{
		"https://docs.google.com/spreadsheets/d/s1/export?format=pdf": pdfResponse("%PDF-sheet"),
	}}
	e := NewExporter(Config{}, getter, nil)

	exp, err := e.Export(t.Context(), models.Page{URL: "https://docs.google.com/spreadsheets/d/s1/edit"})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if exp.Name != "sheet.pdf" {
		t.Errorf("Name = %q", exp.Name)
	}
}

func TestExporter_NotOffice(t *testing.T) {
	e := NewExporter(Config{}, &fakeGetter{}, nil)
	_, err := e.Export(t.Context(), models.Page{URL: "https://example.com/a.pdf"})
	if !errors.Is(err, ErrNotOffice) {
		t.Errorf("error = %v, want ErrNotOffice", err)
	}
}
