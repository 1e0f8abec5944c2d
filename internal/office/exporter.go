package office

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfenderov/pageocr/internal/docmeta"
	"github.com/mfenderov/pageocr/internal/fetcher"
	"github.com/mfenderov/pageocr/pkg/models"
)

// ErrNotOffice is returned when a page is not an office editor page.
var ErrNotOffice = errors.New("not an office document page")

// Getter issues HTTP GETs. *fetcher.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string, mode fetcher.Mode) (*fetcher.Response, error)
}

// Browser loads an export URL in a real browser session and returns the
// signed URL the export finally redirects to.
type Browser interface {
	ResolveExport(ctx context.Context, exportURL string) (string, error)
}

// Config holds exporter configuration.
type Config struct {
	// BrowserTimeout bounds the browser fallback.
	BrowserTimeout time.Duration
}

// Export is an exported office document.
type Export struct {
	URL  string // canonical document URL
	Name string
	Data []byte
}

// Exporter downloads office documents as PDF with the user's credentials.
type Exporter struct {
	config  Config
	getter  Getter
	browser Browser // optional
}

// NewExporter creates an Exporter. browser may be nil to disable the
// browser fallback.
func NewExporter(config Config, getter Getter, browser Browser) *Exporter {
	if config.BrowserTimeout == 0 {
		config.BrowserTimeout = 15 * time.Second
	}
	return &Exporter{config: config, getter: getter, browser: browser}
}

// Export exports the office document open in p.
func (e *Exporter) Export(ctx context.Context, p models.Page) (*Export, error) {
	target, ok := Match(p.URL)
	if !ok {
		return nil, ErrNotOffice
	}

	exportURL := target.ExportURL()
	name := FileName(e.title(ctx, p, target))

	data, err := e.download(ctx, exportURL)
	if err != nil {
		return nil, err
	}

	slog.Debug("exported office document", "family", target.Family, "id", target.ID, "size", len(data))
	return &Export{URL: target.BaseURL(), Name: name, Data: data}, nil
}

// download tries a direct credentialed GET, then an explicit Location
// follow, then the browser fallback.
func (e *Exporter) download(ctx context.Context, exportURL string) ([]byte, error) {
	resp, err := e.getter.Get(ctx, exportURL, fetcher.Credentialed)
	if err == nil {
		if isExport(resp) {
			return resp.Body, nil
		}
		if loc := resp.Header.Get("Location"); loc != "" {
			next, err := e.getter.Get(ctx, loc, fetcher.Credentialed)
			if err == nil && isExport(next) {
				return next.Body, nil
			}
		}
		err = fmt.Errorf("export returned HTTP %d", resp.Status)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if e.browser == nil {
		return nil, fmt.Errorf("failed to export %s: %w", exportURL, err)
	}

	slog.Debug("direct export failed, trying browser", "url", exportURL, "error", err)

	bctx, cancel := context.WithTimeout(ctx, e.config.BrowserTimeout)
	defer cancel()

	finalURL, err := e.browser.ResolveExport(bctx, exportURL)
	if err != nil {
		return nil, fmt.Errorf("browser export failed: %w", err)
	}
	resp, err = e.getter.Get(ctx, finalURL, fetcher.Credentialed)
	if err != nil {
		return nil, fmt.Errorf("failed to download export: %w", err)
	}
	if !isExport(resp) {
		return nil, fmt.Errorf("export download returned HTTP %d", resp.Status)
	}
	return resp.Body, nil
}

// isExport rejects sign-in pages served with 200.
func isExport(resp *fetcher.Response) bool {
	return resp.OK() && docmeta.IsPDF(resp.Body)
}

func (e *Exporter) title(ctx context.Context, p models.Page, target Target) string {
	if p.Title != "" {
		return p.Title
	}
	resp, err := e.getter.Get(ctx, p.URL, fetcher.Credentialed)
	if err == nil && resp.OK() {
		if t := pageTitle(resp.Body); t != "" {
			return t
		}
	}
	return target.defaultTitle()
}
