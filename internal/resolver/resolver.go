// Package resolver decides which resource of a page should be transcribed.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mfenderov/pageocr/internal/apperr"
	"github.com/mfenderov/pageocr/internal/docmeta"
	"github.com/mfenderov/pageocr/internal/fetcher"
	"github.com/mfenderov/pageocr/internal/office"
	"github.com/mfenderov/pageocr/internal/page"
	"github.com/mfenderov/pageocr/pkg/models"
)

// Strategy names, in priority order.
const (
	StrategyViewer   = "viewer"
	StrategyOffice   = "office"
	StrategyDirect   = "direct"
	StrategyProbe    = "probe"
	StrategyEmbedded = "embedded"
)

// Mode selects which strategies run.
type Mode int

const (
	// ModeFull runs every strategy.
	ModeFull Mode = iota
	// ModeDetect skips the viewer cache. Used for navigation detection.
	ModeDetect
	// ModePreview reports office documents without exporting them.
	ModePreview
)

// Getter issues HTTP GETs. *fetcher.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string, mode fetcher.Mode) (*fetcher.Response, error)
}

// Exporter exports office documents. *office.Exporter satisfies it.
type Exporter interface {
	Export(ctx context.Context, p models.Page) (*office.Export, error)
}

// EmbedSource enumerates a page's embedded elements. *page.Inspector satisfies it.
type EmbedSource interface {
	Candidates(ctx context.Context, p models.Page) ([]models.EmbedCandidate, error)
}

type strategyFunc func(ctx context.Context, p models.Page, mode Mode) (*models.ResolvedResource, error)

type strategy struct {
	name string
	run  strategyFunc
}

// Resolver runs the resolution strategy chain.
type Resolver struct {
	viewer   *ViewerCache
	exporter Exporter
	getter   Getter
	embeds   EmbedSource
	chain    []strategy
}

// New creates a Resolver. Any collaborator may be nil, which disables the
// strategies that need it.
func New(viewer *ViewerCache, exporter Exporter, getter Getter, embeds EmbedSource) *Resolver {
	r := &Resolver{viewer: viewer, exporter: exporter, getter: getter, embeds: embeds}
	r.chain = []strategy{
		{StrategyViewer, r.fromViewer},
		{StrategyOffice, r.fromOffice},
		{StrategyDirect, r.fromDirect},
		{StrategyProbe, r.fromProbe},
		{StrategyEmbedded, r.fromEmbedded},
	}
	return r
}

// Resolve returns the resource to transcribe for p, or apperr.ErrNotFound.
// Strategy failures are logged and treated as "nothing found"; only
// context cancellation aborts the chain.
func (r *Resolver) Resolve(ctx context.Context, p models.Page, mode Mode) (*models.ResolvedResource, error) {
	for _, s := range r.chain {
		if s.name == StrategyViewer && mode == ModeDetect {
			continue
		}
		res, err := s.run(ctx, p, mode)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			slog.Debug("resolution strategy failed", "strategy", s.name, "url", p.URL, "error", err)
			continue
		}
		if res != nil {
			res.Strategy = s.name
			slog.Debug("resolved resource", "strategy", s.name, "url", res.URL, "kind", res.Kind)
			return res, nil
		}
	}
	return nil, apperr.ErrNotFound
}

// Record stores a document response observed for a page context.
func (r *Resolver) Record(pageContext string, resp ObservedResponse) bool {
	if r.viewer == nil {
		return false
	}
	return r.viewer.Record(pageContext, resp)
}

func (r *Resolver) fromViewer(_ context.Context, p models.Page, _ Mode) (*models.ResolvedResource, error) {
	if r.viewer == nil || !IsViewerURL(p.URL) {
		return nil, nil
	}
	observed, ok := r.viewer.Latest(p.Context)
	if !ok {
		return nil, nil
	}
	name := "document.pdf"
	if kind, n, ok := Classify(observed.URL); ok && kind == models.KindDocument {
		name = n
	}
	return &models.ResolvedResource{
		URL:                observed.URL,
		NameHint:           name,
		Kind:               models.KindDocument,
		ContentDisposition: observed.ContentDisposition,
	}, nil
}

func (r *Resolver) fromOffice(ctx context.Context, p models.Page, mode Mode) (*models.ResolvedResource, error) {
	target, ok := office.Match(p.URL)
	if !ok {
		return nil, nil
	}
	if mode == ModePreview || r.exporter == nil {
		return &models.ResolvedResource{
			URL:      target.BaseURL(),
			NameHint: "document.pdf",
			Kind:     models.KindDocument,
		}, nil
	}
	exp, err := r.exporter.Export(ctx, p)
	if err != nil {
		return nil, err
	}
	return &models.ResolvedResource{
		URL:      exp.URL,
		NameHint: exp.Name,
		Kind:     models.KindDocument,
		Provided: exp.Data,
	}, nil
}

func (r *Resolver) fromDirect(_ context.Context, p models.Page, _ Mode) (*models.ResolvedResource, error) {
	primary := PrimaryURL(p.URL)
	kind, name, ok := Classify(primary)
	if !ok {
		return nil, nil
	}
	return &models.ResolvedResource{URL: primary, NameHint: name, Kind: kind}, nil
}

func (r *Resolver) fromProbe(ctx context.Context, p models.Page, _ Mode) (*models.ResolvedResource, error) {
	if r.getter == nil {
		return nil, nil
	}
	probeURL, ok := ProbeURL(PrimaryURL(p.URL))
	if !ok {
		return nil, nil
	}
	resp, err := r.getter.Get(ctx, probeURL, fetcher.Credentialed)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, nil
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/pdf") && !docmeta.IsPDF(resp.Body) {
		return nil, nil
	}
	_, name, _ := Classify(probeURL)
	return &models.ResolvedResource{
		URL:                probeURL,
		NameHint:           name,
		Kind:               models.KindDocument,
		Provided:           resp.Body,
		ContentDisposition: resp.Header.Get("Content-Disposition"),
	}, nil
}

func (r *Resolver) fromEmbedded(ctx context.Context, p models.Page, _ Mode) (*models.ResolvedResource, error) {
	if r.embeds == nil {
		return nil, nil
	}
	candidates, err := r.embeds.Candidates(ctx, p)
	if err != nil {
		return nil, err
	}
	docURL, ok := page.SingleDocumentURL(p.URL, candidates)
	if !ok {
		return nil, nil
	}
	name := "document.pdf"
	if _, n, ok := Classify(docURL); ok {
		name = n
	}
	return &models.ResolvedResource{URL: docURL, NameHint: name, Kind: models.KindDocument}, nil
}

// IsNotFound reports a resolution miss.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
