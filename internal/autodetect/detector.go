// Package autodetect notices when a page being viewed has already been
// transcribed and leaves a prompt for the client.
package autodetect

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mfenderov/pageocr/internal/apperr"
	"github.com/mfenderov/pageocr/internal/events"
	"github.com/mfenderov/pageocr/internal/fetcher"
	"github.com/mfenderov/pageocr/internal/resolver"
	"github.com/mfenderov/pageocr/pkg/models"
)

// Resolver picks the resource of a page.
type Resolver interface {
	Resolve(ctx context.Context, p models.Page, mode resolver.Mode) (*models.ResolvedResource, error)
}

// Fetcher downloads resources.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Content, error)
}

// Index is the read side of the entry index plus prompt storage.
type Index interface {
	Lookup(ctx context.Context, d models.Digest) (*models.Entry, error)
	DigestForURL(ctx context.Context, url string) (models.Digest, bool, error)
	SetPrompt(ctx context.Context, p *models.PendingPrompt) error
}

// Detector processes navigation events in the background. It never writes
// entries and never calls the OCR backend.
type Detector struct {
	resolver Resolver
	fetcher  Fetcher
	index    Index
	queue    chan events.NavigationCompleteEvent
	now      func() time.Time
}

// New creates a Detector whose queue holds up to queueSize pending events.
func New(r Resolver, f Fetcher, idx Index, queueSize int) *Detector {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Detector{
		resolver: r,
		fetcher:  f,
		index:    idx,
		queue:    make(chan events.NavigationCompleteEvent, queueSize),
		now:      time.Now,
	}
}

// Enqueue queues a navigation for detection without blocking. It reports
// false if the queue is full and the event was dropped.
func (d *Detector) Enqueue(p models.Page) bool {
	select {
	case d.queue <- events.NavigationCompleteEvent{Page: p, Timestamp: d.now()}:
		return true
	default:
		slog.Warn("Auto-detect queue full, dropping navigation", "url", p.URL)
		return false
	}
}

// Run processes queued navigations until ctx is done.
func (d *Detector) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.queue:
			d.Detect(ctx, ev.Page)
		}
	}
}

// Detect checks whether the resource of p already has an Entry and, if so,
// stores a PendingPrompt for p's context and returns it. All failures are
// logged and yield nil.
func (d *Detector) Detect(ctx context.Context, p models.Page) *models.PendingPrompt {
	digest, ok := d.digestFor(ctx, p)
	if !ok {
		return nil
	}

	entry, err := d.index.Lookup(ctx, digest)
	if err != nil {
		slog.Debug("Auto-detect lookup failed", "digest", digest.Short(), "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}

	prompt := &models.PendingPrompt{
		ID:          uuid.NewString(),
		Digest:      digest,
		PageContext: p.Context,
		PageURL:     p.URL,
		At:          d.now(),
	}
	if err := d.index.SetPrompt(ctx, prompt); err != nil {
		slog.Debug("Failed to store prompt", "digest", digest.Short(), "error", err)
		return nil
	}
	slog.Info("Viewed page already transcribed", "digest", digest.Short(), "url", p.URL, "name", entry.DisplayName)
	return prompt
}

func (d *Detector) digestFor(ctx context.Context, p models.Page) (models.Digest, bool) {
	res, err := d.resolver.Resolve(ctx, p, resolver.ModeDetect)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			slog.Debug("Auto-detect resolution failed", "url", p.URL, "error", err)
		}
		return "", false
	}

	if res.Provided != nil {
		return models.ComputeDigest(res.Provided), true
	}

	if digest, ok, err := d.index.DigestForURL(ctx, res.URL); err == nil && ok {
		return digest, true
	}

	content, err := d.fetcher.Fetch(ctx, res.URL)
	if err != nil {
		slog.Debug("Auto-detect fetch failed", "url", res.URL, "error", err)
		return "", false
	}
	return models.ComputeDigest(content.Data), true
}
