// Package pipeline turns a viewed page into a persisted transcription:
// resolve, fetch, hash, deduplicate, transcribe, persist.
package pipeline

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mocks.go -package=mocks github.com/mfenderov/pageocr/internal/pipeline Resolver,Fetcher,Transcriber,SearchIndex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mfenderov/pageocr/internal/apperr"
	"github.com/mfenderov/pageocr/internal/fetcher"
	"github.com/mfenderov/pageocr/internal/index"
	"github.com/mfenderov/pageocr/internal/ocr"
	"github.com/mfenderov/pageocr/internal/resolver"
	"github.com/mfenderov/pageocr/pkg/models"
)

// Resolver picks the resource of a page. *resolver.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, p models.Page, mode resolver.Mode) (*models.ResolvedResource, error)
}

// Fetcher downloads resources. *fetcher.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Content, error)
}

// Transcriber runs OCR. *ocr.Client satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, req ocr.Request) (*ocr.Result, error)
	HasCredential() bool
}

// Persister writes OCR results. *persister.Persister satisfies it.
type Persister interface {
	Persist(ctx context.Context, result *ocr.Result, digest models.Digest, includeImages bool) (*models.Entry, error)
}

// Index is the content-addressed entry index. *index.Index satisfies it.
type Index interface {
	Lookup(ctx context.Context, d models.Digest) (*models.Entry, error)
	Put(ctx context.Context, e *models.Entry) error
	Touch(ctx context.Context, url string, d models.Digest) error
	IncludeImages(ctx context.Context) (bool, error)
}

// SearchIndex receives new entries for full-text search. *search.Client satisfies it.
type SearchIndex interface {
	IndexEntry(ctx context.Context, entry *models.Entry) error
}

// Status is the outcome of RunOcr.
type Status string

const (
	StatusCreated       Status = "created"
	StatusAlreadyExists Status = "already_exists"
)

// Outcome is the result of RunOcr.
type Outcome struct {
	Status   Status
	Digest   models.Digest
	Entry    *models.Entry
	Resource *models.ResolvedResource
}

// Pipeline orchestrates a transcription run.
type Pipeline struct {
	resolver  Resolver
	fetcher   Fetcher
	ocr       Transcriber
	persister Persister
	index     Index
	search    SearchIndex // nil if search is disabled

	flights singleflight.Group
	now     func() time.Time
}

// New creates a Pipeline. search may be nil.
func New(r Resolver, f Fetcher, t Transcriber, p Persister, idx Index, search SearchIndex) *Pipeline {
	return &Pipeline{
		resolver:  r,
		fetcher:   f,
		ocr:       t,
		persister: p,
		index:     idx,
		search:    search,
		now:       time.Now,
	}
}

// HasCredential reports whether the OCR backend can be called.
func (p *Pipeline) HasCredential() bool {
	return p.ocr.HasCredential()
}

// RunOcr transcribes the resource of page, unless a transcription of the same
// bytes already exists. A page without a resource yields apperr.ErrNotFound.
//
// At most one transcription per digest is in flight. Callers that join a
// running flight get StatusAlreadyExists once it completes.
func (p *Pipeline) RunOcr(ctx context.Context, page models.Page) (*Outcome, error) {
	if !p.ocr.HasCredential() {
		return nil, &apperr.ConfigurationError{Setting: "ocr.api_key", Message: "no API key configured"}
	}

	res, err := p.resolver.Resolve(ctx, page, resolver.ModeFull)
	if err != nil {
		return nil, err
	}

	data, contentType, disposition := res.Provided, "", res.ContentDisposition
	if data == nil {
		content, err := p.fetcher.Fetch(ctx, res.URL)
		if err != nil {
			return nil, err
		}
		data, contentType = content.Data, content.ContentType
		if content.ContentDisposition != "" {
			disposition = content.ContentDisposition
		}
	}

	digest := models.ComputeDigest(data)
	log := slog.With("digest", digest.Short(), "url", res.URL)

	if out, err := p.existing(ctx, res, digest); out != nil || err != nil {
		log.Info("Transcription already exists")
		return out, err
	}

	ran := false
	ch := p.flights.DoChan(string(digest), func() (interface{}, error) {
		ran = true
		return p.transcribe(context.WithoutCancel(ctx), res, data, contentType, disposition, digest)
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.Err != nil {
		return nil, r.Err
	}

	out := r.Val.(*Outcome)
	if !ran {
		log.Debug("Joined in-flight transcription")
		return p.existing(ctx, res, digest)
	}
	return out, nil
}

// existing returns an AlreadyExists outcome if digest has an Entry, linking
// the resource URL to it.
func (p *Pipeline) existing(ctx context.Context, res *models.ResolvedResource, digest models.Digest) (*Outcome, error) {
	entry, err := p.index.Lookup(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", digest.Short(), err)
	}
	if entry == nil {
		return nil, nil
	}
	if err := p.index.Touch(ctx, res.URL, digest); err != nil {
		return nil, fmt.Errorf("failed to link %s: %w", res.URL, err)
	}
	if touched, err := p.index.Lookup(ctx, digest); err == nil && touched != nil {
		entry = touched
	}
	return &Outcome{Status: StatusAlreadyExists, Digest: digest, Entry: entry, Resource: res}, nil
}

func (p *Pipeline) transcribe(ctx context.Context, res *models.ResolvedResource, data []byte, contentType, disposition string, digest models.Digest) (*Outcome, error) {
	if out, err := p.existing(ctx, res, digest); out != nil || err != nil {
		return out, err
	}

	includeImages, err := p.index.IncludeImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read image preference: %w", err)
	}

	name := resolver.DisplayName(res, data, disposition)
	start := p.now()
	slog.Info("Starting OCR", "digest", digest.Short(), "kind", res.Kind, "strategy", res.Strategy, "name", name)

	result, err := p.ocr.Transcribe(ctx, ocr.Request{
		Data:          data,
		Kind:          res.Kind,
		NameHint:      res.NameHint,
		IncludeImages: includeImages,
		ContentType:   contentType,
		URL:           res.URL,
	})
	if err != nil {
		return nil, err
	}

	entry, err := p.persister.Persist(ctx, result, digest, includeImages)
	if err != nil {
		return nil, err
	}
	now := p.now()
	entry.DisplayName = name
	entry.SourceURL = res.URL
	entry.CreatedAt = now
	entry.UpdatedAt = now

	if err := p.index.Put(ctx, entry); err != nil {
		if errors.Is(err, index.ErrExists) {
			return p.existing(ctx, res, digest)
		}
		return nil, fmt.Errorf("failed to store entry: %w", err)
	}
	if err := p.index.Touch(ctx, res.URL, digest); err != nil {
		return nil, fmt.Errorf("failed to link %s: %w", res.URL, err)
	}

	if p.search != nil {
		if err := p.search.IndexEntry(ctx, entry); err != nil {
			slog.Warn("Failed to index transcript for search", "digest", digest.Short(), "error", err)
		}
	}

	slog.Info("OCR complete",
		"digest", digest.Short(),
		"pages", entry.PageCount,
		"images", entry.ImageCount,
		"duration", now.Sub(start).Round(time.Millisecond),
	)
	return &Outcome{Status: StatusCreated, Digest: digest, Entry: entry, Resource: res}, nil
}
