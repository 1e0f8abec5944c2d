package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfenderov/pageocr/internal/apperr"
	"github.com/mfenderov/pageocr/internal/pipeline"
	"github.com/mfenderov/pageocr/internal/resolver"
	"github.com/mfenderov/pageocr/internal/search"
	"github.com/mfenderov/pageocr/pkg/models"
)

// Runner runs transcriptions. *pipeline.Pipeline satisfies it.
type Runner interface {
	RunOcr(ctx context.Context, page models.Page) (*pipeline.Outcome, error)
	HasCredential() bool
}

// Resolver previews page resources and records viewer responses.
// *resolver.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, p models.Page, mode resolver.Mode) (*models.ResolvedResource, error)
	Record(pageContext string, resp resolver.ObservedResponse) bool
}

// Index is the entry index. *index.Index satisfies it.
type Index interface {
	Lookup(ctx context.Context, d models.Digest) (*models.Entry, error)
	Remove(ctx context.Context, d models.Digest) error
	EntryForURL(ctx context.Context, url string) (*models.Entry, error)
	List(ctx context.Context) ([]models.Entry, error)
	IncludeImages(ctx context.Context) (bool, error)
	SetIncludeImages(ctx context.Context, include bool) error
	Prompt(ctx context.Context, pageContext string) (*models.PendingPrompt, error)
	ClearPrompt(ctx context.Context, pageContext string) error
}

// Detector queues navigations for auto-detection. *autodetect.Detector satisfies it.
type Detector interface {
	Enqueue(p models.Page) bool
}

// Searcher is the optional transcript search index. *search.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]search.Hit, error)
	Remove(ctx context.Context, digest models.Digest) error
}

// Deps holds the dispatcher's collaborators. Detector and Search may be nil.
type Deps struct {
	Runner   Runner
	Resolver Resolver
	Index    Index
	Detector Detector
	Search   Searcher
}

// Dispatcher executes commands.
type Dispatcher struct {
	deps Deps
	now  func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{deps: deps, now: time.Now}
}

// Dispatch executes cmd and returns its response.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (any, error) {
	switch c := cmd.(type) {
	case Init:
		return d.init(ctx, c)
	case RunOcr:
		return d.runOcr(ctx, c)
	case OpenArtifact:
		return d.openArtifact(ctx, c)
	case ListEntries:
		return d.listEntries(ctx)
	case DeleteEntry:
		return d.deleteEntry(ctx, c)
	case GetTranscript:
		return d.getTranscript(ctx, c)
	case SetImagePreference:
		if err := d.deps.Index.SetIncludeImages(ctx, c.Include); err != nil {
			return nil, err
		}
		return Empty{}, nil
	case ClearAutoPrompt:
		if err := d.deps.Index.ClearPrompt(ctx, c.PageContext); err != nil {
			return nil, err
		}
		return Empty{}, nil
	case ObserveResponse:
		return d.observe(c), nil
	case NavigationComplete:
		if d.deps.Detector == nil {
			return NavigationResponse{}, nil
		}
		return NavigationResponse{Queued: d.deps.Detector.Enqueue(c.Page)}, nil
	case SearchTranscripts:
		return d.search(ctx, c)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func (d *Dispatcher) init(ctx context.Context, c Init) (*InitResponse, error) {
	resp := &InitResponse{HasCredential: d.deps.Runner.HasCredential()}

	res, err := d.deps.Resolver.Resolve(ctx, c.Page, resolver.ModePreview)
	switch {
	case err == nil:
		resp.Resource = res
		if res.Strategy == resolver.StrategyEmbedded {
			resp.EmbeddedURL = res.URL
		}
		existing, err := d.deps.Index.EntryForURL(ctx, res.URL)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			resp.Existing = &ExistingRef{Digest: existing.Digest}
		}
	case resolver.IsNotFound(err):
	default:
		return nil, err
	}

	entries, err := d.summaries(ctx)
	if err != nil {
		return nil, err
	}
	resp.Entries = entries

	if resp.IncludeImages, err = d.deps.Index.IncludeImages(ctx); err != nil {
		return nil, err
	}

	prompt, err := d.deps.Index.Prompt(ctx, c.Page.Context)
	if err != nil {
		return nil, err
	}
	if prompt != nil && prompt.PageURL == c.Page.URL {
		resp.PendingPrompt = prompt
	}
	return resp, nil
}

func (d *Dispatcher) runOcr(ctx context.Context, c RunOcr) (*RunOcrResponse, error) {
	out, err := d.deps.Runner.RunOcr(ctx, c.Page)
	if resolver.IsNotFound(err) {
		return &RunOcrResponse{Status: StatusNoResource}, nil
	}
	if err != nil {
		return nil, err
	}
	entry := out.Entry.Summary()
	return &RunOcrResponse{Status: string(out.Status), Digest: out.Digest, Entry: &entry}, nil
}

func (d *Dispatcher) openArtifact(ctx context.Context, c OpenArtifact) (*OpenArtifactResponse, error) {
	entry, err := d.entry(ctx, c.Digest)
	if err != nil {
		return nil, err
	}
	return &OpenArtifactResponse{
		Folder:         entry.StorageFolder,
		TranscriptPath: entry.Files.Transcript.Path,
		ExternalID:     entry.Files.Transcript.ExternalID,
	}, nil
}

func (d *Dispatcher) listEntries(ctx context.Context) (*EntriesResponse, error) {
	entries, err := d.summaries(ctx)
	if err != nil {
		return nil, err
	}
	return &EntriesResponse{Entries: entries}, nil
}

func (d *Dispatcher) deleteEntry(ctx context.Context, c DeleteEntry) (Empty, error) {
	if err := d.deps.Index.Remove(ctx, c.Digest); err != nil {
		return Empty{}, err
	}
	if d.deps.Search != nil {
		if err := d.deps.Search.Remove(ctx, c.Digest); err != nil {
			slog.Warn("Failed to remove transcript from search index", "digest", c.Digest.Short(), "error", err)
		}
	}
	return Empty{}, nil
}

func (d *Dispatcher) getTranscript(ctx context.Context, c GetTranscript) (*TranscriptResponse, error) {
	entry, err := d.entry(ctx, c.Digest)
	if err != nil {
		return nil, err
	}
	return &TranscriptResponse{Text: entry.TranscriptText}, nil
}

func (d *Dispatcher) observe(c ObserveResponse) ObserveResponseResult {
	recorded := d.deps.Resolver.Record(c.PageContext, resolver.ObservedResponse{
		URL:                c.URL,
		ContentType:        c.ContentType,
		ContentDisposition: c.ContentDisposition,
		At:                 d.now(),
	})
	return ObserveResponseResult{Recorded: recorded}
}

func (d *Dispatcher) search(ctx context.Context, c SearchTranscripts) (*EntriesResponse, error) {
	if d.deps.Search == nil {
		return nil, &apperr.ConfigurationError{Setting: "search.enabled", Message: "transcript search is disabled"}
	}
	hits, err := d.deps.Search.Search(ctx, c.Query, c.Limit)
	if err != nil {
		return nil, err
	}

	entries := make([]models.Entry, 0, len(hits))
	for _, h := range hits {
		entry, err := d.deps.Index.Lookup(ctx, h.Digest)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		entries = append(entries, entry.Summary())
	}
	return &EntriesResponse{Entries: entries}, nil
}

func (d *Dispatcher) entry(ctx context.Context, digest models.Digest) (*models.Entry, error) {
	entry, err := d.deps.Index.Lookup(ctx, digest)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrEntryNotFound, digest)
	}
	return entry, nil
}

func (d *Dispatcher) summaries(ctx context.Context) ([]models.Entry, error) {
	entries, err := d.deps.Index.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Summary()
	}
	return out, nil
}
