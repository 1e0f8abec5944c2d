package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mfenderov/pageocr/internal/apperr"
	"github.com/mfenderov/pageocr/internal/fetcher"
	"github.com/mfenderov/pageocr/internal/index"
	"github.com/mfenderov/pageocr/internal/ocr"
	"github.com/mfenderov/pageocr/internal/persister"
	"github.com/mfenderov/pageocr/internal/pipeline/mocks"
	"github.com/mfenderov/pageocr/internal/resolver"
	"github.com/mfenderov/pageocr/internal/storage"
	"github.com/mfenderov/pageocr/pkg/models"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Title (Quarterly Report) >>\nendobj\n%%EOF")

type fixture struct {
	resolver *mocks.MockResolver
	fetcher  *mocks.MockFetcher
	ocr      *mocks.MockTranscriber
	search   *mocks.MockSearchIndex
	index    *index.Index
	fs       afero.Fs
	pipeline *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	idx, err := index.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	f := &fixture{
		resolver: mocks.NewMockResolver(ctrl),
		fetcher:  mocks.NewMockFetcher(ctrl),
		ocr:      mocks.NewMockTranscriber(ctrl),
		search:   mocks.NewMockSearchIndex(ctrl),
		index:    idx,
		fs:       afero.NewMemMapFs(),
	}
	f.ocr.EXPECT().HasCredential().Return(true).AnyTimes()
	f.pipeline = New(f.resolver, f.fetcher, f.ocr, persister.New(storage.NewFS(f.fs, "Mistral-OCR")), idx, f.search)
	return f
}

func oneResult(md string) *ocr.Result {
	return &ocr.Result{Pages: []ocr.Page{{Index: 0, Markdown: md}}}
}

func TestRunOcr_CreatesEntry(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	page := models.Page{Context: "tab-1", URL: "https://x.test/files/report.pdf"}
	res := &models.ResolvedResource{URL: page.URL, NameHint: "report.pdf", Kind: models.KindDocument, Strategy: resolver.StrategyDirect}

	f.resolver.EXPECT().Resolve(gomock.Any(), page, resolver.ModeFull).Return(res, nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), page.URL).Return(&fetcher.Content{URL: page.URL, Data: pdfBytes, ContentType: "application/pdf"}, nil)
	f.ocr.EXPECT().Transcribe(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req ocr.Request) (*ocr.Result, error) {
		assert.Equal(t, models.KindDocument, req.Kind)
		assert.Equal(t, "report.pdf", req.NameHint)
		assert.True(t, req.IncludeImages)
		return oneResult("# Quarterly"), nil
	})
	f.search.EXPECT().IndexEntry(gomock.Any(), gomock.Any()).Return(nil)

	out, err := f.pipeline.RunOcr(ctx, page)
	require.NoError(t, err)

	digest := models.ComputeDigest(pdfBytes)
	assert.Equal(t, StatusCreated, out.Status)
	assert.Equal(t, digest, out.Digest)
	assert.Equal(t, "Quarterly Report", out.Entry.DisplayName)
	assert.Equal(t, page.URL, out.Entry.SourceURL)
	assert.Equal(t, 1, out.Entry.PageCount)

	stored, err := f.index.Lookup(ctx, digest)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "# Quarterly\n\n", stored.TranscriptText)

	linked, ok, err := f.index.DigestForURL(ctx, page.URL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, digest, linked)
}

func TestRunOcr_SameBytesAlreadyExists(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	first := models.Page{URL: "https://x.test/a.pdf"}
	second := models.Page{URL: "https://mirror.test/copy.pdf"}
	for _, p := range []models.Page{first, second} {
		f.resolver.EXPECT().Resolve(gomock.Any(), p, resolver.ModeFull).
			Return(&models.ResolvedResource{URL: p.URL, Kind: models.KindDocument, Strategy: resolver.StrategyDirect}, nil)
		f.fetcher.EXPECT().Fetch(gomock.Any(), p.URL).Return(&fetcher.Content{Data: pdfBytes}, nil)
	}
	f.ocr.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Return(oneResult("text"), nil).Times(1)
	f.search.EXPECT().IndexEntry(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	out, err := f.pipeline.RunOcr(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, out.Status)

	out2, err := f.pipeline.RunOcr(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyExists, out2.Status)
	assert.Equal(t, out.Digest, out2.Digest)
	assert.Equal(t, second.URL, out2.Entry.SourceURL, "touch refreshes the source URL")

	entries, err := f.index.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunOcr_ProvidedBytesSkipFetch(t *testing.T) {
	f := newFixture(t)
	page := models.Page{URL: "https://docs.google.com/document/d/abc/edit"}
	res := &models.ResolvedResource{
		URL:      "https://docs.google.com/document/d/abc/export?format=pdf",
		NameHint: "Plan.pdf",
		Kind:     models.KindDocument,
		Strategy: resolver.StrategyOffice,
		Provided: pdfBytes,
	}

	f.resolver.EXPECT().Resolve(gomock.Any(), page, resolver.ModeFull).Return(res, nil)
	f.ocr.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Return(oneResult("plan"), nil)
	f.search.EXPECT().IndexEntry(gomock.Any(), gomock.Any()).Return(nil)

	out, err := f.pipeline.RunOcr(t.Context(), page)
	require.NoError(t, err)
	assert.Equal(t, "Plan.pdf", out.Entry.DisplayName, "office exports keep their export name")
}

func TestRunOcr_NoResource(t *testing.T) {
	f := newFixture(t)
	page := models.Page{URL: "https://x.test/article"}
	f.resolver.EXPECT().Resolve(gomock.Any(), page, resolver.ModeFull).Return(nil, apperr.ErrNotFound)

	_, err := f.pipeline.RunOcr(t.Context(), page)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRunOcr_MissingCredential(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTranscriber(ctrl)
	tr.EXPECT().HasCredential().Return(false)
	p := New(mocks.NewMockResolver(ctrl), mocks.NewMockFetcher(ctrl), tr, nil, nil, nil)

	_, err := p.RunOcr(t.Context(), models.Page{URL: "https://x.test/a.pdf"})
	assert.True(t, apperr.IsConfiguration(err), "got %v", err)
}

func TestRunOcr_BackendFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	page := models.Page{URL: "https://x.test/a.pdf"}
	backendErr := &apperr.BackendError{Op: "ocr", Status: 500, Body: "boom"}

	f.resolver.EXPECT().Resolve(gomock.Any(), page, resolver.ModeFull).
		Return(&models.ResolvedResource{URL: page.URL, Kind: models.KindDocument}, nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), page.URL).Return(&fetcher.Content{Data: pdfBytes}, nil)
	f.ocr.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Return(nil, backendErr)

	_, err := f.pipeline.RunOcr(ctx, page)
	assert.True(t, apperr.IsBackend(err))

	entry, err := f.index.Lookup(ctx, models.ComputeDigest(pdfBytes))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRunOcr_SearchFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	page := models.Page{URL: "https://x.test/a.pdf"}

	f.resolver.EXPECT().Resolve(gomock.Any(), page, resolver.ModeFull).
		Return(&models.ResolvedResource{URL: page.URL, Kind: models.KindDocument}, nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), page.URL).Return(&fetcher.Content{Data: pdfBytes}, nil)
	f.ocr.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Return(oneResult("x"), nil)
	f.search.EXPECT().IndexEntry(gomock.Any(), gomock.Any()).Return(errors.New("es down"))

	out, err := f.pipeline.RunOcr(t.Context(), page)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, out.Status)
}

func TestRunOcr_ImagePreferenceOff(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.index.SetIncludeImages(t.Context(), false))
	page := models.Page{URL: "https://x.test/scan.png"}

	f.resolver.EXPECT().Resolve(gomock.Any(), page, resolver.ModeFull).
		Return(&models.ResolvedResource{URL: page.URL, NameHint: "scan.png", Kind: models.KindImage}, nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), page.URL).Return(&fetcher.Content{Data: []byte("png bytes"), ContentType: "image/png"}, nil)
	f.ocr.EXPECT().Transcribe(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req ocr.Request) (*ocr.Result, error) {
		assert.False(t, req.IncludeImages)
		assert.Equal(t, "image/png", req.ContentType)
		return oneResult("scan"), nil
	})
	f.search.EXPECT().IndexEntry(gomock.Any(), gomock.Any()).Return(nil)

	out, err := f.pipeline.RunOcr(t.Context(), page)
	require.NoError(t, err)
	assert.Equal(t, "scan.png", out.Entry.DisplayName)
}

func TestRunOcr_ConcurrentCallsTranscribeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	pageA := models.Page{Context: "a", URL: "https://x.test/a.pdf"}
	pageB := models.Page{Context: "b", URL: "https://y.test/b.pdf"}
	for _, p := range []models.Page{pageA, pageB} {
		f.resolver.EXPECT().Resolve(gomock.Any(), p, resolver.ModeFull).
			Return(&models.ResolvedResource{URL: p.URL, Kind: models.KindDocument}, nil)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	fetchedB := make(chan struct{})

	f.fetcher.EXPECT().Fetch(gomock.Any(), pageA.URL).Return(&fetcher.Content{Data: pdfBytes}, nil)
	f.fetcher.EXPECT().Fetch(gomock.Any(), pageB.URL).DoAndReturn(func(context.Context, string) (*fetcher.Content, error) {
		close(fetchedB)
		return &fetcher.Content{Data: pdfBytes}, nil
	})
	f.ocr.EXPECT().Transcribe(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, ocr.Request) (*ocr.Result, error) {
		close(started)
		<-release
		return oneResult("once"), nil
	}).Times(1)
	f.search.EXPECT().IndexEntry(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	var wg sync.WaitGroup
	outcomes := make([]*Outcome, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[0], errs[0] = f.pipeline.RunOcr(ctx, pageA)
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[1], errs[1] = f.pipeline.RunOcr(ctx, pageB)
	}()
	<-fetchedB
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, StatusCreated, outcomes[0].Status)
	assert.Equal(t, StatusAlreadyExists, outcomes[1].Status)
	assert.Equal(t, outcomes[0].Digest, outcomes[1].Digest)

	linked, ok, err := f.index.DigestForURL(ctx, pageB.URL)
	require.NoError(t, err)
	assert.True(t, ok, "joining caller links its URL")
	assert.Equal(t, outcomes[0].Digest, linked)
}

func TestRunOcr_ProbeThenDirectEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(pdfBytes)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTranscriber(ctrl)
	tr.EXPECT().HasCredential().Return(true).AnyTimes()
	tr.EXPECT().Transcribe(gomock.Any(), gomock.Any()).Return(oneResult("# Quarterly"), nil).Times(1)

	idx, err := index.Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	fetch, err := fetcher.New(fetcher.Config{})
	require.NoError(t, err)
	p := New(
		resolver.New(nil, nil, fetch, nil),
		fetch,
		tr,
		persister.New(storage.NewFS(afero.NewMemMapFs(), "Mistral-OCR")),
		idx,
		nil,
	)
	ctx := t.Context()

	out, err := p.RunOcr(ctx, models.Page{URL: srv.URL + "/doc"})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, out.Status)
	assert.Equal(t, resolver.StrategyProbe, out.Resource.Strategy)
	assert.Equal(t, srv.URL+"/doc.pdf", out.Resource.URL)
	assert.Equal(t, models.ComputeDigest(pdfBytes), out.Digest)

	again, err := p.RunOcr(ctx, models.Page{URL: srv.URL + "/doc.pdf"})
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyExists, again.Status)
	assert.Equal(t, resolver.StrategyDirect, again.Resource.Strategy)
	assert.Equal(t, out.Digest, again.Digest)
}
