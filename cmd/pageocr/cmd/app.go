package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfenderov/pageocr/internal/autodetect"
	"github.com/mfenderov/pageocr/internal/command"
	"github.com/mfenderov/pageocr/internal/config"
	"github.com/mfenderov/pageocr/internal/fetcher"
	"github.com/mfenderov/pageocr/internal/index"
	"github.com/mfenderov/pageocr/internal/ocr"
	"github.com/mfenderov/pageocr/internal/office"
	"github.com/mfenderov/pageocr/internal/page"
	"github.com/mfenderov/pageocr/internal/persister"
	"github.com/mfenderov/pageocr/internal/pipeline"
	"github.com/mfenderov/pageocr/internal/resolver"
	"github.com/mfenderov/pageocr/internal/search"
	"github.com/mfenderov/pageocr/internal/storage"
)

// app is the wired application shared by the subcommands.
type app struct {
	index      *index.Index
	viewer     *resolver.ViewerCache
	pipeline   *pipeline.Pipeline
	detector   *autodetect.Detector
	dispatcher *command.Dispatcher
	search     *search.Client // nil if search is disabled
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	idx, err := index.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	a, err := wire(ctx, cfg, idx)
	if err != nil {
		idx.Close()
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, cfg config.Config, idx *index.Index) (*app, error) {
	f, err := fetcher.New(fetcher.Config{
		UserAgent:  cfg.Fetcher.UserAgent,
		Timeout:    cfg.Fetcher.Timeout,
		CookieFile: cfg.Fetcher.CookieFile,
		Headers:    cfg.Fetcher.Headers,
		MaxBytes:   cfg.Fetcher.MaxBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	viewer, err := resolver.NewViewerCache(cfg.ViewerCache.MaxEntries, cfg.ViewerCache.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create viewer cache: %w", err)
	}

	var browser office.Browser
	if cfg.Office.BrowserFallback {
		browser = &office.ChromeBrowser{
			UserAgent:   cfg.Fetcher.UserAgent,
			UserDataDir: cfg.Office.BrowserProfile,
		}
		slog.Info("office browser fallback enabled")
	}
	exporter := office.NewExporter(office.Config{BrowserTimeout: cfg.Office.ExportTimeout}, f, browser)

	inspector := page.NewInspector(page.Config{
		UserAgent: cfg.Fetcher.UserAgent,
		Timeout:   cfg.Fetcher.Timeout,
		Jar:       f.Jar(),
	})
	res := resolver.New(viewer, exporter, f, inspector)

	store, err := storage.Open(ctx, storage.Config{
		Driver:          cfg.Storage.Driver,
		Root:            cfg.Storage.Root,
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		viewer.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	ocrClient := ocr.New(ocr.Config{
		BaseURL:           cfg.OCR.BaseURL,
		APIKey:            cfg.OCR.APIKey,
		Model:             cfg.OCR.Model,
		RequestsPerSecond: cfg.OCR.RequestsPerSecond,
		Timeout:           cfg.OCR.Timeout,
	})
	if !ocrClient.HasCredential() {
		slog.Warn("no OCR API key configured; set PAGEOCR_OCR_API_KEY or MISTRAL_API_KEY")
	}

	a := &app{index: idx, viewer: viewer}

	// Interfaces stay nil unless search is enabled.
	var searchIndex pipeline.SearchIndex
	var searcher command.Searcher
	if cfg.Search.Enabled {
		sc, err := search.New(search.Config{
			Addresses: cfg.Search.Addresses,
			Index:     cfg.Search.Index,
			Username:  cfg.Search.Username,
			Password:  cfg.Search.Password,
		})
		if err != nil {
			viewer.Close()
			return nil, fmt.Errorf("failed to create search client: %w", err)
		}
		if err := sc.CreateIndex(ctx); err != nil {
			slog.Warn("search index unavailable", "error", err)
		}
		a.search = sc
		searchIndex, searcher = sc, sc
	}

	a.pipeline = pipeline.New(res, f, ocrClient, persister.New(store), idx, searchIndex)
	a.detector = autodetect.New(res, f, idx, cfg.AutoDetect.QueueSize)
	a.dispatcher = command.NewDispatcher(command.Deps{
		Runner:   a.pipeline,
		Resolver: res,
		Index:    idx,
		Detector: a.detector,
		Search:   searcher,
	})
	return a, nil
}

func (a *app) Close() {
	a.viewer.Close()
	if err := a.index.Close(); err != nil {
		slog.Warn("failed to close index", "error", err)
	}
}
