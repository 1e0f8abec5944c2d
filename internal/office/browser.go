package office

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ChromeBrowser resolves exports with a headless Chrome.
type ChromeBrowser struct {
	UserAgent   string
	UserDataDir string // profile carrying the user's session
}

// ResolveExport navigates to exportURL and returns the URL of the first
// response that serves a PDF.
func (b *ChromeBrowser) ResolveExport(ctx context.Context, exportURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.UserAgent))
	}
	if b.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(b.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var (
		mu       sync.Mutex
		finalURL string
	)
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok {
			if strings.Contains(strings.ToLower(e.Response.MimeType), "pdf") {
				mu.Lock()
				if finalURL == "" {
					finalURL = e.Response.URL
				}
				mu.Unlock()
			}
		}
	})

	// downloads abort the navigation, so the error only matters when no
	// PDF response was seen
	navErr := chromedp.Run(browserCtx, network.Enable(), chromedp.Navigate(exportURL))

	mu.Lock()
	defer mu.Unlock()
	if finalURL != "" {
		return finalURL, nil
	}
	if navErr != nil {
		slog.Debug("browser navigation failed", "url", exportURL, "error", navErr)
		return "", navErr
	}
	return "", errors.New("no PDF response observed")
}
