package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/mfenderov/pageocr/internal/apperr"
	"golang.org/x/net/publicsuffix"
)

// Config holds fetcher configuration.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	CookieFile string
	Headers    map[string]string
	MaxBytes   int64
}

// Mode selects whether a request carries the user's credentials.
type Mode int

const (
	Anonymous Mode = iota
	Credentialed
)

func (m Mode) String() string {
	if m == Credentialed {
		return "credentialed"
	}
	return "anonymous"
}

// Response is a fully read HTTP response.
type Response struct {
	URL    string // final URL after redirects
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Content is a successfully downloaded resource.
type Content struct {
	URL                string
	Data               []byte
	ContentType        string
	ContentDisposition string
}

// Fetcher downloads resources with an anonymous and a credentialed client.
type Fetcher struct {
	config    Config
	anonymous *http.Client
	withCreds *http.Client
}

// New creates a Fetcher. Cookies from config.CookieFile are loaded into the
// credentialed client's jar.
func New(config Config) (*Fetcher, error) {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "pageocr/1.0"
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = 200 << 20
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if config.CookieFile != "" {
		n, err := loadCookieFile(jar, config.CookieFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load cookies: %w", err)
		}
		slog.Debug("loaded cookies", "file", config.CookieFile, "count", n)
	}

	return &Fetcher{
		config:    config,
		anonymous: &http.Client{Timeout: config.Timeout},
		withCreds: &http.Client{Timeout: config.Timeout, Jar: jar},
	}, nil
}

// Jar returns the cookie jar used for credentialed requests.
func (f *Fetcher) Jar() http.CookieJar {
	return f.withCreds.Jar
}

// Get issues a GET and reads the body, following redirects.
func (f *Fetcher) Get(ctx context.Context, rawURL string, mode Mode) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	client := f.anonymous
	if mode == Credentialed {
		client = f.withCreds
		for k, v := range f.config.Headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", f.config.MaxBytes)
	}

	return &Response{
		URL:    resp.Request.URL.String(),
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

// Fetch downloads a resource, first without credentials (signed and public
// URLs) and then with them. Failure of both attempts yields a FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Content, error) {
	resp, err := f.Get(ctx, rawURL, Anonymous)
	if err == nil && resp.OK() {
		return toContent(rawURL, resp), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	slog.Debug("anonymous fetch failed, retrying with credentials", "url", rawURL, "error", err)

	resp, err = f.Get(ctx, rawURL, Credentialed)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &apperr.FetchError{URL: rawURL, Err: err}
	}
	if !resp.OK() {
		return nil, &apperr.FetchError{URL: rawURL, Status: resp.Status}
	}
	return toContent(rawURL, resp), nil
}

func toContent(rawURL string, resp *Response) *Content {
	return &Content{
		URL:                rawURL,
		Data:               resp.Body,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
	}
}
