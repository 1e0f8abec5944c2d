package page

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/mfenderov/pageocr/pkg/models"
)

const embedSelector = "embed[src], object[data], iframe[src]"

// Config holds inspector configuration.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// Jar carries the user's cookies when the page itself has to be fetched.
	Jar http.CookieJar
}

// Inspector enumerates embed, object and iframe elements of a page.
type Inspector struct {
	config Config
}

// NewInspector creates an Inspector with the given configuration.
func NewInspector(config Config) *Inspector {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "pageocr/1.0"
	}
	return &Inspector{config: config}
}

// Candidates returns the page's embedded-resource candidates. Candidates
// reported by the client win, then the HTML snapshot, then a live fetch.
func (i *Inspector) Candidates(ctx context.Context, p models.Page) ([]models.EmbedCandidate, error) {
	if len(p.Embeds) > 0 {
		return p.Embeds, nil
	}
	if strings.TrimSpace(p.HTML) != "" {
		return ParseHTML(p.HTML)
	}
	if !strings.HasPrefix(p.URL, "http://") && !strings.HasPrefix(p.URL, "https://") {
		return nil, nil
	}
	return i.crawl(ctx, p.URL)
}

// ParseHTML extracts candidates from an HTML document.
func ParseHTML(html string) ([]models.EmbedCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var out []models.EmbedCandidate
	doc.Find(embedSelector).Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		out = append(out, models.EmbedCandidate{
			Tag:  tag,
			Src:  sourceAttr(tag, s.AttrOr("src", ""), s.AttrOr("data", "")),
			Type: s.AttrOr("type", ""),
		})
	})
	return out, nil
}

// crawl fetches pageURL without following links and collects candidates
// with absolute URLs.
func (i *Inspector) crawl(ctx context.Context, pageURL string) ([]models.EmbedCandidate, error) {
	var out []models.EmbedCandidate
	var status int

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.UserAgent(i.config.UserAgent),
	)
	c.SetRequestTimeout(i.config.Timeout)
	if i.config.Jar != nil {
		c.SetCookieJar(i.config.Jar)
	}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	c.OnHTML(embedSelector, func(e *colly.HTMLElement) {
		tag := e.Name
		src := sourceAttr(tag, e.Attr("src"), e.Attr("data"))
		if src == "" {
			return
		}
		out = append(out, models.EmbedCandidate{
			Tag:  tag,
			Src:  e.Request.AbsoluteURL(src),
			Type: e.Attr("type"),
		})
	})

	if err := c.Visit(pageURL); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	c.Wait()

	slog.Debug("inspected page", "url", pageURL, "status", status, "candidates", len(out))
	return out, nil
}

func sourceAttr(tag, src, data string) string {
	if tag == "object" {
		return data
	}
	return src
}
