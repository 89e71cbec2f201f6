// Package fetch retrieves HTML documents over HTTP for conversion.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/mdistill/mdistill/internal/logger"
)

// DefaultUserAgent identifies mdistill requests.
const DefaultUserAgent = "mdistill/1.0 (+https://github.com/mdistill/mdistill)"

const defaultMaxRedirects = 10

// Options controls fetching behavior.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string

	// DisableRedirects stops redirect following. The zero value follows
	// up to MaxRedirects, so zero-value Options behave like DefaultOptions.
	DisableRedirects bool

	MaxRedirects int
}

// DefaultOptions returns sensible fetch defaults.
func DefaultOptions() Options {
	return Options{
		UserAgent:    DefaultUserAgent,
		Timeout:      30 * time.Second,
		MaxRedirects: defaultMaxRedirects,
	}
}

// Page holds the result of a fetch.
type Page struct {
	URL         string
	FinalURL    string
	HTML        string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// Fetcher retrieves pages using Colly.
type Fetcher struct {
	opts Options
}

// New creates a fetcher, filling in defaults for unset options.
func New(opts Options) *Fetcher {
	def := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = def.MaxRedirects
	}
	return &Fetcher{opts: opts}
}

// Fetch retrieves the document at targetURL. Responses outside the 2xx
// range are returned as errors alongside the partial page.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (Page, error) {
	result := Page{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	// A fresh collector per request keeps state isolated.
	c := colly.NewCollector(
		colly.UserAgent(f.opts.UserAgent),
	)
	c.SetRequestTimeout(f.opts.Timeout)

	maxRedirects := f.opts.MaxRedirects
	disableRedirects := f.opts.DisableRedirects
	c.SetRedirectHandler(func(req *http.Request, via []*http.Request) error {
		if disableRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	})

	c.OnRequest(func(r *colly.Request) {
		if err := ctx.Err(); err != nil {
			r.Abort()
			return
		}
		for k, v := range f.opts.Headers {
			r.Headers.Set(k, v)
		}
	})

	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.ContentType = r.Headers.Get("Content-Type")
		result.HTML = string(r.Body)
		if r.Request != nil && r.Request.URL != nil {
			result.FinalURL = r.Request.URL.String()
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch error: %w", err)
	})

	logger.Debug("fetching page", "url", targetURL)

	if err := c.Visit(targetURL); err != nil {
		return result, fmt.Errorf("failed to visit URL: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if fetchErr != nil {
		return result, fetchErr
	}
	if result.StatusCode < 200 || result.StatusCode >= 300 {
		return result, fmt.Errorf("unexpected status %d fetching %s", result.StatusCode, targetURL)
	}
	if result.FinalURL == "" {
		result.FinalURL = targetURL
	}
	if !isHTML(result.ContentType) {
		logger.Warn("response is not HTML", "url", targetURL, "contentType", result.ContentType)
	}
	return result, nil
}

// isHTML reports whether the content type looks like an HTML document.
// An empty content type is treated as HTML since many servers omit it.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
