// Package extract isolates the primary article subtree from a page using
// reader-mode extraction. It is a thin wrapper over go-readability; the
// pipeline treats it as a black box that either yields a content subtree
// plus basic metadata, or nothing.
package extract

import (
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/mdistill/mdistill/pkg/meta"
)

// Article is the extracted main content plus the metadata the extractor
// discovered along the way.
type Article struct {
	// ContentHTML is the HTML of the main-content subtree.
	ContentHTML string

	// TextContent is the plain text of the subtree.
	TextContent string

	// Metadata holds extractor-supplied fields (highest-priority source).
	Metadata meta.Metadata
}

// FromHTML runs reader-mode extraction. A nil Article with nil error means
// the extractor found no main content; callers fall back to the raw HTML.
func FromHTML(rawHTML, baseURL string) (*Article, error) {
	pageURL, err := url.Parse(baseURL)
	if err != nil {
		pageURL = &url.URL{}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(rawHTML), pageURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, nil
	}

	m := meta.Metadata{
		Title:    strings.TrimSpace(article.Title),
		Author:   strings.TrimSpace(article.Byline),
		Excerpt:  strings.TrimSpace(article.Excerpt),
		SiteName: strings.TrimSpace(article.SiteName),
		Language: strings.TrimSpace(article.Language),
	}
	if article.PublishedTime != nil {
		m.PublishedTime = article.PublishedTime.Format(time.RFC3339)
	}

	return &Article{
		ContentHTML: article.Content,
		TextContent: article.TextContent,
		Metadata:    m,
	}, nil
}
