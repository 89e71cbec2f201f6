// Package meta scrapes document metadata from meta tags, microdata, and
// semantic fallbacks.
package meta

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/mdistill/mdistill/internal/logger"
)

// Metadata is the flat metadata record attached to a conversion result.
// All fields are optional; WordCount and ReadingTime are computed from the
// rendered markdown after the render stage, not here.
type Metadata struct {
	Title         string `json:"title,omitempty" yaml:"title,omitempty"`
	Author        string `json:"author,omitempty" yaml:"author,omitempty"`
	Excerpt       string `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	SiteName      string `json:"siteName,omitempty" yaml:"siteName,omitempty"`
	PublishedTime string `json:"publishedTime,omitempty" yaml:"publishedTime,omitempty"`
	Language      string `json:"language,omitempty" yaml:"language,omitempty"`
	CanonicalURL  string `json:"canonicalUrl,omitempty" yaml:"canonicalUrl,omitempty"`
	WordCount     int    `json:"wordCount,omitempty" yaml:"wordCount,omitempty"`
	ReadingTime   int    `json:"readingTime,omitempty" yaml:"readingTime,omitempty"`
}

// IsEmpty reports whether no metadata field is populated.
func (m Metadata) IsEmpty() bool {
	return m.Title == "" && m.Author == "" && m.Excerpt == "" &&
		m.SiteName == "" && m.PublishedTime == "" && m.Language == "" &&
		m.CanonicalURL == "" && m.WordCount == 0 && m.ReadingTime == 0
}

// Merge overlays fill onto primary: primary values win, fill closes gaps.
func Merge(primary, fill Metadata) Metadata {
	out := primary
	if out.Title == "" {
		out.Title = fill.Title
	}
	if out.Author == "" {
		out.Author = fill.Author
	}
	if out.Excerpt == "" {
		out.Excerpt = fill.Excerpt
	}
	if out.SiteName == "" {
		out.SiteName = fill.SiteName
	}
	if out.PublishedTime == "" {
		out.PublishedTime = fill.PublishedTime
	}
	if out.Language == "" {
		out.Language = fill.Language
	}
	if out.CanonicalURL == "" {
		out.CanonicalURL = fill.CanonicalURL
	}
	return out
}

// Extract scrapes metadata from the document. It never fails: a document
// that cannot be parsed yields an empty record.
func Extract(rawHTML, baseURL string) Metadata {
	var m Metadata

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		logger.Warn("html parse failed, no metadata extracted", "error", err)
		return m
	}

	m.Title = extractTitle(doc)
	m.Author = extractAuthor(doc)
	m.Excerpt = firstContent(doc,
		"meta[name='description']",
		"meta[property='og:description']",
		"meta[name='twitter:description']")
	m.SiteName = firstContent(doc,
		"meta[property='og:site_name']",
		"meta[name='application-name']")
	m.PublishedTime = extractPublishedTime(doc)
	m.Language = extractLanguage(doc)
	m.CanonicalURL = extractCanonicalURL(doc, baseURL)

	return m
}

func extractTitle(doc *goquery.Document) string {
	if t := firstContent(doc,
		"meta[property='og:title']",
		"meta[name='twitter:title']"); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractAuthor(doc *goquery.Document) string {
	if a := firstContent(doc,
		"meta[name='author']",
		"meta[property='article:author']"); a != "" {
		return a
	}
	if a := strings.TrimSpace(doc.Find("[itemprop='author']").First().Text()); a != "" {
		return a
	}
	if a := strings.TrimSpace(doc.Find("[rel='author']").First().Text()); a != "" {
		return a
	}
	return strings.TrimSpace(doc.Find(".byline, .author").First().Text())
}

// extractPublishedTime normalizes any recognized date to RFC 3339.
// Unparseable values are kept verbatim rather than dropped.
func extractPublishedTime(doc *goquery.Document) string {
	raw := firstContent(doc,
		"meta[property='article:published_time']",
		"meta[name='date']",
		"meta[name='publish-date']",
		"meta[itemprop='datePublished']")
	if raw == "" {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			raw = strings.TrimSpace(dt)
		}
	}
	if raw == "" {
		return ""
	}
	if ts, err := dateparse.ParseAny(raw); err == nil {
		return ts.Format(time.RFC3339)
	}
	return raw
}

func extractLanguage(doc *goquery.Document) string {
	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		if lang = normalizeLang(lang); lang != "" {
			return lang
		}
	}
	if lang := firstContent(doc,
		"meta[http-equiv='content-language']",
		"meta[property='og:locale']"); lang != "" {
		return normalizeLang(lang)
	}
	// No declared language: detect from body text.
	text := strings.TrimSpace(doc.Find("body").Text())
	return DetectLanguage(text)
}

// normalizeLang reduces values like "en-US" or "en_GB" to the primary
// subtag.
func normalizeLang(lang string) string {
	lang = strings.TrimSpace(strings.ToLower(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

func extractCanonicalURL(doc *goquery.Document, baseURL string) string {
	raw := ""
	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok {
		raw = strings.TrimSpace(href)
	}
	if raw == "" {
		raw = firstContent(doc, "meta[property='og:url']")
	}
	if raw == "" {
		return ""
	}
	if baseURL != "" {
		base, err := url.Parse(baseURL)
		if err == nil {
			if ref, err := url.Parse(raw); err == nil {
				return base.ResolveReference(ref).String()
			}
		}
	}
	return raw
}

// firstContent returns the first non-empty content attribute among the
// given meta selectors.
func firstContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); content != "" {
				return content
			}
		}
	}
	return ""
}
