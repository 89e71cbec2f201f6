// Package clean reduces raw HTML to content-bearing markup.
// It removes scripts, boilerplate chrome, and noise elements, resolves
// relative URLs, and strips attributes down to a small allow-list so the
// downstream markdown renderers see only meaningful structure.
package clean

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mdistill/mdistill/internal/logger"
)

// Options configures a cleaning pass.
type Options struct {
	// Aggressive removes elements matching the noise taxonomy and
	// short boilerplate phrases in addition to scripts and styles.
	Aggressive bool

	// BaseURL is used to resolve relative img[src] and a[href] values.
	// Empty means relative URLs are left untouched.
	BaseURL string
}

// DefaultOptions returns the default cleaning configuration.
func DefaultOptions() Options {
	return Options{Aggressive: true}
}

// allowedAttrs is the attribute allow-list applied after noise removal.
// Everything else is stripped.
var allowedAttrs = map[string]bool{
	"href":    true,
	"src":     true,
	"alt":     true,
	"title":   true,
	"colspan": true,
	"rowspan": true,
	"align":   true,
}

// voidTags are exempt from empty-element pruning regardless of content.
var voidTags = map[string]bool{
	"img":    true,
	"br":     true,
	"hr":     true,
	"input":  true,
	"iframe": true,
}

// contentTags carry prose and are pruned when their text is only
// punctuation or whitespace.
var contentTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "ul": true, "ol": true, "table": true,
	"blockquote": true, "pre": true,
}

// Cleaner strips noise from HTML documents.
type Cleaner struct {
	opts  Options
	stats *Stats
}

// New creates a Cleaner with the given options.
func New(opts Options) *Cleaner {
	return &Cleaner{opts: opts}
}

// Name returns the cleaner identifier for logging.
func (c *Cleaner) Name() string {
	return "clean"
}

// Stats returns the stats from the last Clean call, or nil.
func (c *Cleaner) Stats() *Stats {
	return c.stats
}

// Clean transforms the input HTML. Parse failures degrade gracefully:
// the original input is returned unchanged.
//
// Order matters. Noise selectors depend on class and role attributes, so
// selector-based removal runs before attribute stripping; URL resolution
// needs src/href intact, so it also runs before stripping; empty-element
// pruning runs last so containers emptied by noise removal are caught.
func (c *Cleaner) Clean(rawHTML string) (string, error) {
	stats := NewStats()
	stats.InputBytes = len(rawHTML)
	c.stats = stats

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		logger.Warn("html parse failed, returning input unchanged", "error", err)
		stats.OutputBytes = len(rawHTML)
		return rawHTML, nil
	}

	c.removeScripts(doc, stats)
	if c.opts.Aggressive {
		c.removeNoise(doc, stats)
		c.removeBoilerplatePhrases(doc, stats)
	}
	c.removeComments(doc, stats)
	c.resolveURLs(doc)
	c.stripAttributes(doc, stats)
	c.pruneEmptyElements(doc, stats)

	out, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(out) == "" {
		out, err = doc.Html()
		if err != nil {
			stats.OutputBytes = len(rawHTML)
			return rawHTML, nil
		}
	}

	stats.OutputBytes = len(out)
	logger.Debug("clean complete",
		"input_bytes", stats.InputBytes,
		"output_bytes", stats.OutputBytes,
		"elements_removed", stats.TotalElementsRemoved(),
		"attributes_removed", stats.AttributesRemoved)
	return out, nil
}

// removeScripts drops script, style, and noscript unconditionally.
func (c *Cleaner) removeScripts(doc *goquery.Document, stats *Stats) {
	doc.Find("script, style, noscript").Each(func(_ int, s *goquery.Selection) {
		stats.RecordRemoval(goquery.NodeName(s))
		s.Remove()
	})
}

// removeNoise removes elements matching the noise taxonomy.
func (c *Cleaner) removeNoise(doc *goquery.Document, stats *Stats) {
	for _, selector := range noiseSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			stats.RecordSelectorMatch(selector, 1)
			stats.RecordRemoval(goquery.NodeName(s))
			s.Remove()
		})
	}
}

// removeBoilerplatePhrases removes short elements whose text matches a
// boilerplate phrase. The length guard keeps long-form content that merely
// mentions such a phrase.
func (c *Cleaner) removeBoilerplatePhrases(doc *goquery.Document, stats *Stats) {
	doc.Find("div, section, p, span, a, button").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" || len(text) >= boilerplateMaxLen {
			return
		}
		lower := strings.ToLower(text)
		for _, phrase := range boilerplatePhrases {
			if strings.Contains(lower, phrase) {
				stats.BoilerplateRemovals++
				stats.RecordRemoval(goquery.NodeName(s))
				s.Remove()
				return
			}
		}
	})
}

// removeComments walks the node tree and removes comment nodes.
func (c *Cleaner) removeComments(doc *goquery.Document, stats *Stats) {
	for _, root := range doc.Nodes {
		removeCommentNodes(root, stats)
	}
}

func removeCommentNodes(n *html.Node, stats *Stats) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
			stats.CommentRemovals++
		} else {
			removeCommentNodes(child, stats)
		}
		child = next
	}
}

// resolveURLs resolves relative img[src] and a[href] values against the
// base URL. Malformed values are left unchanged.
func (c *Cleaner) resolveURLs(doc *goquery.Document) {
	if c.opts.BaseURL == "" {
		return
	}
	base, err := url.Parse(c.opts.BaseURL)
	if err != nil {
		logger.Warn("invalid base URL, skipping URL resolution", "base_url", c.opts.BaseURL)
		return
	}

	resolve := func(s *goquery.Selection, attr string) {
		val, ok := s.Attr(attr)
		if !ok || val == "" || skipResolution(val) {
			return
		}
		ref, err := url.Parse(val)
		if err != nil {
			return
		}
		s.SetAttr(attr, base.ResolveReference(ref).String())
	}

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) { resolve(s, "src") })
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) { resolve(s, "href") })
}

// skipResolution reports whether a URL value must not be resolved:
// absolute URLs, data URIs, fragments, and mailto links.
func skipResolution(val string) bool {
	if strings.HasPrefix(val, "#") ||
		strings.HasPrefix(val, "data:") ||
		strings.HasPrefix(val, "mailto:") {
		return true
	}
	u, err := url.Parse(val)
	return err == nil && u.IsAbs()
}

// stripAttributes removes every attribute not on the allow-list.
func (c *Cleaner) stripAttributes(doc *goquery.Document, stats *Stats) {
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Nodes[0]
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			if allowedAttrs[attr.Key] {
				kept = append(kept, attr)
			} else {
				stats.AttributesRemoved++
			}
		}
		node.Attr = kept
	})
}

// pruneEmptyElements removes elements with no meaningful content.
// Runs in passes since removing a child can empty its parent.
func (c *Cleaner) pruneEmptyElements(doc *goquery.Document, stats *Stats) {
	for i := 0; i < 4; i++ {
		removed := 0
		doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
			tag := goquery.NodeName(s)
			if voidTags[tag] {
				return
			}
			if !isRemovableEmpty(s, tag) {
				return
			}
			stats.EmptyElementRemovals++
			stats.RecordRemoval(tag)
			s.Remove()
			removed++
		})
		if removed == 0 {
			break
		}
	}
}

func isRemovableEmpty(s *goquery.Selection, tag string) bool {
	text := strings.TrimSpace(s.Text())

	if contentTags[tag] {
		return stripPunctuation(text) == ""
	}
	if text != "" {
		return false
	}
	if s.Find("img, iframe").Length() > 0 {
		return false
	}
	if s.Find("h1, h2, h3, h4, h5, h6, ul, ol, table, blockquote, pre").Length() > 0 {
		return false
	}
	return true
}

// stripPunctuation removes punctuation and whitespace, leaving only
// characters that count as real content.
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
}
