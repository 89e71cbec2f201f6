package structure

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/mdistill/mdistill/internal/logger"
)

// cleanCodeAttrs are data attributes used by code-hosting and
// documentation platforms to carry the un-highlighted source alongside a
// syntax-highlighted, HTML-escaped pre block. When present, the attribute
// value is authoritative and replaces the highlighted markup, which avoids
// double-escaping artifacts.
var cleanCodeAttrs = []string{
	"data-snippet-clipboard-copy-content",
	"data-clipboard-text",
	"data-code",
}

// NormalizeCode rewrites non-standard code markup into the canonical
// pre > code shape. Idempotent: already-normalized input is a no-op.
// Parse failures return the input unchanged.
func NormalizeCode(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		logger.Warn("html parse failed, skipping code normalization", "error", err)
		return rawHTML, nil
	}

	restoreCleanCode(doc)
	wrapBarePre(doc)

	out, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(out) == "" {
		out, err = doc.Html()
		if err != nil {
			return rawHTML, nil
		}
	}
	return out, nil
}

// restoreCleanCode replaces highlighted pre content with a freshly escaped
// code element built from the platform's clean-code attribute.
func restoreCleanCode(doc *goquery.Document) {
	for _, attr := range cleanCodeAttrs {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			source, ok := s.Attr(attr)
			if !ok || strings.TrimSpace(source) == "" {
				return
			}

			pre := s.Find("pre").First()
			if pre.Length() == 0 {
				if goquery.NodeName(s) != "pre" {
					return
				}
				pre = s
			}
			pre.SetHtml("<code>" + html.EscapeString(source) + "</code>")
		})
	}
}

// wrapBarePre wraps the text of any pre lacking a code child.
func wrapBarePre(doc *goquery.Document) {
	doc.Find("pre").Each(func(_ int, s *goquery.Selection) {
		if s.Find("code").Length() > 0 {
			return
		}
		s.SetHtml("<code>" + html.EscapeString(s.Text()) + "</code>")
	})
}
