// Package structure repairs document structure ahead of markdown rendering.
// It normalizes heading hierarchies, unwraps redundant containers, and
// promotes styled pseudo-headings to real heading elements.
package structure

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/mdistill/mdistill/internal/logger"
)

// pseudoHeadingMaxLen bounds promotion so card and teaser layouts with
// long "title" blocks are not turned into headings.
const pseudoHeadingMaxLen = 100

// Enhance repairs structural problems in the HTML. The output is a fixed
// point: running Enhance on its own output produces no further change.
// Parse failures return the input unchanged.
func Enhance(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		logger.Warn("html parse failed, skipping structure enhancement", "error", err)
		return rawHTML, nil
	}

	promotePseudoHeadings(doc)
	unwrapRedundantContainers(doc)
	normalizeHeadings(doc)

	out, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(out) == "" {
		out, err = doc.Html()
		if err != nil {
			return rawHTML, nil
		}
	}
	return out, nil
}

// normalizeHeadings clamps heading-level skips. A heading may increase by
// at most one level past the previous heading's resolved level; equal or
// shallower headings pass through and reset the tracked level.
func normalizeHeadings(doc *goquery.Document) {
	lastLevel := 0
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := headingLevel(goquery.NodeName(s))
		if level > lastLevel+1 {
			level = lastLevel + 1
			renameElement(s.Nodes[0], "h"+strconv.Itoa(level))
		}
		lastLevel = level
	})
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// unwrapRedundantContainers eliminates wrapper-only nesting. A div or span
// whose only child is a single div or span is replaced by that child, and a
// paragraph whose single child is a block element is replaced by the block,
// since paragraphs containing block content have no markdown shape.
// Loops to a fixed point because unwrapping can expose further wrappers.
func unwrapRedundantContainers(doc *goquery.Document) {
	for i := 0; i < 10; i++ {
		changed := 0

		doc.Find("div, span").Each(func(_ int, s *goquery.Selection) {
			inner, ok := soleElementChild(s)
			if !ok {
				return
			}
			tag := goquery.NodeName(inner)
			if tag != "div" && tag != "span" {
				return
			}
			s.ReplaceWithSelection(inner)
			changed++
		})

		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			inner, ok := soleElementChild(s)
			if !ok {
				return
			}
			switch goquery.NodeName(inner) {
			case "div", "blockquote", "pre", "ul", "ol", "table":
				s.ReplaceWithSelection(inner)
				changed++
			}
		})

		if changed == 0 {
			break
		}
	}
}

// soleElementChild returns the single element child of s, if s has exactly
// one element child and no non-whitespace text of its own.
func soleElementChild(s *goquery.Selection) (*goquery.Selection, bool) {
	children := s.Children()
	if children.Length() != 1 {
		return nil, false
	}
	for child := s.Nodes[0].FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode && strings.TrimSpace(child.Data) != "" {
			return nil, false
		}
	}
	return children.First(), true
}

// promotePseudoHeadings rewrites childless div/span elements that are
// visually styled as headings into real h3 elements. Promotion requires a
// title/heading class or a bold inline style, plus short text.
func promotePseudoHeadings(doc *goquery.Document) {
	doc.Find("div, span").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" || len(text) >= pseudoHeadingMaxLen {
			return
		}
		if !looksLikeHeading(s) {
			return
		}
		renameElement(s.Nodes[0], "h3")
		s.Nodes[0].Attr = nil
	})
}

func looksLikeHeading(s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	lower := strings.ToLower(class)
	if strings.Contains(lower, "title") || strings.Contains(lower, "heading") {
		return true
	}
	style, _ := s.Attr("style")
	return declaresBold(style)
}

// declaresBold reports whether an inline style sets a bold font weight.
func declaresBold(style string) bool {
	lower := strings.ToLower(style)
	for _, decl := range strings.Split(lower, ";") {
		key, val, ok := strings.Cut(decl, ":")
		if !ok || strings.TrimSpace(key) != "font-weight" {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "bold" || val == "bolder" {
			return true
		}
		if n, err := strconv.Atoi(val); err == nil && n >= 600 {
			return true
		}
	}
	return false
}

func renameElement(n *html.Node, tag string) {
	n.Data = tag
	n.DataAtom = atom.Lookup([]byte(tag))
}
