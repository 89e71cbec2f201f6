// Package render serializes cleaned HTML to markdown using a rule-driven
// converter. Five built-in rules cover tables, code blocks, images,
// blockquotes, and empty nodes; callers may layer custom rules that
// override the built-ins by name.
package render

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Rule is a named markdown-serialization rule. A nil return from
// Replacement falls through to the converter's generic handling.
type Rule struct {
	Name        string
	Filter      []string
	Replacement func(content string, sel *goquery.Selection, opt *md.Options) *string
}

// Renderer converts HTML to markdown.
type Renderer struct {
	rules []Rule
}

// New creates a Renderer with the built-in rules, layering custom rules on
// top. A custom rule whose Name matches a built-in replaces it; other
// custom rules are appended.
func New(custom ...Rule) *Renderer {
	rules := builtinRules()
	for _, cr := range custom {
		replaced := false
		for i, r := range rules {
			if r.Name == cr.Name {
				rules[i] = cr
				replaced = true
				break
			}
		}
		if !replaced {
			rules = append(rules, cr)
		}
	}
	return &Renderer{rules: rules}
}

// RuleNames returns the active rule names in evaluation order.
func (r *Renderer) RuleNames() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name
	}
	return names
}

// Render serializes HTML to markdown.
func (r *Renderer) Render(html string) (string, error) {
	conv := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		CodeBlockStyle:   "fenced",
		BulletListMarker: "-",
		HorizontalRule:   "---",
		EmDelimiter:      "*",
		StrongDelimiter:  "**",
	})

	for _, rule := range r.rules {
		conv.AddRules(md.Rule{
			Filter:      rule.Filter,
			Replacement: rule.Replacement,
		})
	}

	out, err := conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("markdown conversion failed: %w", err)
	}
	return strings.TrimSpace(out), nil
}
