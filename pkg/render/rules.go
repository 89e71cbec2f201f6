package render

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// Built-in rule names. Custom rules using one of these names replace the
// corresponding built-in.
const (
	RuleTable      = "table"
	RuleCodeBlock  = "codeblock"
	RuleImage      = "image"
	RuleBlockquote = "blockquote"
	RuleEmptyNode  = "emptynode"
)

func builtinRules() []Rule {
	return []Rule{
		{Name: RuleTable, Filter: []string{"table"}, Replacement: renderTable},
		{Name: RuleCodeBlock, Filter: []string{"pre"}, Replacement: renderCodeBlock},
		{Name: RuleImage, Filter: []string{"img"}, Replacement: renderImage},
		{Name: RuleBlockquote, Filter: []string{"blockquote"}, Replacement: renderBlockquote},
		{Name: RuleEmptyNode, Filter: []string{"p", "div", "span"}, Replacement: renderEmptyNode},
	}
}

// renderTable emits a GFM table. Headers come from the first row (thead or
// first tr); alignment comes from the align attribute or an inline
// text-align style; data rows are padded to the header column count.
func renderTable(_ string, sel *goquery.Selection, _ *md.Options) *string {
	headerRow := sel.Find("thead tr").First()
	hasThead := headerRow.Length() > 0
	if !hasThead {
		headerRow = sel.Find("tr").First()
	}
	if headerRow.Length() == 0 {
		return md.String("")
	}

	var headers []string
	var aligns []string
	headerRow.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, cellText(cell))
		aligns = append(aligns, alignMarker(cell))
	})
	if len(headers) == 0 {
		return md.String("")
	}

	var rows *goquery.Selection
	if hasThead {
		rows = sel.Find("tbody tr")
	} else {
		rows = sel.Find("tr").Slice(1, goquery.ToEnd)
	}

	var sb strings.Builder
	sb.WriteString("\n\n| ")
	sb.WriteString(strings.Join(headers, " | "))
	sb.WriteString(" |\n| ")
	sb.WriteString(strings.Join(aligns, " | "))
	sb.WriteString(" |\n")

	rows.Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, cellText(cell))
		})
		if len(cells) == 0 {
			return
		}
		// Pad to the header column count.
		for len(cells) < len(headers) {
			cells = append(cells, "")
		}
		cells = cells[:len(headers)]
		sb.WriteString("| ")
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString(" |\n")
	})
	sb.WriteString("\n")

	return md.String(sb.String())
}

func cellText(cell *goquery.Selection) string {
	text := strings.TrimSpace(cell.Text())
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "|", "\\|")
	return text
}

func alignMarker(cell *goquery.Selection) string {
	align, _ := cell.Attr("align")
	if align == "" {
		style, _ := cell.Attr("style")
		align = textAlignFromStyle(style)
	}
	switch strings.ToLower(strings.TrimSpace(align)) {
	case "center":
		return ":---:"
	case "right":
		return "---:"
	case "left":
		return ":---"
	default:
		return "---"
	}
}

func textAlignFromStyle(style string) string {
	for _, decl := range strings.Split(strings.ToLower(style), ";") {
		key, val, ok := strings.Cut(decl, ":")
		if ok && strings.TrimSpace(key) == "text-align" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// renderCodeBlock emits a fenced block for pre elements containing code,
// tagging the fence with the language from a language-xxx or lang-xxx
// class. A pre without a code child falls through to generic handling.
func renderCodeBlock(_ string, sel *goquery.Selection, _ *md.Options) *string {
	code := sel.Find("code").First()
	if code.Length() == 0 {
		return nil
	}

	lang := languageFromClass(code)
	if lang == "" {
		lang = languageFromClass(sel)
	}

	text := strings.TrimRight(code.Text(), "\n")
	return md.String(fmt.Sprintf("\n\n```%s\n%s\n```\n\n", lang, text))
}

func languageFromClass(sel *goquery.Selection) string {
	class, _ := sel.Attr("class")
	for _, chunk := range strings.Fields(strings.ToLower(class)) {
		if lang, ok := strings.CutPrefix(chunk, "language-"); ok {
			return lang
		}
		if lang, ok := strings.CutPrefix(chunk, "lang-"); ok {
			return lang
		}
	}
	return ""
}

// renderImage prefers src and falls back to data-src for lazy-loaded
// images. A title clause is emitted only when a title attribute exists;
// images with no resolvable source render to nothing.
func renderImage(_ string, sel *goquery.Selection, _ *md.Options) *string {
	src, _ := sel.Attr("src")
	if src == "" {
		src, _ = sel.Attr("data-src")
	}
	if src == "" {
		return md.String("")
	}

	alt, _ := sel.Attr("alt")
	if title, ok := sel.Attr("title"); ok && title != "" {
		return md.String(fmt.Sprintf("![%s](%s %q)", alt, src, title))
	}
	return md.String(fmt.Sprintf("![%s](%s)", alt, src))
}

// renderBlockquote prefixes every line of the quoted text with "> ".
func renderBlockquote(content string, sel *goquery.Selection, _ *md.Options) *string {
	text := strings.TrimSpace(content)
	if text == "" {
		text = strings.TrimSpace(sel.Text())
	}
	if text == "" {
		return md.String("")
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "> " + strings.TrimSpace(line)
	}
	return md.String("\n\n" + strings.Join(lines, "\n") + "\n\n")
}

// renderEmptyNode suppresses p/div/span elements with only whitespace so
// they do not become stray blank paragraphs. Non-empty elements fall
// through to generic handling.
func renderEmptyNode(_ string, sel *goquery.Selection, _ *md.Options) *string {
	if strings.TrimSpace(sel.Text()) != "" {
		return nil
	}
	if sel.Find("img, iframe, hr, br").Length() > 0 {
		return nil
	}
	return md.String("")
}
