package model

import "strings"

const conversionInstruction = `Convert the following HTML to clean, well-structured Markdown.

Rules:
1. Preserve the document's heading hierarchy
2. Convert tables to Markdown tables, code to fenced code blocks
3. Keep link and image URLs exactly as they appear
4. Omit navigation, advertising, and other boilerplate
5. Output only the Markdown, with no commentary`

// buildPrompt constructs the fixed instruction plus HTML payload sent to
// the model.
func buildPrompt(html string) string {
	var sb strings.Builder
	sb.WriteString(conversionInstruction)
	sb.WriteString("\n\nHTML:\n\n")
	sb.WriteString(html)
	sb.WriteString("\n\nMarkdown:\n")
	return sb.String()
}
