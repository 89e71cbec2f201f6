package format

import (
	"strconv"
	"strings"

	"github.com/mdistill/mdistill/pkg/meta"
)

// Frontmatter renders metadata as a delimited block, one key per defined
// field. Values containing colons or newlines are quoted with internal
// quotes escaped, keeping the block parseable as YAML.
func Frontmatter(m meta.Metadata) string {
	var sb strings.Builder
	sb.WriteString("---\n")

	writeField(&sb, "title", m.Title)
	writeField(&sb, "author", m.Author)
	writeField(&sb, "excerpt", m.Excerpt)
	writeField(&sb, "siteName", m.SiteName)
	writeField(&sb, "publishedTime", m.PublishedTime)
	writeField(&sb, "language", m.Language)
	writeField(&sb, "canonicalUrl", m.CanonicalURL)
	if m.WordCount > 0 {
		writeField(&sb, "wordCount", strconv.Itoa(m.WordCount))
	}
	if m.ReadingTime > 0 {
		writeField(&sb, "readingTime", strconv.Itoa(m.ReadingTime))
	}

	sb.WriteString("---\n\n")
	return sb.String()
}

func writeField(sb *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	sb.WriteString(key)
	sb.WriteString(": ")
	sb.WriteString(quoteIfNeeded(value))
	sb.WriteString("\n")
}

func quoteIfNeeded(value string) string {
	if !strings.ContainsAny(value, ":\n\"") {
		return value
	}
	escaped := strings.ReplaceAll(value, "\"", "\\\"")
	escaped = strings.ReplaceAll(escaped, "\n", " ")
	return "\"" + escaped + "\""
}
