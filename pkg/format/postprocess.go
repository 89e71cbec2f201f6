package format

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mdistill/mdistill/pkg/meta"
)

// TruncationMarker is appended when output is cut at MaxLength.
const TruncationMarker = "\n\n[Content truncated]"

// wordsPerMinute is the reading-speed assumption behind ReadingTime.
const wordsPerMinute = 250

// PostProcessOptions configures the final assembly stage.
type PostProcessOptions struct {
	// IncludeMeta prepends a frontmatter block when metadata is non-empty.
	IncludeMeta bool

	// MaxLength truncates the output at this many characters; 0 disables.
	MaxLength int
}

// PostStats summarizes the final artifact.
type PostStats struct {
	WordCount   int
	ReadingTime int
	ImageCount  int
	LinkCount   int
	Truncated   bool
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe  = regexp.MustCompile("`[^`\n]*`")
	imageRe       = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRe        = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	urlRe         = regexp.MustCompile(`https?://\S+`)
	manyBlanksRe  = regexp.MustCompile(`\n{3,}`)
)

// PostProcess produces the final markdown artifact: spacing repair,
// frontmatter assembly, truncation, and word-count statistics.
func PostProcess(markdown string, m meta.Metadata, opts PostProcessOptions) (string, PostStats) {
	var stats PostStats

	body := repairSpacing(markdown)
	body = strings.TrimSpace(body)

	stats.WordCount = CountWords(body)
	stats.ReadingTime = readingTime(stats.WordCount)
	stats.ImageCount = CountImages(body)
	stats.LinkCount = CountLinks(body)

	m.WordCount = stats.WordCount
	m.ReadingTime = stats.ReadingTime

	out := body
	frontmatterFences := 0
	if opts.IncludeMeta && !m.IsEmpty() {
		out = Frontmatter(m) + out
		frontmatterFences = 2
	}

	out = spaceHorizontalRules(out, frontmatterFences)
	out = manyBlanksRe.ReplaceAllString(out, "\n\n")
	if frontmatterFences == 0 {
		out = rewriteLeadingRule(out)
	}

	if opts.MaxLength > 0 && len(out) > opts.MaxLength {
		out = truncate(out, opts.MaxLength) + TruncationMarker
		stats.Truncated = true
	}

	return out, stats
}

// repairSpacing collapses runs of blank lines to a single blank line and
// guarantees blank lines around fenced code blocks and before headings.
func repairSpacing(markdown string) string {
	lines := strings.Split(markdown, "\n")
	var out []string
	inFence := false

	for _, line := range lines {
		isFence := fenceMarkRe.MatchString(line)
		isHeading := !inFence && headingRe.MatchString(line)

		needsBlank := (isFence && !inFence) || isHeading
		if needsBlank && len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}

		out = append(out, line)

		if isFence && inFence {
			out = append(out, "")
		}
		if isFence {
			inFence = !inFence
		}
	}

	return manyBlanksRe.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
}

// spaceHorizontalRules inserts blank lines around --- rule markers. The
// first skip fences belonging to the frontmatter block are never touched,
// tracked by a running count of --- occurrences.
func spaceHorizontalRules(markdown string, frontmatterFences int) string {
	lines := strings.Split(markdown, "\n")
	var out []string
	seen := 0
	inFence := false

	for _, line := range lines {
		if fenceMarkRe.MatchString(line) {
			inFence = !inFence
			out = append(out, line)
			continue
		}
		if inFence || strings.TrimSpace(line) != "---" {
			out = append(out, line)
			continue
		}

		seen++
		if seen <= frontmatterFences {
			out = append(out, line)
			continue
		}

		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		out = append(out, line, "")
	}

	return strings.Join(out, "\n")
}

// rewriteLeadingRule replaces a horizontal rule on the first line with the
// *** form. Output without frontmatter must never open with ---, which a
// consumer would read as a frontmatter fence.
func rewriteLeadingRule(markdown string) string {
	first, rest, found := strings.Cut(markdown, "\n")
	if strings.TrimSpace(first) != "---" {
		return markdown
	}
	if !found {
		return "***"
	}
	return "***\n" + rest
}

// truncate cuts at the rune boundary at or below max so a multi-byte code
// point is never split. Markdown token boundaries are not considered.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// CountWords counts prose words, excluding fenced and inline code, URLs,
// and link/image syntax so markup does not inflate the count.
func CountWords(markdown string) int {
	text := fencedBlockRe.ReplaceAllString(markdown, " ")
	text = inlineCodeRe.ReplaceAllString(text, " ")
	text = imageRe.ReplaceAllString(text, " ")
	text = linkRe.ReplaceAllString(text, " $1 ")
	text = urlRe.ReplaceAllString(text, " ")
	return len(strings.Fields(text))
}

func readingTime(words int) int {
	if words == 0 {
		return 0
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}

// CountImages counts markdown image references outside code.
func CountImages(markdown string) int {
	text := fencedBlockRe.ReplaceAllString(markdown, " ")
	text = inlineCodeRe.ReplaceAllString(text, " ")
	return len(imageRe.FindAllString(text, -1))
}

// CountLinks counts markdown links outside code, excluding images.
func CountLinks(markdown string) int {
	text := fencedBlockRe.ReplaceAllString(markdown, " ")
	text = inlineCodeRe.ReplaceAllString(text, " ")
	text = imageRe.ReplaceAllString(text, " ")
	return len(linkRe.FindAllString(text, -1))
}
