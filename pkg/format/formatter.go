// Package format normalizes rendered markdown. The formatter smooths the
// differences between the deterministic and model renderers so both paths
// produce the same dialect; the post-processor assembles the final artifact.
package format

import (
	"regexp"
	"strings"
)

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletRe     = regexp.MustCompile(`^(\s*)[*+]\s+(.*)$`)
	orderedRe    = regexp.MustCompile(`^(\s*)(\d+)[.)]\s+(.*)$`)
	boldUnderRe  = regexp.MustCompile(`__([^_]+)__`)
	emUnderRe    = regexp.MustCompile(`(^|[^_\w])_([^_\s][^_]*?)_($|[^_\w])`)
	emptyEmphRe  = regexp.MustCompile(`\*\*\s*\*\*|\*\s+\*`)
	refDefRe     = regexp.MustCompile(`^\s*\[([^\]]+)\]:\s*(\S+)(?:\s+"([^"]*)")?\s*$`)
	refLinkRe    = regexp.MustCompile(`\[([^\]]+)\]\[([^\]]*)\]`)
	fenceMarkRe  = regexp.MustCompile("^\\s*```")
)

// FormatLLM applies markdown-level normalization: heading-skip repair,
// list marker and indent normalization, emphasis cleanup, and
// reference-link inlining. Fenced code blocks pass through untouched.
func FormatLLM(markdown string) string {
	lines := strings.Split(markdown, "\n")

	refs := collectRefDefs(lines)

	var out []string
	lastLevel := 0
	inFence := false
	for _, line := range lines {
		if fenceMarkRe.MatchString(line) {
			inFence = !inFence
			out = append(out, line)
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		if _, isDef := parseRefDef(line); isDef && len(refs) > 0 {
			continue
		}

		line = normalizeList(line)
		line = cleanEmphasis(line)
		line = inlineRefLinks(line, refs)

		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			if level > lastLevel+1 {
				level = lastLevel + 1
			}
			lastLevel = level
			line = strings.Repeat("#", level) + " " + m[2]
		}

		out = append(out, line)
	}

	return strings.Join(out, "\n")
}

type refDef struct {
	url   string
	title string
}

func collectRefDefs(lines []string) map[string]refDef {
	refs := make(map[string]refDef)
	inFence := false
	for _, line := range lines {
		if fenceMarkRe.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := refDefRe.FindStringSubmatch(line); m != nil {
			refs[strings.ToLower(m[1])] = refDef{url: m[2], title: m[3]}
		}
	}
	return refs
}

func parseRefDef(line string) (string, bool) {
	m := refDefRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// inlineRefLinks rewrites [text][label] references as inline links using
// the collected definitions. Unknown labels are left alone.
func inlineRefLinks(line string, refs map[string]refDef) string {
	if len(refs) == 0 {
		return line
	}
	return refLinkRe.ReplaceAllStringFunc(line, func(match string) string {
		m := refLinkRe.FindStringSubmatch(match)
		label := m[2]
		if label == "" {
			label = m[1]
		}
		def, ok := refs[strings.ToLower(label)]
		if !ok {
			return match
		}
		if def.title != "" {
			return "[" + m[1] + "](" + def.url + " \"" + def.title + "\")"
		}
		return "[" + m[1] + "](" + def.url + ")"
	})
}

// normalizeList rewrites * and + bullets to - and rounds list indentation
// down to multiples of two spaces.
func normalizeList(line string) string {
	if m := bulletRe.FindStringSubmatch(line); m != nil {
		return normalizeIndent(m[1]) + "- " + m[2]
	}
	if m := orderedRe.FindStringSubmatch(line); m != nil {
		return normalizeIndent(m[1]) + m[2] + ". " + m[3]
	}
	return line
}

func normalizeIndent(indent string) string {
	width := 0
	for _, r := range indent {
		if r == '\t' {
			width += 2
		} else {
			width++
		}
	}
	return strings.Repeat(" ", width-width%2)
}

// cleanEmphasis converts underscore emphasis to asterisk form and drops
// degenerate empty emphasis pairs.
func cleanEmphasis(line string) string {
	line = boldUnderRe.ReplaceAllString(line, "**$1**")
	line = emUnderRe.ReplaceAllString(line, "$1*$2*$3")
	line = emptyEmphRe.ReplaceAllString(line, " ")
	return line
}

// HeadingLevels returns the resolved level sequence of ATX headings,
// skipping fenced code. Exposed for verification and tests.
func HeadingLevels(markdown string) []int {
	var levels []int
	inFence := false
	for _, line := range strings.Split(markdown, "\n") {
		if fenceMarkRe.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := headingRe.FindStringSubmatch(line); m != nil {
			levels = append(levels, len(m[1]))
		}
	}
	return levels
}
