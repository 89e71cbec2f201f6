package format

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mdistill/mdistill/pkg/meta"
)

func TestPostProcessFrontmatter(t *testing.T) {
	m := meta.Metadata{Title: "A Title", Author: "Someone"}

	t.Run("frontmatter prepended when requested", func(t *testing.T) {
		out, _ := PostProcess("# Heading\n\nBody text.", m, PostProcessOptions{IncludeMeta: true})
		if !strings.HasPrefix(out, "---\n") {
			t.Errorf("expected frontmatter prefix, got: %s", out)
		}
		if !strings.Contains(out, "title: A Title") {
			t.Errorf("expected title field, got: %s", out)
		}
		if !strings.Contains(out, "author: Someone") {
			t.Errorf("expected author field, got: %s", out)
		}
	})

	t.Run("no frontmatter when disabled", func(t *testing.T) {
		out, _ := PostProcess("# Heading\n\nBody text.", m, PostProcessOptions{IncludeMeta: false})
		if strings.HasPrefix(out, "---") {
			t.Errorf("expected no frontmatter, got: %s", out)
		}
	})

	t.Run("no frontmatter for empty metadata", func(t *testing.T) {
		out, _ := PostProcess("Body only.", meta.Metadata{}, PostProcessOptions{IncludeMeta: true})
		if strings.Contains(out, "---") {
			t.Errorf("expected no frontmatter for empty metadata, got: %s", out)
		}
	})
}

func TestPostProcessLeadingRule(t *testing.T) {
	m := meta.Metadata{Title: "A Title"}

	t.Run("leading rule rewritten without frontmatter", func(t *testing.T) {
		out, _ := PostProcess("---\n\nBody after a rule.", m, PostProcessOptions{IncludeMeta: false})
		if strings.HasPrefix(out, "---") {
			t.Errorf("output without frontmatter must not open with ---, got: %q", out)
		}
		if !strings.HasPrefix(out, "***") {
			t.Errorf("expected leading rule rewritten as ***, got: %q", out)
		}
		if !strings.Contains(out, "Body after a rule.") {
			t.Errorf("expected body preserved, got: %q", out)
		}
	})

	t.Run("rule-only document rewritten", func(t *testing.T) {
		out, _ := PostProcess("---", m, PostProcessOptions{IncludeMeta: false})
		if strings.Contains(out, "---") {
			t.Errorf("expected no --- in output, got: %q", out)
		}
	})

	t.Run("frontmatter fences untouched by rewrite", func(t *testing.T) {
		out, _ := PostProcess("---\n\nBody after a rule.", m, PostProcessOptions{IncludeMeta: true})
		if !strings.HasPrefix(out, "---\n") {
			t.Errorf("expected frontmatter prefix, got: %q", out)
		}
		if !strings.Contains(out, "title: A Title") {
			t.Errorf("expected title field, got: %q", out)
		}
	})

	t.Run("interior rules untouched", func(t *testing.T) {
		out, _ := PostProcess("Above.\n\n---\n\nBelow.", m, PostProcessOptions{IncludeMeta: false})
		if !strings.Contains(out, "\n---\n") {
			t.Errorf("expected interior rule preserved, got: %q", out)
		}
	})
}

func TestPostProcessTruncation(t *testing.T) {
	long := strings.Repeat("word ", 500)

	t.Run("output is cut and marked", func(t *testing.T) {
		out, stats := PostProcess(long, meta.Metadata{}, PostProcessOptions{MaxLength: 100})
		if !stats.Truncated {
			t.Error("expected truncated flag")
		}
		if !strings.HasSuffix(out, TruncationMarker) {
			t.Errorf("expected truncation marker suffix, got: %q", out)
		}
		body := strings.TrimSuffix(out, TruncationMarker)
		if len(body) > 100 {
			t.Errorf("expected body <= 100 bytes, got %d", len(body))
		}
	})

	t.Run("multi-byte runes are never split", func(t *testing.T) {
		text := strings.Repeat("héllo wörld ", 50)
		out, _ := PostProcess(text, meta.Metadata{}, PostProcessOptions{MaxLength: 101})
		body := strings.TrimSuffix(out, TruncationMarker)
		if !utf8.ValidString(body) {
			t.Errorf("truncation split a rune: %q", body)
		}
	})

	t.Run("short output is untouched", func(t *testing.T) {
		out, stats := PostProcess("short", meta.Metadata{}, PostProcessOptions{MaxLength: 1000})
		if stats.Truncated {
			t.Error("expected no truncation")
		}
		if out != "short" {
			t.Errorf("expected unchanged output, got: %q", out)
		}
	})
}

func TestPostProcessSpacing(t *testing.T) {
	t.Run("blank line inserted before headings", func(t *testing.T) {
		out, _ := PostProcess("intro\n# Heading\nbody", meta.Metadata{}, PostProcessOptions{})
		if !strings.Contains(out, "intro\n\n# Heading") {
			t.Errorf("expected blank line before heading, got: %q", out)
		}
	})

	t.Run("blank lines around fences", func(t *testing.T) {
		out, _ := PostProcess("text\n```go\ncode\n```\nmore", meta.Metadata{}, PostProcessOptions{})
		if !strings.Contains(out, "text\n\n```go") {
			t.Errorf("expected blank line before fence, got: %q", out)
		}
		if !strings.Contains(out, "```\n\nmore") {
			t.Errorf("expected blank line after fence, got: %q", out)
		}
	})

	t.Run("blank runs collapse", func(t *testing.T) {
		out, _ := PostProcess("a\n\n\n\n\nb", meta.Metadata{}, PostProcessOptions{})
		if strings.Contains(out, "\n\n\n") {
			t.Errorf("expected collapsed blanks, got: %q", out)
		}
	})

	t.Run("horizontal rules get breathing room without touching frontmatter", func(t *testing.T) {
		m := meta.Metadata{Title: "T"}
		out, _ := PostProcess("above\n---\nbelow", m, PostProcessOptions{IncludeMeta: true})
		if !strings.HasPrefix(out, "---\ntitle: T\n---") {
			t.Errorf("expected intact frontmatter fences, got: %q", out)
		}
		if !strings.Contains(out, "above\n\n---\n\nbelow") {
			t.Errorf("expected spaced rule in body, got: %q", out)
		}
	})
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"plain prose", "one two three", 3},
		{"code fences excluded", "before\n\n```\nfunc main() {}\n```\n\nafter", 2},
		{"inline code excluded", "run `go build` now", 2},
		{"link text counts once", "see [the docs](https://example.com/docs)", 3},
		{"image alt ignored", "look ![diagram](/a.png) here", 2},
		{"bare urls ignored", "visit https://example.com today", 2},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.in); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestCountImagesAndLinks(t *testing.T) {
	md := "![a](/a.png) and [b](/b) plus `![not](/no)` and\n\n```\n[also not](/no)\n```\n"
	if got := CountImages(md); got != 1 {
		t.Errorf("CountImages = %d, want 1", got)
	}
	if got := CountLinks(md); got != 1 {
		t.Errorf("CountLinks = %d, want 1", got)
	}
}

func TestReadingTime(t *testing.T) {
	stats := func(words int) int {
		_, s := PostProcess(strings.Repeat("word ", words), meta.Metadata{}, PostProcessOptions{})
		return s.ReadingTime
	}
	if got := stats(0); got != 0 {
		t.Errorf("expected 0 minutes for empty text, got %d", got)
	}
	if got := stats(10); got != 1 {
		t.Errorf("expected 1 minute for 10 words, got %d", got)
	}
	if got := stats(300); got != 2 {
		t.Errorf("expected 2 minutes for 300 words, got %d", got)
	}
}

func TestFrontmatterQuoting(t *testing.T) {
	m := meta.Metadata{
		Title:    "Title: with colon",
		Author:   "Plain Author",
		Language: "en",
	}
	fm := Frontmatter(m)

	if !strings.Contains(fm, `title: "Title: with colon"`) {
		t.Errorf("expected quoted title, got: %s", fm)
	}
	if !strings.Contains(fm, "author: Plain Author") {
		t.Errorf("expected unquoted author, got: %s", fm)
	}
	if !strings.HasPrefix(fm, "---\n") || !strings.Contains(fm, "\n---\n\n") {
		t.Errorf("expected fenced block, got: %s", fm)
	}
}

func TestFrontmatterFieldOrder(t *testing.T) {
	m := meta.Metadata{
		Title:     "T",
		Author:    "A",
		Language:  "en",
		WordCount: 12,
	}
	fm := Frontmatter(m)
	title := strings.Index(fm, "title:")
	author := strings.Index(fm, "author:")
	lang := strings.Index(fm, "language:")
	words := strings.Index(fm, "wordCount:")
	if !(title < author && author < lang && lang < words) {
		t.Errorf("unexpected field order: %s", fm)
	}
}
