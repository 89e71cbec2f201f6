package render

import (
	"strings"
	"testing"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

func TestRenderBasics(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string
		excludes []string
	}{
		{
			name:     "headings and paragraphs",
			html:     `<h1>Hello</h1><p>World</p>`,
			contains: []string{"# Hello", "World"},
		},
		{
			name:     "unordered list uses dash markers",
			html:     `<ul><li>one</li><li>two</li></ul>`,
			contains: []string{"- one", "- two"},
			excludes: []string{"* one"},
		},
		{
			name:     "emphasis delimiters",
			html:     `<p><em>soft</em> and <strong>hard</strong></p>`,
			contains: []string{"*soft*", "**hard**"},
		},
		{
			name:     "links are inline",
			html:     `<p><a href="https://example.com">site</a></p>`,
			contains: []string{"[site](https://example.com)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New().Render(tt.html)
			if err != nil {
				t.Fatalf("Render returned error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q\ngot: %s", want, out)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(out, unwanted) {
					t.Errorf("expected output to not contain %q\ngot: %s", unwanted, out)
				}
			}
		})
	}
}

func TestRenderTable(t *testing.T) {
	t.Run("thead drives headers", func(t *testing.T) {
		html := `<table>
			<thead><tr><th>Name</th><th align="right">Count</th></tr></thead>
			<tbody><tr><td>apples</td><td>3</td></tr></tbody>
		</table>`
		out, err := New().Render(html)
		if err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(out, "| Name | Count |") {
			t.Errorf("expected header row, got: %s", out)
		}
		if !strings.Contains(out, "| --- | ---: |") {
			t.Errorf("expected alignment row, got: %s", out)
		}
		if !strings.Contains(out, "| apples | 3 |") {
			t.Errorf("expected data row, got: %s", out)
		}
	})

	t.Run("first tr is the header without thead", func(t *testing.T) {
		html := `<table><tr><td>H1</td><td>H2</td></tr><tr><td>a</td><td>b</td></tr></table>`
		out, err := New().Render(html)
		if err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(out, "| H1 | H2 |") {
			t.Errorf("expected first row as header, got: %s", out)
		}
		if !strings.Contains(out, "| a | b |") {
			t.Errorf("expected second row as data, got: %s", out)
		}
		if strings.Count(out, "| H1 | H2 |") != 1 {
			t.Errorf("header row duplicated as data, got: %s", out)
		}
	})

	t.Run("ragged rows are padded to header width", func(t *testing.T) {
		html := `<table>
			<thead><tr><th>A</th><th>B</th><th>C</th></tr></thead>
			<tbody><tr><td>1</td></tr><tr><td>1</td><td>2</td><td>3</td><td>4</td></tr></tbody>
		</table>`
		out, err := New().Render(html)
		if err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(out, "| 1 |  |  |") {
			t.Errorf("expected short row padded, got: %s", out)
		}
		if strings.Contains(out, "| 4 |") {
			t.Errorf("expected extra cell trimmed, got: %s", out)
		}
	})

	t.Run("pipes in cells are escaped", func(t *testing.T) {
		html := `<table><tr><td>a|b</td><td>c</td></tr><tr><td>x</td><td>y</td></tr></table>`
		out, err := New().Render(html)
		if err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(out, `a\|b`) {
			t.Errorf("expected escaped pipe, got: %s", out)
		}
	})
}

func TestRenderCodeBlock(t *testing.T) {
	t.Run("language from code class", func(t *testing.T) {
		html := `<pre><code class="language-go">func main() {}</code></pre>`
		out, err := New().Render(html)
		if err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(out, "```go\nfunc main() {}\n```") {
			t.Errorf("expected fenced go block, got: %s", out)
		}
	})

	t.Run("language from pre class", func(t *testing.T) {
		html := `<pre class="lang-python"><code>print("hi")</code></pre>`
		out, err := New().Render(html)
		if err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(out, "```python") {
			t.Errorf("expected python fence, got: %s", out)
		}
	})

	t.Run("no language yields bare fence", func(t *testing.T) {
		html := `<pre><code>plain</code></pre>`
		out, err := New().Render(html)
		if err != nil {
			t.Fatalf("Render returned error: %v", err)
		}
		if !strings.Contains(out, "```\nplain\n```") {
			t.Errorf("expected bare fence, got: %s", out)
		}
	})
}

func TestRenderImage(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string
		excludes []string
	}{
		{
			name:     "standard image",
			html:     `<p><img src="/a.png" alt="diagram"/></p>`,
			contains: []string{"![diagram](/a.png)"},
		},
		{
			name:     "data-src fallback for lazy images",
			html:     `<p><img data-src="/lazy.png" alt="lazy"/></p>`,
			contains: []string{"![lazy](/lazy.png)"},
		},
		{
			name:     "title clause only when title exists",
			html:     `<p><img src="/b.png" alt="x" title="The Title"/></p>`,
			contains: []string{`![x](/b.png "The Title")`},
		},
		{
			name:     "sourceless image renders to nothing",
			html:     `<p>before <img alt="ghost"/> after</p>`,
			contains: []string{"before", "after"},
			excludes: []string{"![ghost]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New().Render(tt.html)
			if err != nil {
				t.Fatalf("Render returned error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q\ngot: %s", want, out)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(out, unwanted) {
					t.Errorf("expected output to not contain %q\ngot: %s", unwanted, out)
				}
			}
		})
	}
}

func TestRenderBlockquote(t *testing.T) {
	out, err := New().Render(`<blockquote>line one
line two</blockquote>`)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "> line one") || !strings.Contains(out, "> line two") {
		t.Errorf("expected every line prefixed, got: %s", out)
	}
}

func TestRenderEmptyNodeSuppression(t *testing.T) {
	out, err := New().Render(`<p>kept</p><p>   </p><div>	</div>`)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("expected real content kept, got: %s", out)
	}
	if strings.Contains(out, "\n\n\n") {
		t.Errorf("expected empty elements to collapse, got: %q", out)
	}
}

func TestCustomRuleOverride(t *testing.T) {
	custom := Rule{
		Name:   RuleImage,
		Filter: []string{"img"},
		Replacement: func(_ string, sel *goquery.Selection, _ *md.Options) *string {
			alt, _ := sel.Attr("alt")
			return md.String("[IMAGE: " + alt + "]")
		},
	}
	r := New(custom)

	names := r.RuleNames()
	count := 0
	for _, n := range names {
		if n == RuleImage {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected image rule replaced, not duplicated: %v", names)
	}

	out, err := r.Render(`<p><img src="/a.png" alt="chart"/></p>`)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "[IMAGE: chart]") {
		t.Errorf("expected custom replacement, got: %s", out)
	}
	if strings.Contains(out, "![chart]") {
		t.Errorf("expected built-in image rule overridden, got: %s", out)
	}
}

func TestCustomRuleAppend(t *testing.T) {
	custom := Rule{
		Name:   "mark",
		Filter: []string{"mark"},
		Replacement: func(content string, _ *goquery.Selection, _ *md.Options) *string {
			return md.String("==" + content + "==")
		},
	}
	r := New(custom)

	if got := len(r.RuleNames()); got != len(builtinRules())+1 {
		t.Fatalf("expected custom rule appended, got %d rules", got)
	}

	out, err := r.Render(`<p>see <mark>this</mark></p>`)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(out, "==this==") {
		t.Errorf("expected appended rule applied, got: %s", out)
	}
}
