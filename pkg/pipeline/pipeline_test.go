package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/mdistill/mdistill/pkg/model"
	"github.com/mdistill/mdistill/pkg/model/registry"
)

// baseOptions disables extraction and metadata so render behavior can be
// asserted directly.
func baseOptions() Options {
	opts := DefaultOptions()
	opts.ExtractContent = false
	opts.IncludeMeta = false
	return opts
}

func TestConvertBasic(t *testing.T) {
	result, err := Convert(context.Background(), `<html><body><h1>Hello</h1><p>World</p></body></html>`, baseOptions())
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if !strings.Contains(result.Markdown, "# Hello") {
		t.Errorf("expected heading in output, got: %s", result.Markdown)
	}
	if !strings.Contains(result.Markdown, "World") {
		t.Errorf("expected paragraph in output, got: %s", result.Markdown)
	}
	if !strings.Contains(result.Markdown, "# Hello\n\nWorld") {
		t.Errorf("expected blank line between blocks, got: %q", result.Markdown)
	}
	if result.Stats.InputLength == 0 || result.Stats.OutputLength == 0 {
		t.Errorf("expected non-zero length stats, got %+v", result.Stats)
	}
	if result.Stats.ProcessingTimeMs < 0 {
		t.Errorf("expected non-negative processing time, got %d", result.Stats.ProcessingTimeMs)
	}
}

func TestConvertRemovesChrome(t *testing.T) {
	html := `<html><body>
		<nav><a href="/">Home</a> | <a href="/about">About</a></nav>
		<div class="cookie-banner">We use cookies to improve your experience.</div>
		<article>
			<h1>The Article</h1>
			<p>This is the first paragraph of the article body with enough words to matter.</p>
			<p>A second paragraph keeps the content going and gives the page real substance.</p>
		</article>
		<footer id="footer">All rights reserved.</footer>
	</body></html>`

	opts := DefaultOptions()
	opts.IncludeMeta = false
	result, err := Convert(context.Background(), html, opts)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if !strings.Contains(result.Markdown, "first paragraph of the article") {
		t.Errorf("expected article body preserved, got: %s", result.Markdown)
	}
	for _, chrome := range []string{"Home", "We use cookies", "All rights reserved"} {
		if strings.Contains(result.Markdown, chrome) {
			t.Errorf("expected chromed text %q removed, got: %s", chrome, result.Markdown)
		}
	}
}

func TestConvertContentToggles(t *testing.T) {
	html := `<html><body>
		<h1>Doc</h1>
		<p>Text with a <a href="https://example.com">link</a>.</p>
		<p><img src="https://example.com/a.png" alt="pic"/></p>
		<table><tr><th>H</th></tr><tr><td>v</td></tr></table>
	</body></html>`

	t.Run("images excluded", func(t *testing.T) {
		opts := baseOptions()
		opts.IncludeImages = false
		result, err := Convert(context.Background(), html, opts)
		if err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		if strings.Contains(result.Markdown, "![") {
			t.Errorf("expected no image syntax, got: %s", result.Markdown)
		}
		if result.Stats.ImageCount != 0 {
			t.Errorf("expected zero image count, got %d", result.Stats.ImageCount)
		}
	})

	t.Run("links excluded keeps text", func(t *testing.T) {
		opts := baseOptions()
		opts.IncludeLinks = false
		result, err := Convert(context.Background(), html, opts)
		if err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		if strings.Contains(result.Markdown, "](https://example.com)") {
			t.Errorf("expected no link syntax, got: %s", result.Markdown)
		}
		if !strings.Contains(result.Markdown, "link") {
			t.Errorf("expected link text kept, got: %s", result.Markdown)
		}
		if result.Stats.LinkCount != 0 {
			t.Errorf("expected zero link count, got %d", result.Stats.LinkCount)
		}
	})

	t.Run("tables excluded", func(t *testing.T) {
		opts := baseOptions()
		opts.IncludeTables = false
		result, err := Convert(context.Background(), html, opts)
		if err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		if strings.Contains(result.Markdown, "| H |") {
			t.Errorf("expected no table, got: %s", result.Markdown)
		}
	})

	t.Run("everything included", func(t *testing.T) {
		result, err := Convert(context.Background(), html, baseOptions())
		if err != nil {
			t.Fatalf("Convert failed: %v", err)
		}
		if result.Stats.ImageCount != 1 {
			t.Errorf("expected one image, got %d", result.Stats.ImageCount)
		}
		if result.Stats.LinkCount != 1 {
			t.Errorf("expected one link, got %d", result.Stats.LinkCount)
		}
		if !strings.Contains(result.Markdown, "| H |") {
			t.Errorf("expected table rendered, got: %s", result.Markdown)
		}
	})
}

func TestConvertFrontmatter(t *testing.T) {
	html := `<html><head>
		<meta property="og:title" content="Page Title"/>
		<meta name="author" content="Writer"/>
	</head><body><h1>Page Title</h1><p>Some body text for the page.</p></body></html>`

	opts := baseOptions()
	opts.IncludeMeta = true
	result, err := Convert(context.Background(), html, opts)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if !strings.HasPrefix(result.Markdown, "---\n") {
		t.Errorf("expected frontmatter, got: %s", result.Markdown)
	}
	if !strings.Contains(result.Markdown, "title: Page Title") {
		t.Errorf("expected title field, got: %s", result.Markdown)
	}
	if result.Metadata.Title != "Page Title" {
		t.Errorf("expected metadata title, got %q", result.Metadata.Title)
	}
	if result.Metadata.Author != "Writer" {
		t.Errorf("expected metadata author, got %q", result.Metadata.Author)
	}
	if result.Metadata.WordCount == 0 {
		t.Error("expected computed word count")
	}
}

func TestConvertMaxLength(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 60; i++ {
		sb.WriteString("<p>A paragraph with a reasonable amount of filler text in it.</p>")
	}
	sb.WriteString("</body></html>")

	opts := baseOptions()
	opts.MaxLength = 300
	result, err := Convert(context.Background(), sb.String(), opts)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if !strings.HasSuffix(result.Markdown, "[Content truncated]") {
		t.Errorf("expected truncation marker, got tail: %q", result.Markdown[len(result.Markdown)-40:])
	}
	if len(result.Markdown) > 300+len("\n\n[Content truncated]") {
		t.Errorf("expected output bounded, got %d bytes", len(result.Markdown))
	}
}

func TestConvertModelFallback(t *testing.T) {
	html := `<html><body><h1>Hello</h1><p>World</p></body></html>`

	t.Run("missing model falls back to deterministic", func(t *testing.T) {
		opts := baseOptions()
		opts.UseLLM = true
		opts.LLMFallback = true
		opts.ModelPath = filepath.Join(t.TempDir(), "absent.gguf")

		var events []EventType
		opts.OnEvent = func(ev Event) { events = append(events, ev.Type) }

		result, err := Convert(context.Background(), html, opts)
		if err != nil {
			t.Fatalf("expected fallback to succeed, got: %v", err)
		}
		if !strings.Contains(result.Markdown, "# Hello") {
			t.Errorf("expected deterministic output, got: %s", result.Markdown)
		}

		sawFallback := false
		for _, ev := range events {
			if ev == EventFallbackStart {
				sawFallback = true
			}
		}
		if !sawFallback {
			t.Errorf("expected fallback-start event, got: %v", events)
		}
	})

	t.Run("missing model without fallback fails", func(t *testing.T) {
		opts := baseOptions()
		opts.UseLLM = true
		opts.LLMFallback = false
		opts.ModelPath = filepath.Join(t.TempDir(), "absent.gguf")

		if _, err := Convert(context.Background(), html, opts); err == nil {
			t.Error("expected error when fallback is disabled")
		}
	})
}

func TestConvertValidation(t *testing.T) {
	opts := baseOptions()
	opts.Temperature = 3.5
	if _, err := Convert(context.Background(), "<p>x</p>", opts); err == nil {
		t.Error("expected validation error for out-of-range temperature")
	}

	opts = baseOptions()
	opts.MaxLength = -1
	if _, err := Convert(context.Background(), "<p>x</p>", opts); err == nil {
		t.Error("expected validation error for negative max length")
	}
}

func TestConvertEventOrdering(t *testing.T) {
	var events []EventType
	opts := baseOptions()
	opts.OnEvent = func(ev Event) { events = append(events, ev.Type) }

	if _, err := Convert(context.Background(), "<p>hi there</p>", opts); err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	if len(events) < 2 {
		t.Fatalf("expected start and complete events, got: %v", events)
	}
	if events[0] != EventConversionStart {
		t.Errorf("expected first event to be start, got %v", events[0])
	}
	if events[len(events)-1] != EventConversionComplete {
		t.Errorf("expected last event to be complete, got %v", events[len(events)-1])
	}
}

func TestConvertLeadingRule(t *testing.T) {
	html := `<html><body><hr><p>Body text after a rule.</p></body></html>`

	result, err := Convert(context.Background(), html, baseOptions())
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if strings.HasPrefix(result.Markdown, "---") {
		t.Errorf("output without frontmatter must not open with ---, got: %q", result.Markdown)
	}
	if !strings.Contains(result.Markdown, "Body text after a rule.") {
		t.Errorf("expected body content, got: %q", result.Markdown)
	}
}

func TestReconcileOutcome(t *testing.T) {
	unloadErr := errors.New("unload failed")
	loadErr := errors.New("load failed")
	ok := model.Outcome{Kind: model.OutcomeOK, Markdown: "# Done"}

	t.Run("no lifecycle error keeps result", func(t *testing.T) {
		got := reconcileOutcome(ok, nil, nil)
		if got.Kind != model.OutcomeOK || got.Markdown != "# Done" {
			t.Errorf("expected result unchanged, got %+v", got)
		}
	})

	t.Run("unload failure keeps successful markdown", func(t *testing.T) {
		got := reconcileOutcome(ok, unloadErr, nil)
		if got.Kind != model.OutcomeOK {
			t.Errorf("expected success preserved past unload failure, got %+v", got)
		}
		if got.Markdown != "# Done" {
			t.Errorf("expected markdown preserved, got %q", got.Markdown)
		}
	})

	t.Run("load failure requests fallback", func(t *testing.T) {
		got := reconcileOutcome(model.Outcome{}, loadErr, nil)
		if got.Kind != model.OutcomeFallback {
			t.Errorf("expected fallback for load failure, got %+v", got)
		}
		if got.Err == nil {
			t.Error("expected lifecycle error carried in outcome")
		}
	})

	t.Run("canceled context is fatal", func(t *testing.T) {
		got := reconcileOutcome(model.Outcome{}, loadErr, context.Canceled)
		if got.Kind != model.OutcomeFatal {
			t.Errorf("expected fatal for canceled context, got %+v", got)
		}
	})
}

func TestEnsureModel(t *testing.T) {
	payload := []byte("tiny model weights")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	t.Run("download emits lifecycle events", func(t *testing.T) {
		reg := registry.New(t.TempDir())
		info := registry.ModelInfo{Name: "tiny-test", DownloadURL: server.URL + "/tiny.gguf"}

		var events []Event
		path, err := EnsureModel(context.Background(), reg, info, func(ev Event) { events = append(events, ev) })
		if err != nil {
			t.Fatalf("EnsureModel failed: %v", err)
		}
		if !strings.HasSuffix(path, "tiny-test.gguf") {
			t.Errorf("unexpected cache path %q", path)
		}

		if len(events) < 3 {
			t.Fatalf("expected start, progress, and complete events, got: %v", events)
		}
		if events[0].Type != EventDownloadStart {
			t.Errorf("expected first event download-start, got %v", events[0].Type)
		}
		if events[len(events)-1].Type != EventDownloadComplete {
			t.Errorf("expected last event download-complete, got %v", events[len(events)-1].Type)
		}
		sawProgress := false
		for _, ev := range events {
			if ev.Type == EventDownloadProgress && ev.Total == int64(len(payload)) {
				sawProgress = true
			}
		}
		if !sawProgress {
			t.Error("expected a progress event carrying the total size")
		}

		events = nil
		if _, err := EnsureModel(context.Background(), reg, info, func(ev Event) { events = append(events, ev) }); err != nil {
			t.Fatalf("EnsureModel failed on cached model: %v", err)
		}
		if len(events) != 0 {
			t.Errorf("expected no events for a cached model, got: %v", events)
		}
	})

	t.Run("missing download URL fails without completion", func(t *testing.T) {
		reg := registry.New(t.TempDir())

		var events []Event
		_, err := EnsureModel(context.Background(), reg, registry.ModelInfo{Name: "absent"}, func(ev Event) { events = append(events, ev) })
		if err == nil {
			t.Fatal("expected error for model with no download URL")
		}
		for _, ev := range events {
			if ev.Type == EventDownloadComplete {
				t.Error("expected no completion event on failure")
			}
		}
	})
}
