// Package pipeline orchestrates HTML-to-markdown conversion: content
// extraction, cleaning, structure repair, rendering (deterministic or
// model-based with fallback), formatting, and post-processing.
//
// Every stage boundary is a full string serialization; no two stages ever
// share a live DOM handle, which keeps stage ordering bugs impossible by
// construction.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mdistill/mdistill/internal/logger"
	"github.com/mdistill/mdistill/pkg/clean"
	"github.com/mdistill/mdistill/pkg/extract"
	"github.com/mdistill/mdistill/pkg/format"
	"github.com/mdistill/mdistill/pkg/meta"
	"github.com/mdistill/mdistill/pkg/model"
	"github.com/mdistill/mdistill/pkg/model/registry"
	"github.com/mdistill/mdistill/pkg/render"
	"github.com/mdistill/mdistill/pkg/structure"
)

// Convert runs the full conversion pipeline over html.
func Convert(ctx context.Context, html string, opts Options) (*Result, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	opts.emit(Event{Type: EventConversionStart})

	// Stage 2 scraping fills gaps the extractor leaves.
	scraped := meta.Extract(html, opts.BaseURL)

	content := html
	metadata := scraped
	extractionSucceeded := false
	if opts.ExtractContent {
		article, err := extract.FromHTML(html, opts.BaseURL)
		switch {
		case err != nil:
			logger.Warn("main-content extraction failed, using raw HTML", "error", err)
		case article == nil:
			logger.Warn("main-content extraction found nothing, using raw HTML")
		default:
			content = article.ContentHTML
			metadata = meta.Merge(article.Metadata, scraped)
			extractionSucceeded = true
		}
	}

	cleaner := clean.New(clean.Options{
		Aggressive: opts.AggressiveClean,
		BaseURL:    opts.BaseURL,
	})
	content, err := cleaner.Clean(content)
	if err != nil {
		return nil, fmt.Errorf("clean stage failed: %w", err)
	}
	if st := cleaner.Stats(); st != nil {
		logger.Debug("clean stage complete", "summary", st.String())
	}

	if content, err = structureEnhance(content); err != nil {
		return nil, err
	}

	if content, err = clean.Filter(content, clean.FilterOptions{
		IncludeImages: opts.IncludeImages,
		IncludeLinks:  opts.IncludeLinks,
		IncludeTables: opts.IncludeTables,
	}); err != nil {
		return nil, fmt.Errorf("content filter failed: %w", err)
	}

	markdown, err := renderStage(ctx, content, opts)
	if err != nil {
		opts.emit(Event{Type: EventConversionError, Err: err})
		return nil, err
	}

	markdown = format.FormatLLM(markdown)

	final, postStats := format.PostProcess(markdown, metadata, format.PostProcessOptions{
		IncludeMeta: opts.IncludeMeta,
		MaxLength:   opts.MaxLength,
	})
	metadata.WordCount = postStats.WordCount
	metadata.ReadingTime = postStats.ReadingTime

	result := &Result{
		Markdown: final,
		Metadata: metadata,
		Stats: Stats{
			InputLength:         len(html),
			OutputLength:        len(final),
			ProcessingTimeMs:    time.Since(start).Milliseconds(),
			ExtractionSucceeded: extractionSucceeded,
			ImageCount:          postStats.ImageCount,
			LinkCount:           postStats.LinkCount,
		},
	}

	opts.emit(Event{
		Type:     EventConversionComplete,
		Progress: int64(len(final)),
		Elapsed:  time.Since(start),
	})
	return result, nil
}

func structureEnhance(content string) (string, error) {
	out, err := structure.Enhance(content)
	if err != nil {
		return "", fmt.Errorf("structure stage failed: %w", err)
	}
	out, err = structure.NormalizeCode(out)
	if err != nil {
		return "", fmt.Errorf("code normalization failed: %w", err)
	}
	return out, nil
}

// renderMode is the render-stage state machine. Deterministic and
// fallbackToDeterministic are terminal successes; failed is terminal
// error.
type renderMode int

const (
	modeDeterministic renderMode = iota
	modeModelAttempt
	modeFallbackToDeterministic
	modeFailed
)

// renderStage picks and runs a renderer per the mode state machine.
func renderStage(ctx context.Context, content string, opts Options) (string, error) {
	mode := modeDeterministic
	if opts.UseLLM {
		mode = modeModelAttempt
	}

	var modelErr error
	for {
		switch mode {
		case modeDeterministic, modeFallbackToDeterministic:
			return render.New(opts.Rules...).Render(content)

		case modeModelAttempt:
			res := modelRender(ctx, content, opts)
			switch res.Kind {
			case model.OutcomeOK:
				return res.Markdown, nil
			case model.OutcomeFatal:
				modelErr = res.Err
				mode = modeFailed
			default:
				modelErr = res.Err
				if opts.LLMFallback {
					opts.emit(Event{Type: EventFallbackStart, Err: modelErr})
					logger.Warn("model path failed, falling back to deterministic renderer", "error", modelErr)
					mode = modeFallbackToDeterministic
				} else {
					mode = modeFailed
				}
			}

		case modeFailed:
			return "", fmt.Errorf("model rendering failed: %w", modelErr)
		}
	}
}

// modelRender runs one model attempt. The model is loaded and released
// inside this call on every path.
func modelRender(ctx context.Context, content string, opts Options) model.Outcome {
	opts.emit(Event{Type: EventModelCheck})

	modelPath := opts.ModelPath
	if modelPath == "" {
		modelPath = registry.New("").PathFor(registry.DefaultModel.Name)
	}

	runner := model.NewRunner(model.Config{
		ModelPath:   modelPath,
		Endpoint:    opts.ModelEndpoint,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		OnProgress: func(chars int) {
			opts.emit(Event{Type: EventConversionProgress, Progress: int64(chars), Total: -1})
		},
	}, nil)

	if !runner.Available() {
		logger.Warn("model file not available", "path", modelPath)
		return model.Outcome{Kind: model.OutcomeFallback, Err: model.ErrUnavailable}
	}

	opts.emit(Event{Type: EventModelLoading})
	loadStart := time.Now()

	var res model.Outcome
	err := model.WithModel(ctx, runner, func(ctx context.Context) error {
		opts.emit(Event{Type: EventModelLoaded, Elapsed: time.Since(loadStart)})
		res = runner.Convert(ctx, content)
		if res.Err != nil {
			logger.Warn("model conversion failed", "error", res.Err)
		}
		return nil
	})
	return reconcileOutcome(res, err, ctx.Err())
}

// reconcileOutcome folds the lifecycle error from WithModel into the
// conversion outcome. Markdown from a successful conversion is kept even
// when the trailing unload fails; a load failure leaves res at its zero
// value and requests fallback.
func reconcileOutcome(res model.Outcome, lifecycleErr, ctxErr error) model.Outcome {
	if lifecycleErr == nil {
		return res
	}
	if ctxErr != nil {
		return model.Outcome{Kind: model.OutcomeFatal, Err: ctxErr}
	}
	if res.Kind == model.OutcomeOK && res.Markdown != "" {
		logger.Warn("model unload failed after successful conversion", "error", lifecycleErr)
		return res
	}
	logger.Warn("model lifecycle failed", "error", lifecycleErr)
	return model.Outcome{Kind: model.OutcomeFallback, Err: lifecycleErr}
}
