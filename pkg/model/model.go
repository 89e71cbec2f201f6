// Package model runs the model-based rendering path: it owns the local
// model lifecycle (load, convert, unload) and reports outcomes explicitly
// so the orchestrator can decide between success, fallback, and failure
// without exception-style control flow.
package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mdistill/mdistill/internal/logger"
)

// maxContextTokens caps the execution context so a single conversion
// cannot exhaust memory on very large requested budgets.
const maxContextTokens = 8192

var (
	// ErrNotLoaded is returned when Convert is called before Load.
	ErrNotLoaded = errors.New("model not loaded")

	// ErrUnavailable is returned when the model file is missing or empty.
	ErrUnavailable = errors.New("model unavailable")
)

// Config configures a Runner.
type Config struct {
	// ModelPath is the quantized-weights file on disk. Existence plus
	// non-zero size is the sole availability predicate.
	ModelPath string

	// Model is the name the inference server knows the model by.
	// Defaults to the model file's base name.
	Model string

	// Endpoint is the local inference server address.
	Endpoint string

	Temperature float64
	MaxTokens   int

	// OnProgress receives batched generation progress (total characters
	// produced so far). Never called per-token.
	OnProgress func(chars int)
}

// OutcomeKind classifies a conversion attempt.
type OutcomeKind int

const (
	// OutcomeOK means the model produced markdown.
	OutcomeOK OutcomeKind = iota

	// OutcomeFallback means the attempt failed but the deterministic
	// renderer should take over.
	OutcomeFallback

	// OutcomeFatal means the attempt failed in a way fallback cannot
	// help with (caller error, canceled context).
	OutcomeFatal
)

// Outcome is the explicit result of a model conversion attempt.
type Outcome struct {
	Kind     OutcomeKind
	Markdown string
	Err      error
}

// Engine abstracts the inference backend that executes prompts.
type Engine interface {
	// Load brings the model into memory with the given context size.
	Load(ctx context.Context, model string, contextTokens int) error

	// Generate streams a completion for the prompt, invoking emit with
	// accumulated-output sizes at a bounded rate.
	Generate(ctx context.Context, model, prompt string, opts GenerateOptions, emit func(chars int)) (string, error)

	// Unload releases the model's memory. Safe to call repeatedly.
	Unload(ctx context.Context, model string) error
}

// GenerateOptions tunes a single generation.
type GenerateOptions struct {
	Temperature   float64
	MaxTokens     int
	ContextTokens int
}

// Runner owns one loaded model instance for the duration of a conversion.
type Runner struct {
	cfg    Config
	engine Engine

	mu     sync.Mutex
	loaded bool
}

// NewRunner creates a Runner. A nil engine defaults to the local
// llama-server/Ollama-compatible HTTP engine.
func NewRunner(cfg Config, engine Engine) *Runner {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Model == "" {
		cfg.Model = modelNameFromPath(cfg.ModelPath)
	}
	if engine == nil {
		engine = NewLlamaEngine(cfg.Endpoint)
	}
	return &Runner{cfg: cfg, engine: engine}
}

// Available reports whether the model file exists with non-zero size.
func (r *Runner) Available() bool {
	if r.cfg.ModelPath == "" {
		return false
	}
	info, err := os.Stat(r.cfg.ModelPath)
	return err == nil && info.Size() > 0
}

// Loaded reports whether the model is currently loaded.
func (r *Runner) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// ContextTokens returns the execution context size for this runner.
func (r *Runner) ContextTokens() int {
	if r.cfg.MaxTokens < maxContextTokens {
		return r.cfg.MaxTokens
	}
	return maxContextTokens
}

// Load verifies availability and brings the model into memory.
func (r *Runner) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	if !r.available() {
		return fmt.Errorf("%w: %s", ErrUnavailable, r.cfg.ModelPath)
	}

	start := time.Now()
	logger.Debug("loading model", "model", r.cfg.Model, "path", r.cfg.ModelPath)
	if err := r.engine.Load(ctx, r.cfg.Model, r.ContextTokens()); err != nil {
		return fmt.Errorf("model load failed: %w", err)
	}
	r.loaded = true
	logger.Info("model loaded", "model", r.cfg.Model, "elapsed", time.Since(start))
	return nil
}

func (r *Runner) available() bool {
	if r.cfg.ModelPath == "" {
		return false
	}
	info, err := os.Stat(r.cfg.ModelPath)
	return err == nil && info.Size() > 0
}

// Convert renders HTML to markdown through the loaded model. The outcome
// is explicit: generation failures request fallback, while calling without
// a loaded model or with a canceled context is fatal.
func (r *Runner) Convert(ctx context.Context, html string) Outcome {
	if !r.Loaded() {
		return Outcome{Kind: OutcomeFatal, Err: ErrNotLoaded}
	}

	prompt := buildPrompt(html)
	raw, err := r.engine.Generate(ctx, r.cfg.Model, prompt, GenerateOptions{
		Temperature:   r.cfg.Temperature,
		MaxTokens:     r.cfg.MaxTokens,
		ContextTokens: r.ContextTokens(),
	}, r.cfg.OnProgress)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{Kind: OutcomeFatal, Err: ctx.Err()}
		}
		return Outcome{Kind: OutcomeFallback, Err: fmt.Errorf("inference failed: %w", err)}
	}

	markdown := StripFence(raw)
	if strings.TrimSpace(markdown) == "" {
		return Outcome{Kind: OutcomeFallback, Err: errors.New("model produced empty output")}
	}
	return Outcome{Kind: OutcomeOK, Markdown: markdown}
}

// Unload releases the model. Safe to call multiple times and safe to call
// when nothing was loaded.
func (r *Runner) Unload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return nil
	}
	r.loaded = false

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.engine.Unload(ctx, r.cfg.Model); err != nil {
		return fmt.Errorf("model unload failed: %w", err)
	}
	logger.Debug("model unloaded", "model", r.cfg.Model)
	return nil
}

// WithModel is the scoped-acquisition helper: it loads the model, runs fn,
// and guarantees exactly one Unload on every exit path.
func WithModel(ctx context.Context, r *Runner, fn func(ctx context.Context) error) (err error) {
	if err := r.Load(ctx); err != nil {
		return err
	}
	defer func() {
		if uerr := r.Unload(); uerr != nil && err == nil {
			err = uerr
		}
	}()
	return fn(ctx)
}

// StripFence removes a surrounding fenced-code wrapper from a completion.
// Models sometimes echo the whole document inside a ```markdown fence.
func StripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return trimmed
	}
	// Opening fence may carry a language tag; drop first and last lines.
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}

func modelNameFromPath(path string) string {
	if path == "" {
		return ""
	}
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".gguf")
}
