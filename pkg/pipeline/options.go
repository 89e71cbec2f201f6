package pipeline

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/mdistill/mdistill/pkg/render"
)

// Options is the immutable configuration snapshot for one conversion.
// Callers start from DefaultOptions and override fields; the pipeline
// validates once at entry and never re-derives options mid-run.
type Options struct {
	// ExtractContent runs reader-mode main-content extraction first.
	ExtractContent bool

	// AggressiveClean enables noise-taxonomy and boilerplate removal.
	AggressiveClean bool

	// Content toggles.
	IncludeImages bool
	IncludeLinks  bool
	IncludeTables bool

	// IncludeMeta prepends frontmatter when metadata is non-empty.
	IncludeMeta bool

	// MaxLength truncates output at this many characters; 0 disables.
	MaxLength int `validate:"gte=0"`

	// BaseURL resolves relative URLs in the document.
	BaseURL string

	// UseLLM selects the model-based rendering path.
	UseLLM bool

	// LLMFallback re-runs the deterministic renderer when the model path
	// fails. Ignored unless UseLLM is set.
	LLMFallback bool

	// ModelPath is the quantized model file. Empty means the default
	// registry location.
	ModelPath string

	// ModelEndpoint is the local inference server address.
	ModelEndpoint string

	Temperature float64 `validate:"gte=0,lte=2"`
	MaxTokens   int     `validate:"gte=0"`

	// Rules are custom renderer rules, overriding built-ins by name.
	Rules []render.Rule

	// OnEvent observes pipeline progress. May be nil.
	OnEvent func(Event)
}

// DefaultOptions returns the fully-populated default configuration.
func DefaultOptions() Options {
	return Options{
		ExtractContent:  true,
		AggressiveClean: true,
		IncludeImages:   true,
		IncludeLinks:    true,
		IncludeTables:   true,
		IncludeMeta:     true,
		MaxLength:       0,
		UseLLM:          false,
		LLMFallback:     true,
		Temperature:     0.2,
		MaxTokens:       4096,
	}
}

var validate = validator.New()

// Validate checks option ranges.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// emit notifies the observer, if any.
func (o Options) emit(ev Event) {
	if o.OnEvent != nil {
		o.OnEvent(ev)
	}
}
