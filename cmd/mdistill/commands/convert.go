package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mdistill/mdistill/internal/logger"
	"github.com/mdistill/mdistill/internal/output"
	"github.com/mdistill/mdistill/pkg/pipeline"
)

// timeRound keeps logged durations readable.
const timeRound = 10 * time.Millisecond

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Convert an HTML file or stdin to markdown",
	Long: `Convert HTML to clean markdown.

Reads from the given file, or from stdin when the argument is "-" or
omitted.

Examples:
  # Convert a saved page
  mdistill convert page.html

  # Pipe from curl, keep only text content
  curl -s https://example.com | mdistill convert - \
      --include-images=false --include-links=false

  # JSON envelope with metadata and stats
  mdistill convert page.html --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	addConversionFlags(convertCmd.Flags())
}

// addConversionFlags registers the flags shared by convert and fetch.
func addConversionFlags(flags *pflag.FlagSet) {
	flags.String("base-url", "", "base URL for resolving relative links")
	flags.Bool("extract", true, "run main-content extraction before cleaning")
	flags.Bool("aggressive", true, "remove navigation, ads, and boilerplate")
	flags.Bool("include-images", true, "keep images in the output")
	flags.Bool("include-links", true, "keep hyperlinks in the output")
	flags.Bool("include-tables", true, "keep tables in the output")
	flags.Bool("include-metadata", true, "prepend YAML frontmatter with page metadata")
	flags.Int("max-length", 0, "truncate output to this many characters (0=unlimited)")

	flags.Bool("llm", false, "render with the local model instead of the deterministic converter")
	flags.Bool("llm-fallback", true, "fall back to deterministic rendering when the model path fails")
	flags.StringP("model", "m", "", "path to a quantized model file (default: registry cache)")
	flags.String("endpoint", "", "local inference server endpoint")
	flags.Float64("temperature", 0.2, "model sampling temperature")
	flags.Int("max-tokens", 4096, "model output token limit")

	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.StringP("format", "f", "markdown", "output format: markdown, json, jsonl, yaml")
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	html, err := readInput(args)
	if err != nil {
		logger.Error("failed to read input", "error", err)
		return err
	}
	logger.Debug("input read", "size", humanize.Bytes(uint64(len(html))))

	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}

	result, err := pipeline.Convert(ctx, html, opts)
	if err != nil {
		logger.Error("conversion failed", "error", err)
		return err
	}

	return writeResult(cmd, result)
}

// readInput loads HTML from the file argument, or stdin for "-" / no arg.
func readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0]) //#nosec G304 -- CLI tool reads a user-specified file
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

// optionsFromFlags builds pipeline options from the shared conversion
// flags, wiring progress events into the logger.
func optionsFromFlags(cmd *cobra.Command) (pipeline.Options, error) {
	flags := cmd.Flags()
	opts := pipeline.DefaultOptions()

	opts.BaseURL, _ = flags.GetString("base-url")
	opts.ExtractContent, _ = flags.GetBool("extract")
	opts.AggressiveClean, _ = flags.GetBool("aggressive")
	opts.IncludeImages, _ = flags.GetBool("include-images")
	opts.IncludeLinks, _ = flags.GetBool("include-links")
	opts.IncludeTables, _ = flags.GetBool("include-tables")
	opts.IncludeMeta, _ = flags.GetBool("include-metadata")
	opts.MaxLength, _ = flags.GetInt("max-length")

	opts.UseLLM, _ = flags.GetBool("llm")
	opts.LLMFallback, _ = flags.GetBool("llm-fallback")
	opts.ModelPath, _ = flags.GetString("model")
	opts.ModelEndpoint, _ = flags.GetString("endpoint")
	opts.Temperature, _ = flags.GetFloat64("temperature")
	opts.MaxTokens, _ = flags.GetInt("max-tokens")

	opts.OnEvent = logEvent

	if err := opts.Validate(); err != nil {
		logger.Error("invalid options", "error", err)
		return pipeline.Options{}, err
	}
	return opts, nil
}

// logEvent surfaces pipeline progress through the logger.
func logEvent(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventModelCheck:
		logger.Debug("checking model availability")
	case pipeline.EventModelLoading:
		logger.Info("loading model")
	case pipeline.EventModelLoaded:
		logger.Info("model loaded", "elapsed", ev.Elapsed.Round(timeRound))
	case pipeline.EventConversionProgress:
		logger.Debug("model generating", "chars", ev.Progress)
	case pipeline.EventFallbackStart:
		logger.Warn("falling back to deterministic rendering", "reason", ev.Err)
	case pipeline.EventConversionComplete:
		logger.Info("conversion complete",
			"output", humanize.Bytes(uint64(ev.Progress)),
			"elapsed", ev.Elapsed.Round(timeRound))
	case pipeline.EventConversionError:
		logger.Error("conversion error", "error", ev.Err)
	case pipeline.EventDownloadStart:
		logger.Info("downloading model", "model", ev.Message)
	case pipeline.EventDownloadComplete:
		logger.Info("download complete", "model", ev.Message, "elapsed", ev.Elapsed.Round(timeRound))
	case pipeline.EventDownloadProgress:
		if ev.Total > 0 {
			logger.Info("downloading model",
				"progress", humanize.Bytes(uint64(ev.Progress)),
				"total", humanize.Bytes(uint64(ev.Total)))
		} else {
			logger.Info("downloading model", "progress", humanize.Bytes(uint64(ev.Progress)))
		}
	}
}

// writeResult serializes the conversion result per --format and --output.
func writeResult(cmd *cobra.Command, result *pipeline.Result) error {
	out := os.Stdout
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes a user-specified file
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		logger.Error("invalid format", "format", formatStr, "error", err)
		return err
	}

	if format == output.FormatMarkdown {
		md := result.Markdown
		if !strings.HasSuffix(md, "\n") {
			md += "\n"
		}
		_, err := io.WriteString(out, md)
		return err
	}

	writer, err := output.NewWriter(out, format)
	if err != nil {
		return err
	}
	if err := writer.Write(result); err != nil {
		logger.Error("failed to write output", "error", err)
		return err
	}
	return writer.Flush()
}
