package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mdistill/mdistill/internal/logger"
	"github.com/mdistill/mdistill/pkg/fetch"
	"github.com/mdistill/mdistill/pkg/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Fetch a URL and convert it to markdown",
	Long: `Fetch a web page over HTTP and convert it to clean markdown.

The page URL is used as the base for resolving relative links unless
--base-url overrides it.

Examples:
  # Fetch and convert an article
  mdistill fetch https://example.com/article

  # Custom headers and a JSON envelope
  mdistill fetch https://example.com --header "Accept-Language: en" \
      --format json -o article.json`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	flags := fetchCmd.Flags()
	addConversionFlags(flags)

	flags.Duration("timeout", 30*time.Second, "request timeout")
	flags.String("user-agent", fetch.DefaultUserAgent, "User-Agent header")
	flags.StringArray("header", nil, "extra request header as 'Name: value' (can be repeated)")
	flags.Bool("follow-redirects", true, "follow HTTP redirects")
	flags.Int("max-redirects", 10, "maximum redirects to follow")
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	targetURL := args[0]
	flags := cmd.Flags()

	timeout, _ := flags.GetDuration("timeout")
	userAgent, _ := flags.GetString("user-agent")
	headerArgs, _ := flags.GetStringArray("header")
	followRedirects, _ := flags.GetBool("follow-redirects")
	maxRedirects, _ := flags.GetInt("max-redirects")

	headers, err := parseHeaders(headerArgs)
	if err != nil {
		logger.Error("invalid header", "error", err)
		return err
	}

	fetcher := fetch.New(fetch.Options{
		UserAgent:        userAgent,
		Timeout:          timeout,
		Headers:          headers,
		DisableRedirects: !followRedirects,
		MaxRedirects:     maxRedirects,
	})

	fetchStart := time.Now()
	page, err := fetcher.Fetch(ctx, targetURL)
	if err != nil {
		logger.Error("fetch failed", "url", targetURL, "error", err)
		return err
	}
	logger.Info("page fetched",
		"url", page.FinalURL,
		"size", humanize.Bytes(uint64(len(page.HTML))),
		"elapsed", time.Since(fetchStart).Round(timeRound))

	opts, err := optionsFromFlags(cmd)
	if err != nil {
		return err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = page.FinalURL
	}

	result, err := pipeline.Convert(ctx, page.HTML, opts)
	if err != nil {
		logger.Error("conversion failed", "error", err)
		return err
	}

	return writeResult(cmd, result)
}

// parseHeaders splits repeated "Name: value" flags into a map.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("header %q is not in 'Name: value' form", h)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}
