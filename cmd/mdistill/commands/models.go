package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mdistill/mdistill/internal/logger"
	"github.com/mdistill/mdistill/pkg/model/registry"
	"github.com/mdistill/mdistill/pkg/pipeline"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage the local model cache",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached model files",
	RunE:  runModelsList,
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull [name]",
	Short: "Download a model into the cache",
	Long: `Download a model into the local cache.

With no argument the default conversion model is pulled. A custom model
needs --url pointing at its GGUF file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModelsPull,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsPullCmd)

	modelsCmd.PersistentFlags().String("models-dir", "", "model cache directory (default $HOME/.mdistill/models)")
	modelsPullCmd.Flags().String("url", "", "download URL for a non-default model")
	modelsPullCmd.Flags().String("sha256", "", "expected checksum of the downloaded file")
}

func registryFromFlags(cmd *cobra.Command) *registry.Registry {
	dir, _ := cmd.Flags().GetString("models-dir")
	return registry.New(dir)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	reg := registryFromFlags(cmd)
	models, err := reg.List()
	if err != nil {
		logger.Error("failed to list models", "error", err)
		return err
	}
	if len(models) == 0 {
		fmt.Fprintf(os.Stderr, "No models cached in %s. Run 'mdistill models pull' to download one.\n", reg.Dir())
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tPATH")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, humanize.Bytes(uint64(m.SizeBytes)), m.LocalPath)
	}
	return w.Flush()
}

func runModelsPull(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	info := registry.DefaultModel
	if len(args) > 0 {
		url, _ := cmd.Flags().GetString("url")
		if args[0] != registry.DefaultModel.Name && url == "" {
			return fmt.Errorf("model %q needs --url", args[0])
		}
		sha, _ := cmd.Flags().GetString("sha256")
		if url != "" {
			info = registry.ModelInfo{Name: args[0], DownloadURL: url, SHA256: sha}
		}
	}

	reg := registryFromFlags(cmd)
	if registry.Available(reg.PathFor(info.Name)) {
		logger.Info("model already cached", "model", info.Name, "path", reg.PathFor(info.Name))
		return nil
	}

	lastPercent := -1
	path, err := pipeline.EnsureModel(ctx, reg, info, func(ev pipeline.Event) {
		switch ev.Type {
		case pipeline.EventDownloadStart:
			logger.Info("downloading model", "model", info.Name)
		case pipeline.EventDownloadProgress:
			if ev.Total <= 0 {
				return
			}
			percent := int(ev.Progress * 100 / ev.Total)
			// Log at 5% steps to keep output readable.
			if percent/5 > lastPercent/5 {
				lastPercent = percent
				logger.Info("downloading",
					"model", info.Name,
					"progress", fmt.Sprintf("%d%%", percent),
					"downloaded", humanize.Bytes(uint64(ev.Progress)),
					"total", humanize.Bytes(uint64(ev.Total)))
			}
		case pipeline.EventDownloadComplete:
			logger.Info("download complete", "model", info.Name, "elapsed", ev.Elapsed.Round(timeRound))
		}
	})
	if err != nil {
		logger.Error("model download failed", "model", info.Name, "error", err)
		return err
	}

	logger.Info("model ready", "model", info.Name, "path", path)
	return nil
}
