// Package commands implements the CLI commands for mdistill.
package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "mdistill",
	Short: "Convert HTML pages into clean markdown for LLM consumption",
	Long: `mdistill converts web pages and HTML documents into clean,
LLM-ready markdown.

Content is extracted, stripped of navigation and boilerplate, repaired
structurally, and rendered to markdown either deterministically or via a
local quantized model with deterministic fallback.

Examples:
  # Convert a local HTML file
  mdistill convert page.html

  # Convert from stdin with frontmatter metadata
  curl -s https://example.com | mdistill convert -

  # Fetch and convert a URL, emitting a JSON envelope
  mdistill fetch https://example.com/article --format json

  # Use the local model renderer with fallback
  mdistill convert page.html --llm

  # Manage the local model cache
  mdistill models list
  mdistill models pull`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.mdistill.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".mdistill")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MDISTILL")
	viper.AutomaticEnv()

	// Config file is optional.
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
