package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mfenderov/pageocr/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "pageocr",
	Short: "pageocr: OCR for the document you are looking at",
	Long: `pageocr finds the PDF or image behind a page (viewer, office document,
direct link, .pdf probe, single embed), transcribes it with Mistral OCR and
stores the Markdown once per file content.

Commands:
  serve   Start the HTTP command API and navigation auto-detection
  mcp     Start the MCP server on stdio
  ocr     Transcribe the resource of a URL
  list    List transcribed entries
  show    Print the transcript of an entry
  delete  Forget an entry
  search  Search transcripts`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	config.LoadDotEnv()

	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/pageocr")
		viper.AddConfigPath(".")
	}

	// PAGEOCR_OCR_API_KEY -> ocr.api_key, for every setting in config.Config
	config.BindEnv(viper.GetViper())

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("PAGEOCR_SEARCH_ADDRESSES"); addrs != "" {
		cfg.Search.Addresses = strings.Split(addrs, ",")
	}
}
