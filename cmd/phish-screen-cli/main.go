package main

import (
	"fmt"
	"os"

	"github.com/mikey/phish-screen/internal/di"
	"github.com/spf13/cobra"
)

var opts di.CLIOptions

var rootCmd = &cobra.Command{
	Use:   "phish-screen-cli",
	Short: "Evaluate screenshots for phishing and social engineering",
	Long: `phish-screen-cli runs the same evaluation pipelines as the HTTP service
against local image files, without the result cache.

Provider credentials are read from the environment or a config file, e.g.
PHISH_SCREEN_OPENAI_API_KEY or the AWS default credential chain.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "Path to config file")
	flags.StringVar(&opts.Provider, "provider", "", "Scoring provider (bedrock, openai, gemini)")
	flags.StringVar(&opts.PrimaryModel, "primary-model", "", "Override the primary scoring model")
	flags.StringVar(&opts.FallbackModel, "fallback-model", "", "Override the fallback scoring model")
	flags.StringVar(&opts.OCRProvider, "ocr-provider", "", "OCR provider (textract, vision)")
	flags.StringVar(&opts.PromptsFile, "prompts", "", "Path to a prompts YAML file")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&opts.JSONLog, "json-log", false, "Output logs in JSON format")
	flags.Bool("json", false, "Print results as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
