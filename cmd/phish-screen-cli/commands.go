package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mikey/phish-screen/internal/core"
	"github.com/mikey/phish-screen/internal/di"
	"github.com/mikey/phish-screen/internal/ocr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var evaluateCommands = []struct {
	use   string
	short string
	kind  core.EvaluationKind
}{
	{use: "evaluate", short: "Classify and score extracted text in a single pass", kind: core.KindUnified},
	{use: "evaluate-phishing", short: "Score an email or web screenshot for phishing", kind: core.KindPhishing},
	{use: "evaluate-social-engineering", short: "Score a conversation screenshot for social engineering", kind: core.KindSocialEngineering},
	{use: "analyze", short: "Route a screenshot to the matching specialist and score it", kind: core.KindRouted},
}

func init() {
	for _, c := range evaluateCommands {
		kind := c.kind
		rootCmd.AddCommand(&cobra.Command{
			Use:   c.use + " [image-file]",
			Short: c.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runEvaluate(cmd, args[0], kind)
			},
		})
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "extract-text [image-file]",
		Short: "Run OCR only and print the extracted text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtractText(cmd, args[0])
		},
	})
}

// evaluationOutput is the JSON shape printed with --json
type evaluationOutput struct {
	File        string `json:"file"`
	Scoring     int    `json:"scoring"`
	Band        string `json:"band"`
	Reason      string `json:"reason,omitempty"`
	Title       string `json:"title,omitempty"`
	ImageType   string `json:"image_type,omitempty"`
	ModelUsed   string `json:"model_used"`
	Degraded    bool   `json:"degraded,omitempty"`
	ProcessedIn string `json:"processed_in"`
}

func runEvaluate(cmd *cobra.Command, path string, kind core.EvaluationKind) error {
	image, err := readImage(path)
	if err != nil {
		return err
	}

	return withPipeline(cmd, func(ctx context.Context, svc *core.PipelineService, logger *zap.Logger) error {
		start := time.Now()
		res, err := svc.Evaluate(ctx, &core.EvaluationRequest{
			Image:  image,
			Format: formatFromPath(path),
			Kind:   kind,
		})
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}

		out := evaluationOutput{
			File:        path,
			Scoring:     res.Score,
			Band:        string(core.Band(res.Score)),
			Reason:      res.Reason,
			Title:       res.Title,
			ImageType:   string(res.ContentType),
			ModelUsed:   res.ModelUsed,
			Degraded:    res.Degraded,
			ProcessedIn: time.Since(start).Round(time.Millisecond).String(),
		}
		if kind != core.KindRouted {
			out.ImageType = ""
		}
		return printEvaluation(cmd.OutOrStdout(), jsonOutput(cmd), out)
	})
}

func runExtractText(cmd *cobra.Command, path string) error {
	image, err := readImage(path)
	if err != nil {
		return err
	}

	return withPipeline(cmd, func(ctx context.Context, svc *core.PipelineService, logger *zap.Logger) error {
		res := svc.ExtractText(ctx, image)
		w := cmd.OutOrStdout()

		if jsonOutput(cmd) {
			return writeJSON(w, map[string]any{
				"parsed_text":        res.Text,
				"is_error_response":  res.IsError,
				"error_message":      res.ErrorMessage,
				"processing_time_ms": res.Duration.Milliseconds(),
			})
		}
		if res.IsError {
			return fmt.Errorf("text extraction failed: %s", res.ErrorMessage)
		}
		fmt.Fprintln(w, res.Text)
		return nil
	})
}

// withPipeline builds the CLI container and runs fn with a signal-aware context
func withPipeline(cmd *cobra.Command, fn func(ctx context.Context, svc *core.PipelineService, logger *zap.Logger) error) error {
	container, err := di.BuildCLIContainer(&opts)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return container.Invoke(func(svc *core.PipelineService, ocrClient *ocr.Client, logger *zap.Logger) error {
		defer logger.Sync()
		defer func() {
			if err := ocrClient.Close(); err != nil {
				logger.Warn("Failed to close OCR client", zap.Error(err))
			}
		}()
		return fn(ctx, svc, logger)
	})
}

func readImage(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

func formatFromPath(path string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "jpg", "jpeg", "png", "gif", "webp":
		return ext
	default:
		return "png"
	}
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printEvaluation(w io.Writer, asJSON bool, out evaluationOutput) error {
	if asJSON {
		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "\n=== Results ===\n")
	fmt.Fprintf(w, "File: %s\n", out.File)
	if out.ImageType != "" {
		fmt.Fprintf(w, "Image type: %s\n", out.ImageType)
	}
	fmt.Fprintf(w, "Scoring: %d/10 (%s)\n", out.Scoring, out.Band)
	if out.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", out.Title)
	}
	if out.Reason != "" {
		fmt.Fprintf(w, "Reason: %s\n", out.Reason)
	}
	if out.Degraded {
		fmt.Fprintf(w, "Warning: text extraction failed, the score is based on degraded input\n")
	}
	fmt.Fprintf(w, "Model used: %s\n", out.ModelUsed)
	fmt.Fprintf(w, "Processing time: %s\n", out.ProcessedIn)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
