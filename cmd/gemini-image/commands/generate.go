package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shouni/gemini-image-client/pkg/config"
	"github.com/shouni/gemini-image-client/pkg/domain"
	"github.com/shouni/gemini-image-client/pkg/generator"
	"github.com/shouni/gemini-image-client/pkg/imgutil"
	"github.com/spf13/cobra"
)

// newImageGenerator はテストで差し替えられるようにしているのだ。
var newImageGenerator = func(ctx context.Context, cfg config.Config) (generator.ImageGenerator, error) {
	return generator.NewGeminiImageClient(ctx, cfg, generator.WithLogger(slog.Default()))
}

type generateOptions struct {
	width   int
	height  int
	output  string
	format  string
	quality int
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate an image from a text prompt",
		Long: `Generate a single image from a text prompt and write it to a file.

Configuration is read from the environment (and a .env file when present):
  GEMINI_API_KEY / GOOGLE_API_KEY, GEMINI_IMAGE_MODEL, GEMINI_IMAGE_FALLBACK_MODEL,
  GEMINI_IMAGE_FALLBACK_ENABLED, GEMINI_IMAGE_TRANSPORT, GEMINI_IMAGE_TIMEOUT

Examples:
  gemini-image generate "a lighthouse at dusk"
  gemini-image generate "a red fox" --width 768 --height 512 --output fox
  gemini-image generate "a cat" --format jpeg --quality 85`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVar(&opts.width, "width", domain.DefaultWidth, "Image width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", domain.DefaultHeight, "Image height in pixels")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "image", "Output file path (extension is added from the image type when missing)")
	cmd.Flags().StringVar(&opts.format, "format", string(imgutil.FormatKeep), "Output format: keep, jpeg, png")
	cmd.Flags().IntVar(&opts.quality, "quality", 90, "JPEG quality (1-100)")

	return cmd
}

func runGenerate(cmd *cobra.Command, prompt string, opts *generateOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := imgutil.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	gen, err := newImageGenerator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize image client: %w", err)
	}

	resp, err := gen.GenerateImage(ctx, domain.ImageGenerationRequest{
		Prompt: prompt,
		Width:  opts.width,
		Height: opts.height,
	})
	if err != nil {
		return err
	}

	data, mimeType := resp.Data, resp.MimeType
	if format != imgutil.FormatKeep {
		if data, mimeType, err = imgutil.Convert(resp.Data, format, opts.quality); err != nil {
			return fmt.Errorf("failed to convert image: %w", err)
		}
	}

	if info, err := imgutil.Inspect(data); err == nil {
		slog.InfoContext(ctx, "画像を受信しました",
			"format", info.Format,
			"width", info.Width,
			"height", info.Height,
			"bytes", len(data),
			"via", resp.Attempt.String())
	} else {
		slog.DebugContext(ctx, "画像の寸法を取得できませんでした", "mime_type", mimeType, "error", err)
	}

	path := opts.output
	if filepath.Ext(path) == "" {
		path += imgutil.Extension(mimeType)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Image written to %s\n", path)
	return nil
}
