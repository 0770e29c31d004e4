package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/gemini-image-client/pkg/adapters"
	"github.com/shouni/gemini-image-client/pkg/config"
	"github.com/shouni/gemini-image-client/pkg/domain"
	"github.com/shouni/gemini-image-client/pkg/retry"
)

// GeminiImageClient は画像生成の入口なのだ。
// 経路選択・再試行・モデルのフォールバック・応答の正規化をまとめて担当するのだ。
type GeminiImageClient struct {
	core    ImageExecutor
	cfg     config.Config
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeminiImageClient は cfg から経路と再試行エンジンを組み立てるのだ。
// 認証情報が無い場合は通信する前に *domain.ConfigurationError を返すのだ。
func NewGeminiImageClient(ctx context.Context, cfg config.Config, opts ...Option) (*GeminiImageClient, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{Key: config.EnvAPIKey, Reason: "API key is required"}
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultModel
	}

	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	var (
		t   adapters.Transport
		err error
	)
	if len(o.transports) > 0 {
		t, err = firstTransport(o.transports)
	} else {
		t, err = newTransport(ctx, cfg, o.httpClient, o.logger)
	}
	if err != nil {
		return nil, err
	}

	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	engine := retry.NewEngine(policy, append([]retry.Option{retry.WithLogger(o.logger)}, o.retryOpts...)...)

	core, err := NewGeminiImageCore(t, engine, o.logger)
	if err != nil {
		return nil, err
	}

	o.logger.InfoContext(ctx, "画像生成クライアントを初期化しました",
		"transport", t.Kind(),
		"model", cfg.Model,
		"fallback_enabled", cfg.FallbackEnabled,
		"max_attempts", policy.MaxAttempts)

	return &GeminiImageClient{
		core:    core,
		cfg:     cfg,
		timeout: cfg.Timeout,
		logger:  o.logger,
	}, nil
}

// Generate はプロンプトと寸法から画像を 1 枚生成するのだ。0 の寸法は既定値になるのだ。
func (c *GeminiImageClient) Generate(ctx context.Context, prompt string, width, height int) (*domain.ImageResponse, error) {
	return c.GenerateImage(ctx, domain.ImageGenerationRequest{Prompt: prompt, Width: width, Height: height})
}

// GenerateImage は要求を検証してから主モデルで生成し、サーバーエラーで再試行を使い切った場合に限り
// フォールバックモデルで同じ手順をもう一度行うのだ。
func (c *GeminiImageClient) GenerateImage(ctx context.Context, req domain.ImageGenerationRequest) (*domain.ImageResponse, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.core.ExecuteRequest(ctx, c.cfg.Model, req, false)
	if err == nil {
		return resp, nil
	}

	fallback, ok := c.fallbackFor(ctx, err)
	if !ok {
		return nil, fmt.Errorf("Gemini画像生成エラー: %w", err)
	}

	c.logger.WarnContext(ctx, "主モデルがサーバーエラーで失敗したためフォールバックモデルで再実行します",
		"model", c.cfg.Model,
		"fallback_model", fallback,
		"error", err)

	resp, err = c.core.ExecuteRequest(ctx, fallback, req, true)
	if err != nil {
		return nil, fmt.Errorf("Gemini画像生成エラー (フォールバック): %w", err)
	}
	return resp, nil
}

// fallbackFor はフォールバックの条件を満たす場合にそのモデルを返すのだ。
// レート制限や致命的なエラーでは別モデルに切り替えても解決しないので対象外なのだ。
func (c *GeminiImageClient) fallbackFor(ctx context.Context, err error) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	var transient *domain.TransientUpstreamError
	if !errors.As(err, &transient) || transient.Class != domain.ClassServer {
		return "", false
	}
	return c.cfg.FallbackModelFor(c.cfg.Model)
}
