package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shouni/gemini-image-client/pkg/adapters"
	"github.com/shouni/gemini-image-client/pkg/config"
	"github.com/shouni/gemini-image-client/pkg/domain"
	"github.com/shouni/gemini-image-client/pkg/retry"
)

// GeminiImageCore は選択済みの経路を再試行エンジンで包み、応答を正規化する基盤です。
// 状態を持たないため、複数の呼び出しから同時に使えます。
type GeminiImageCore struct {
	transport adapters.Transport
	engine    *retry.Engine
	logger    *slog.Logger
}

// NewGeminiImageCore は依存関係を注入して GeminiImageCore を初期化します。
func NewGeminiImageCore(transport adapters.Transport, engine *retry.Engine, logger *slog.Logger) (*GeminiImageCore, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiImageCore{transport: transport, engine: engine, logger: logger}, nil
}

// Transport は使用中の経路の種類を返します。
func (c *GeminiImageCore) Transport() domain.TransportKind {
	return c.transport.Kind()
}

// ExecuteRequest は model に対して経路呼び出しを再試行付きで行い、結果を正規化します。
// 正規化の失敗 (NoImageDataError) は再試行しません。
func (c *GeminiImageCore) ExecuteRequest(ctx context.Context, model string, req domain.ImageGenerationRequest, fallback bool) (*domain.ImageResponse, error) {
	attempt := domain.TransportAttempt{Transport: c.transport.Kind(), Model: model, Fallback: fallback}
	c.logger.InfoContext(ctx, "画像生成リクエストを送信します",
		"transport", attempt.Transport,
		"model", model,
		"fallback", fallback,
		"size", req.Size())

	raw, err := retry.Do(ctx, c.engine, model, func() (adapters.Response, error) {
		return c.transport.Generate(ctx, model, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", attempt, err)
	}

	out, err := parseToResponse(raw)
	if err != nil {
		var noData *domain.NoImageDataError
		if errors.As(err, &noData) {
			c.logger.WarnContext(ctx, "応答に画像データが含まれていません",
				"transport", attempt.Transport,
				"model", model,
				"shape", noData.Shape,
				"finish_reason", noData.FinishReason,
				"text", noData.Text)
		}
		return nil, fmt.Errorf("%s: %w", attempt, err)
	}
	out.Attempt = attempt
	return out, nil
}

type transportBuilder func() (adapters.Transport, error)

// newTransport は cfg.Transport に従って経路を構築します。
// auto の場合は content → images → REST の順に、構築できた最初の経路を採用します。
func newTransport(ctx context.Context, cfg config.Config, httpClient *http.Client, logger *slog.Logger) (adapters.Transport, error) {
	content := func() (adapters.Transport, error) {
		return adapters.NewContentTransport(ctx, cfg.APIKey, cfg.BaseURL, httpClient)
	}
	images := func() (adapters.Transport, error) {
		return adapters.NewImagesTransport(cfg.APIKey, cfg.OpenAIBaseURL, httpClient)
	}
	rest := func() (adapters.Transport, error) {
		return adapters.NewRESTTransport(cfg.APIKey, cfg.BaseURL, httpClient), nil
	}

	var builders []transportBuilder
	switch cfg.Transport {
	case config.TransportContent:
		builders = []transportBuilder{content}
	case config.TransportImages:
		builders = []transportBuilder{images}
	case config.TransportREST:
		builders = []transportBuilder{rest}
	default:
		builders = []transportBuilder{content, images, rest}
	}

	var errs []error
	for _, build := range builders {
		t, err := build()
		if err != nil {
			logger.WarnContext(ctx, "経路を構築できないため次の候補を試します", "error", err)
			errs = append(errs, err)
			continue
		}
		return t, nil
	}
	return nil, fmt.Errorf("利用可能な経路がありません: %w", errors.Join(errs...))
}

// firstTransport は優先順に並んだ経路から最初の nil でないものを返します。
func firstTransport(ts []adapters.Transport) (adapters.Transport, error) {
	for _, t := range ts {
		if t != nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("利用可能な経路がありません")
}
