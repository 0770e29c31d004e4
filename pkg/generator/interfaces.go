package generator

import (
	"context"

	"github.com/shouni/gemini-image-client/pkg/domain"
)

// ImageGenerator はルートハンドラ等の呼び出し側が利用する統合窓口です。
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req domain.ImageGenerationRequest) (*domain.ImageResponse, error)
}

// ImageExecutor は 1 つのモデルに対して経路呼び出し・再試行・正規化を行います。
type ImageExecutor interface {
	ExecuteRequest(ctx context.Context, model string, req domain.ImageGenerationRequest, fallback bool) (*domain.ImageResponse, error)
}

var (
	_ ImageGenerator = (*GeminiImageClient)(nil)
	_ ImageExecutor  = (*GeminiImageCore)(nil)
)
