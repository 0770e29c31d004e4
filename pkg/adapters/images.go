package adapters

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/shouni/gemini-image-client/pkg/config"
	"github.com/shouni/gemini-image-client/pkg/domain"
)

// ImageCreator は go-openai の Client が満たす images API 呼び出しです。
type ImageCreator interface {
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}

// ImagesTransport は images API (OpenAI 互換エンドポイント) を直接呼び出す経路です。
type ImagesTransport struct {
	client ImageCreator
}

// NewImagesTransport は OpenAI 互換エンドポイント向けのクライアントを構築します。
// API キーは Authorization ヘッダーで送信されます。
func NewImagesTransport(apiKey, baseURL string, httpClient *http.Client) (*ImagesTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &ImagesTransport{client: openai.NewClientWithConfig(cfg)}, nil
}

// NewImagesTransportWith は任意の ImageCreator を使う ImagesTransport を返します。
func NewImagesTransportWith(client ImageCreator) *ImagesTransport {
	return &ImagesTransport{client: client}
}

func (t *ImagesTransport) Kind() domain.TransportKind { return domain.TransportImages }

// Generate はモデル・プロンプト・"{width}x{height}" のサイズ指定で画像を 1 枚要求します。
func (t *ImagesTransport) Generate(ctx context.Context, model string, req domain.ImageGenerationRequest) (Response, error) {
	resp, err := t.client.CreateImage(ctx, openai.ImageRequest{
		Model:          config.TrimModelPrefix(model),
		Prompt:         req.Prompt,
		Size:           req.Size(),
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fromOpenAIError(err)
	}

	shape := &LegacyImageShape{Images: make([]LegacyImage, 0, len(resp.Data))}
	for _, d := range resp.Data {
		shape.Images = append(shape.Images, LegacyImage{B64JSON: d.B64JSON})
	}
	return shape, nil
}
