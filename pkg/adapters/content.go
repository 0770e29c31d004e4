package adapters

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shouni/gemini-image-client/pkg/domain"
	"google.golang.org/genai"
)

// ContentGenerator は genai の Models が満たす generateContent 呼び出しです。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ContentTransport は統合 content API を SDK 経由で呼び出す経路です。
type ContentTransport struct {
	models ContentGenerator
}

// NewContentTransport は genai クライアントを構築して ContentTransport を返します。
// API キーは SDK によりヘッダーで送信されます。
func NewContentTransport(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*ContentTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("genai クライアントの初期化に失敗しました: %w", err)
	}
	return &ContentTransport{models: client.Models}, nil
}

// NewContentTransportWith は任意の ContentGenerator を使う ContentTransport を返します。
func NewContentTransportWith(models ContentGenerator) *ContentTransport {
	return &ContentTransport{models: models}
}

func (t *ContentTransport) Kind() domain.TransportKind { return domain.TransportContent }

// Generate はプロンプトを単一の user メッセージとして送り、画像出力のみを要求します。
func (t *ContentTransport) Generate(ctx context.Context, model string, req domain.ImageGenerationRequest) (Response, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityImage)},
	}

	resp, err := t.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fromGenAIError(err)
	}
	return &ContentPartShape{Raw: resp}, nil
}
