package adapters

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// mockContentGenerator は ContentGenerator のテスト用モックなのだ。
type mockContentGenerator struct {
	generateFunc func(model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockContentGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if m.generateFunc != nil {
		return m.generateFunc(model, contents, config)
	}
	return &genai.GenerateContentResponse{}, nil
}

// mockImageCreator は ImageCreator のテスト用モックなのだ。
type mockImageCreator struct {
	createFunc func(req openai.ImageRequest) (openai.ImageResponse, error)
}

func (m *mockImageCreator) CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error) {
	if m.createFunc != nil {
		return m.createFunc(req)
	}
	return openai.ImageResponse{}, nil
}
