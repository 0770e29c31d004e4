package adapters

import (
	"context"
	"encoding/json"

	"github.com/shouni/gemini-image-client/pkg/domain"
	"google.golang.org/genai"
)

// Transport は上流を呼び出す 1 つの経路です。
// 応答の意味は解釈せず、HTTP ステータス以外の判断は呼び出し元に委ねます。
type Transport interface {
	Kind() domain.TransportKind
	Generate(ctx context.Context, model string, req domain.ImageGenerationRequest) (Response, error)
}

// Response は上流応答の形のタグ付き共用体です。
// 具体型は *LegacyImageShape, *ContentPartShape, *RawArrayShape のいずれかです。
type Response interface {
	Shape() string
}

// LegacyImage は images API の data 要素です。
// SDK 版は b64Data / mimeType、OpenAI 互換版は b64_json を返します。
type LegacyImage struct {
	B64Data  string `json:"b64Data,omitempty"`
	B64JSON  string `json:"b64_json,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Payload は base64 ペイロードを返します。
func (i LegacyImage) Payload() string {
	if i.B64Data != "" {
		return i.B64Data
	}
	return i.B64JSON
}

// LegacyImageShape は images API の配列形式の応答です。
type LegacyImageShape struct {
	Images []LegacyImage
}

func (*LegacyImageShape) Shape() string { return "images" }

// ContentPartShape は generateContent の応答です。
type ContentPartShape struct {
	Raw *genai.GenerateContentResponse
}

func (*ContentPartShape) Shape() string { return "content" }

// RawArrayShape はトップレベルが配列の応答 (ストリーム応答の一括形式など) です。
type RawArrayShape struct {
	Items []json.RawMessage
}

func (*RawArrayShape) Shape() string { return "array" }
