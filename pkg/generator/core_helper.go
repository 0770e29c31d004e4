package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shouni/gemini-image-client/pkg/adapters"
	"github.com/shouni/gemini-image-client/pkg/domain"
	"github.com/shouni/gemini-image-client/pkg/utils"
	"google.golang.org/genai"
)

// parseToResponse は上流応答の形に応じて画像データを取り出します。
// images 形式 → content 形式 → 配列形式の順に対応し、画像が見つからなければ
// *domain.NoImageDataError を返します。
func parseToResponse(resp adapters.Response) (*domain.ImageResponse, error) {
	switch r := resp.(type) {
	case *adapters.LegacyImageShape:
		return fromLegacyImages(r.Images)
	case *adapters.ContentPartShape:
		return fromContent(r.Raw)
	case *adapters.RawArrayShape:
		return fromRawArray(r.Items)
	case nil:
		return nil, &domain.NoImageDataError{Shape: "empty"}
	default:
		return nil, fmt.Errorf("unsupported response shape: %s", resp.Shape())
	}
}

func fromLegacyImages(images []adapters.LegacyImage) (*domain.ImageResponse, error) {
	if len(images) == 0 {
		return nil, &domain.NoImageDataError{Shape: "images"}
	}
	first := images[0]
	if first.Payload() == "" {
		return nil, &domain.NoImageDataError{Shape: "images"}
	}

	data, dataURLType, err := decodeBase64(first.Payload())
	if err != nil {
		return nil, &domain.NoImageDataError{Shape: "images", Text: err.Error()}
	}

	mimeType := first.MimeType
	if mimeType == "" {
		mimeType = dataURLType
	}
	if mimeType == "" {
		mimeType = domain.DefaultMimeType
	}
	return &domain.ImageResponse{Data: data, MimeType: mimeType}, nil
}

// contentDiagnostics は画像が見つからなかった場合の手掛かりです。
type contentDiagnostics struct {
	finishReason string
	texts        []string
}

func (d *contentDiagnostics) merge(other contentDiagnostics) {
	if d.finishReason == "" {
		d.finishReason = other.finishReason
	}
	d.texts = append(d.texts, other.texts...)
}

func (d contentDiagnostics) toError(shape string) error {
	return &domain.NoImageDataError{
		Shape:        shape,
		FinishReason: d.finishReason,
		Text:         utils.Truncate(strings.Join(d.texts, " "), maxDiagnosticText),
	}
}

func fromContent(raw *genai.GenerateContentResponse) (*domain.ImageResponse, error) {
	out, diag := scanContent(raw)
	if out != nil {
		return out, nil
	}
	return nil, diag.toError("content")
}

// scanContent は最初の候補の parts から inline data を探します。
func scanContent(raw *genai.GenerateContentResponse) (*domain.ImageResponse, contentDiagnostics) {
	var diag contentDiagnostics
	if raw == nil {
		return nil, diag
	}
	if len(raw.Candidates) == 0 || raw.Candidates[0] == nil {
		if raw.PromptFeedback != nil && raw.PromptFeedback.BlockReason != "" {
			diag.finishReason = string(raw.PromptFeedback.BlockReason)
			if raw.PromptFeedback.BlockReasonMessage != "" {
				diag.texts = append(diag.texts, raw.PromptFeedback.BlockReasonMessage)
			}
		}
		return nil, diag
	}

	candidate := raw.Candidates[0]
	diag.finishReason = string(candidate.FinishReason)
	if candidate.Content == nil {
		if candidate.FinishMessage != "" {
			diag.texts = append(diag.texts, candidate.FinishMessage)
		}
		return nil, diag
	}

	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if blob := part.InlineData; blob != nil && len(blob.Data) > 0 && isImageMimeType(blob.MIMEType) {
			mimeType := blob.MIMEType
			if mimeType == "" {
				mimeType = domain.DefaultMimeType
			}
			return &domain.ImageResponse{Data: blob.Data, MimeType: mimeType}, diag
		}
		if part.Text != "" && !part.Thought {
			diag.texts = append(diag.texts, strings.TrimSpace(part.Text))
		}
	}
	return nil, diag
}

// fromRawArray は配列の各要素を images 形式、content 形式の順に試します。
// ストリーム応答ではテキストと画像が別の要素に分かれるため、診断情報は全要素分を集めます。
func fromRawArray(items []json.RawMessage) (*domain.ImageResponse, error) {
	var diag contentDiagnostics
	for _, item := range items {
		var legacy adapters.LegacyImage
		if err := json.Unmarshal(item, &legacy); err == nil && legacy.Payload() != "" {
			if out, err := fromLegacyImages([]adapters.LegacyImage{legacy}); err == nil {
				return out, nil
			}
			continue
		}

		var content genai.GenerateContentResponse
		if err := json.Unmarshal(item, &content); err != nil {
			continue
		}
		out, d := scanContent(&content)
		if out != nil {
			return out, nil
		}
		diag.merge(d)
	}
	return nil, diag.toError("array")
}
