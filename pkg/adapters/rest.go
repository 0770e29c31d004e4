package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shouni/gemini-image-client/pkg/config"
	"github.com/shouni/gemini-image-client/pkg/domain"
	"github.com/shouni/gemini-image-client/pkg/utils"
	"google.golang.org/genai"
)

const (
	restAPIVersion    = "v1beta"
	// maxDiagnosticText は読めなかった本文を診断用に残す上限 (文字数) です。
	maxDiagnosticText = 120
	// maxResponseBody は 1 回の応答で読み込む上限です。
	maxResponseBody   = 64 << 20
)

type restPart struct {
	Text string `json:"text"`
}

type restContent struct {
	Role  string     `json:"role"`
	Parts []restPart `json:"parts"`
}

type restGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type restRequest struct {
	Contents         []restContent        `json:"contents"`
	GenerationConfig restGenerationConfig `json:"generationConfig"`
}

// RESTTransport は SDK を介さず generateContent エンドポイントを直接呼び出す経路です。
// API キーは x-goog-api-key ヘッダーで送り、URL には含めません。
type RESTTransport struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewRESTTransport は RESTTransport を生成します。httpClient が nil の場合は http.DefaultClient を使います。
func NewRESTTransport(apiKey, baseURL string, httpClient *http.Client) *RESTTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RESTTransport{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (t *RESTTransport) Kind() domain.TransportKind { return domain.TransportREST }

func (t *RESTTransport) endpoint(model string) string {
	return fmt.Sprintf("%s/%s/models/%s:generateContent", t.baseURL, restAPIVersion, url.PathEscape(config.TrimModelPrefix(model)))
}

// Generate は generateContent を呼び出し、応答本文を形に応じて Response に変換します。
func (t *RESTTransport) Generate(ctx context.Context, model string, req domain.ImageGenerationRequest) (Response, error) {
	payload, err := json.Marshal(restRequest{
		Contents: []restContent{{
			Role:  genai.RoleUser,
			Parts: []restPart{{Text: req.Prompt}},
		}},
		GenerationConfig: restGenerationConfig{
			ResponseModalities: []string{string(genai.ModalityImage)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(model), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", t.apiKey)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamError{Transport: domain.TransportREST, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &domain.UpstreamError{Transport: domain.TransportREST, Err: fmt.Errorf("応答本文の読み込みに失敗しました: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp, body)
	}
	return decodeRESTBody(body)
}

// decodeRESTBody は応答本文を配列形式 → images 形式 → content 形式の順に判定します。
// JSON として読めない 2xx の本文 (プロキシの HTML など) は *domain.NoImageDataError です。
func decodeRESTBody(body []byte) (Response, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, unreadableBody(body)
		}
		return &RawArrayShape{Items: items}, nil
	}

	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, unreadableBody(body)
	}
	var images []LegacyImage
	if len(probe.Data) > 0 && json.Unmarshal(probe.Data, &images) == nil && len(images) > 0 {
		return &LegacyImageShape{Images: images}, nil
	}

	var content genai.GenerateContentResponse
	if err := json.Unmarshal(trimmed, &content); err != nil {
		return nil, unreadableBody(body)
	}
	return &ContentPartShape{Raw: &content}, nil
}

func unreadableBody(body []byte) error {
	return &domain.NoImageDataError{Shape: "rest", Text: utils.Truncate(string(body), maxDiagnosticText)}
}
