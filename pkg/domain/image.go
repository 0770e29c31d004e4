package domain

import (
	"fmt"
	"strings"
)

const (
	// DefaultWidth / DefaultHeight は寸法が指定されなかった場合の値です。
	DefaultWidth  = 1024
	DefaultHeight = 1024
	// DefaultMimeType は上流が MIME タイプを返さなかった場合に使用します。
	DefaultMimeType = "image/png"
)

// ImageGenerationRequest は単一の画像生成要求です。
// Width / Height が 0 の場合は DefaultWidth / DefaultHeight として扱います。
type ImageGenerationRequest struct {
	Prompt string
	Width  int
	Height int
}

// Normalize は既定値を補完し、ネットワークに出る前に要求を検証します。
// 失敗した場合は ErrInvalidRequest をラップしたエラーを返します。
func (r ImageGenerationRequest) Normalize() (ImageGenerationRequest, error) {
	if strings.TrimSpace(r.Prompt) == "" {
		return r, fmt.Errorf("%w: prompt is empty", ErrInvalidRequest)
	}
	if r.Width < 0 || r.Height < 0 {
		return r, fmt.Errorf("%w: dimensions must be positive (width=%d, height=%d)", ErrInvalidRequest, r.Width, r.Height)
	}
	if r.Width == 0 {
		r.Width = DefaultWidth
	}
	if r.Height == 0 {
		r.Height = DefaultHeight
	}
	return r, nil
}

// Size は images API が期待する "{width}x{height}" 形式の文字列です。
func (r ImageGenerationRequest) Size() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ImageResponse は生成された画像データとそのメタデータです。
// 返却後は呼び出し元が所有し、クライアントは参照を保持しません。
type ImageResponse struct {
	Data     []byte
	MimeType string
	Attempt  TransportAttempt
}

// TransportKind は上流を呼び出す具体的な経路です。
type TransportKind string

const (
	TransportContent TransportKind = "content"
	TransportImages  TransportKind = "images"
	TransportREST    TransportKind = "rest"
)

// TransportAttempt はどの経路・どのモデルで生成を試みたかの記録です。
type TransportAttempt struct {
	Transport TransportKind
	Model     string
	Fallback  bool
}

func (a TransportAttempt) String() string {
	if a.Fallback {
		return fmt.Sprintf("%s/%s (fallback)", a.Transport, a.Model)
	}
	return fmt.Sprintf("%s/%s", a.Transport, a.Model)
}
