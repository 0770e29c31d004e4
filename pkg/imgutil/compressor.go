package imgutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	// webp デコーダの登録
	_ "golang.org/x/image/webp"
)

// Format は出力時の画像形式です。
type Format string

const (
	FormatKeep Format = "keep"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// ParseFormat は CLI 等で受け取った文字列を Format に変換します。
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatKeep:
		return FormatKeep, nil
	case FormatJPEG, "jpg":
		return FormatJPEG, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported image format: %q", s)
	}
}

// Info は画像のデコード結果の概要です。
type Info struct {
	Format string
	Width  int
	Height int
}

// Inspect は画像全体をデコードせずに形式と寸法を取得します。
func Inspect(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("画像の解析に失敗しました: %w", err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Convert は画像を指定形式に再エンコードし、データと MIME タイプを返します。
// FormatKeep の場合は入力をそのまま返します。
func Convert(data []byte, format Format, quality int) ([]byte, string, error) {
	switch format {
	case FormatKeep, "":
		return data, http.DetectContentType(data), nil
	case FormatJPEG:
		out, err := CompressToJPEG(data, quality)
		if err != nil {
			return nil, "", err
		}
		return out, "image/jpeg", nil
	case FormatPNG:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "", err
		}
		buf := new(bytes.Buffer)
		if err := png.Encode(buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	default:
		return nil, "", fmt.Errorf("unsupported image format: %q", format)
	}
}

// CompressToJPEG は画像データ（PNG, GIF, JPEG等）をJPEG形式に圧縮します。
// quality が範囲外の場合は jpeg.DefaultQuality を使います。
func CompressToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extension は MIME タイプに対応するファイル拡張子を返します。
func Extension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
