package generator

import (
	"encoding/base64"
	"errors"
	"strings"
)

var errInvalidBase64 = errors.New("invalid base64 payload")

// base64Encodings は上流ごとに揺れるパディング有無・URL セーフ表記を順に試すためのものなのだ。
var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeBase64 は base64 ペイロードをデコードするのだ。
// "data:image/png;base64," のような data URL 接頭辞があれば取り除き、その MIME タイプも返すのだ。
// どの表記でもデコードできない場合は部分的なバイト列を返さずにエラーにするのだ。
func decodeBase64(payload string) ([]byte, string, error) {
	s := strings.TrimSpace(payload)
	var mimeType string
	if strings.HasPrefix(s, "data:") {
		header, body, ok := strings.Cut(s, ",")
		if !ok {
			return nil, "", errInvalidBase64
		}
		mimeType, _, _ = strings.Cut(strings.TrimPrefix(header, "data:"), ";")
		s = body
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, "", errInvalidBase64
	}

	for _, enc := range base64Encodings {
		if data, err := enc.DecodeString(s); err == nil && len(data) > 0 {
			return data, mimeType, nil
		}
	}
	return nil, "", errInvalidBase64
}

// isImageMimeType は MIME タイプが画像、または未指定かどうかを判定するのだ。
func isImageMimeType(mimeType string) bool {
	return mimeType == "" || strings.HasPrefix(strings.ToLower(mimeType), "image/")
}
