package retry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/shouni/gemini-image-client/pkg/domain"
)

// 上流は経路ごとにエラーの構造が揃わないため、ステータスとメッセージから推定する。
var (
	rateLimitPatterns = []string{
		"resource_exhausted",
		"resource has been exhausted",
		"quota",
		"rate limit",
		"too many requests",
	}
	serverPatterns = []string{
		"internal error",
		"internal server error",
		"service unavailable",
		"model is overloaded",
	}
	transportPatterns = []string{
		"handshake failure",
		"protocol error",
		"connection reset",
		"broken pipe",
		"unexpected eof",
	}

	// ポート番号やホスト名の一部に一致しないよう、ステータスやプロトコル名は語として扱う
	rateLimitStatusPattern = regexp.MustCompile(`(?:status|code|http|error)\D{0,3}429\b|\b429 too many requests`)
	transportTokenPattern  = regexp.MustCompile(`\b(?:tls|http2):|\b(?:open)?ssl(?:\b|_)`)

	retryDelayPattern = regexp.MustCompile(`"?retryDelay"?\s*[:=]\s*"?(\d+(?:\.\d+)?s)`)
)

// Classify は不透明な上流エラーを再試行可否の分類に振り分けます。
// 呼び出し元のキャンセルやタイムアウトは常に ClassFatal です。
func Classify(err error) domain.ErrorClass {
	if err == nil {
		return domain.ClassFatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ClassFatal
	}

	var up *domain.UpstreamError
	if errors.As(err, &up) && up.StatusCode != 0 {
		switch {
		case up.StatusCode == http.StatusTooManyRequests:
			return domain.ClassRateLimit
		case up.StatusCode >= 500:
			return domain.ClassServer
		}
		// 4xx でもクォータ超過を本文で知らせてくる場合がある
		if matchAny(strings.ToLower(up.Message+" "+up.Body), rateLimitPatterns) {
			return domain.ClassRateLimit
		}
		return domain.ClassFatal
	}

	// 証明書の検証失敗は再試行しても変わらない
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) || strings.Contains(strings.ToLower(err.Error()), "x509:") {
		return domain.ClassFatal
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return domain.ClassTransport
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ClassTransport
	}

	msg := strings.ToLower(err.Error())
	switch {
	case rateLimitStatusPattern.MatchString(msg) || matchAny(msg, rateLimitPatterns):
		return domain.ClassRateLimit
	case matchAny(msg, serverPatterns):
		return domain.ClassServer
	case matchAny(msg, transportPatterns) || transportTokenPattern.MatchString(msg):
		return domain.ClassTransport
	}
	return domain.ClassFatal
}

// RetryAfter は上流が指示した待機時間を取り出します。
func RetryAfter(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	var up *domain.UpstreamError
	if errors.As(err, &up) && up.RetryAfter > 0 {
		return up.RetryAfter, true
	}
	return ParseRetryDelayText(err.Error())
}

// ParseRetryDelay は google.rpc.RetryInfo 形式の details から retryDelay を探します。
func ParseRetryDelay(details []map[string]any) (time.Duration, bool) {
	for _, d := range details {
		raw, ok := d["retryDelay"].(string)
		if !ok {
			continue
		}
		if delay, err := time.ParseDuration(raw); err == nil && delay > 0 {
			return delay, true
		}
	}
	return 0, false
}

// ParseRetryDelayBody は REST のエラー本文 ({"error":{...}} またはその配列) から retryDelay を探します。
// 構造として読めない場合は文字列として探索します。
func ParseRetryDelayBody(body []byte) (time.Duration, bool) {
	type envelope struct {
		Error struct {
			Details []map[string]any `json:"details"`
		} `json:"error"`
	}

	var single envelope
	if err := json.Unmarshal(body, &single); err == nil {
		if d, ok := ParseRetryDelay(single.Error.Details); ok {
			return d, true
		}
	}
	var list []envelope
	if err := json.Unmarshal(body, &list); err == nil {
		for _, e := range list {
			if d, ok := ParseRetryDelay(e.Error.Details); ok {
				return d, true
			}
		}
	}
	return ParseRetryDelayText(string(body))
}

// ParseRetryDelayText はエラー文中に埋め込まれた retryDelay: "<N>s" を探します。
func ParseRetryDelayText(s string) (time.Duration, bool) {
	m := retryDelayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	d, err := time.ParseDuration(m[1])
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func matchAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
