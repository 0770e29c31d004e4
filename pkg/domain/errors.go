package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRequest はネットワークに出る前に拒否された要求を示します。
var ErrInvalidRequest = errors.New("invalid image generation request")

// ErrorClass は上流エラーの再試行可否の分類です。
type ErrorClass int

const (
	ClassFatal ErrorClass = iota
	ClassRateLimit
	ClassServer
	ClassTransport
)

func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimit:
		return "rate_limit"
	case ClassServer:
		return "server"
	case ClassTransport:
		return "transport"
	default:
		return "fatal"
	}
}

// Retryable は再試行対象の分類かどうかを返します。
func (c ErrorClass) Retryable() bool {
	return c != ClassFatal
}

// ConfigurationError は認証情報や設定値の不足・不正です。通信は一切行われません。
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Key, e.Reason)
}

// UpstreamError は各経路のネイティブなエラーを共通の形に揃えたものです。
// StatusCode が 0 の場合は HTTP 応答を得られなかったことを意味します。
type UpstreamError struct {
	Transport  TransportKind
	StatusCode int
	Status     string
	Message    string
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s upstream error: %s", e.Transport, msg)
	}
	if e.Body != "" && e.Message == "" {
		return fmt.Sprintf("%s upstream error: status %d %s: %s", e.Transport, e.StatusCode, e.Status, e.Body)
	}
	return fmt.Sprintf("%s upstream error: status %d %s: %s", e.Transport, e.StatusCode, e.Status, msg)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// TransientUpstreamError は再試行予算を使い切った一時的障害です。
type TransientUpstreamError struct {
	Class    ErrorClass
	Model    string
	Attempts int
	Err      error
}

func (e *TransientUpstreamError) Error() string {
	return fmt.Sprintf("transient upstream failure (%s) on %s after %d attempts: %v", e.Class, e.Model, e.Attempts, e.Err)
}

func (e *TransientUpstreamError) Unwrap() error { return e.Err }

// FatalUpstreamError は再試行しても解決しない失敗です (不正な要求、認証、コンテンツポリシー等)。
type FatalUpstreamError struct {
	Model string
	Err   error
}

func (e *FatalUpstreamError) Error() string {
	return fmt.Sprintf("fatal upstream failure on %s: %v", e.Model, e.Err)
}

func (e *FatalUpstreamError) Unwrap() error { return e.Err }

// NoImageDataError は上流が成功応答を返したものの画像が見つからなかったことを示します。
// FinishReason と Text は安全性による拒否とモダリティ指定ミスを見分けるための手掛かりです。
type NoImageDataError struct {
	Shape        string
	FinishReason string
	Text         string
}

func (e *NoImageDataError) Error() string {
	msg := "no image data in upstream response"
	if e.Shape != "" {
		msg += " (" + e.Shape + ")"
	}
	if e.FinishReason != "" {
		msg += ", finishReason=" + e.FinishReason
	}
	if e.Text != "" {
		msg += fmt.Sprintf(", text=%q", e.Text)
	}
	return msg
}
