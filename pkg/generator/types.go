package generator

import (
	"log/slog"
	"net/http"

	"github.com/shouni/gemini-image-client/pkg/adapters"
	"github.com/shouni/gemini-image-client/pkg/retry"
)

// maxDiagnosticText は NoImageDataError に残すテキストの上限 (文字数) です。
const maxDiagnosticText = 120

// Option は GeminiImageClient の構築オプションです。
type Option func(*clientOptions)

type clientOptions struct {
	logger     *slog.Logger
	httpClient *http.Client
	retryOpts  []retry.Option
	transports []adapters.Transport
}

// WithLogger はログ出力先を指定します。未指定の場合は slog.Default() を使います。
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithHTTPClient は全経路で共有する HTTP クライアントを指定します。
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithRetryOptions は再試行エンジンへ追加のオプションを渡します。
func WithRetryOptions(opts ...retry.Option) Option {
	return func(o *clientOptions) { o.retryOpts = append(o.retryOpts, opts...) }
}

// WithTransports は経路を優先順に直接指定します。先頭の nil でない経路が使われます。
func WithTransports(ts ...adapters.Transport) Option {
	return func(o *clientOptions) { o.transports = ts }
}
