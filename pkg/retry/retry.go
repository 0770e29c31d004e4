package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shouni/gemini-image-client/pkg/domain"
)

// Policy は 1 モデルあたりの再試行予算です。
type Policy struct {
	// MaxAttempts は初回を含む総試行回数です。
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultPolicy は 1s から倍々で最大 8s、総試行 3 回の方針を返します。
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2,
	}
}

// Option は Engine の振る舞いを調整します。
type Option func(*Engine)

// WithTimer は待機に使うタイマーの生成関数を差し替えます (テスト用)。
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(e *Engine) { e.newTimer = newTimer }
}

// WithClassifier はエラー分類関数を差し替えます。
func WithClassifier(fn func(error) domain.ErrorClass) Option {
	return func(e *Engine) { e.classify = fn }
}

// WithLogger はログ出力先を指定します。
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine は一時的な失敗のみを指数バックオフで再試行する汎用ラッパーです。
// 状態を持たないため、複数の呼び出しから同時に利用できます。
type Engine struct {
	policy   Policy
	newTimer func() backoff.Timer
	classify func(error) domain.ErrorClass
	logger   *slog.Logger
}

// NewEngine は Policy の不正値を補正して Engine を生成します。
func NewEngine(p Policy, opts ...Option) *Engine {
	def := DefaultPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}

	e := &Engine{
		policy:   p,
		classify: Classify,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy は補正後の方針を返します。
func (e *Engine) Policy() Policy {
	return e.policy
}

// Do は op を Engine の方針で実行します。
//
// 致命的な失敗は *domain.FatalUpstreamError として即座に返し、
// 予算を使い切った一時的な失敗は *domain.TransientUpstreamError として返します。
// ctx が終了した場合は ctx.Err() を辿れるエラーを返します。
func Do[T any](ctx context.Context, e *Engine, model string, op func() (T, error)) (T, error) {
	b := &overrideBackOff{
		delegate: backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(e.policy.InitialDelay),
			backoff.WithMultiplier(e.policy.Multiplier),
			backoff.WithMaxInterval(e.policy.MaxDelay),
			backoff.WithRandomizationFactor(0),
			backoff.WithMaxElapsedTime(0),
		),
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.policy.MaxAttempts-1)), ctx)

	var (
		attempts  int
		lastClass domain.ErrorClass
	)
	operation := func() (T, error) {
		attempts++
		res, err := op()
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return res, backoff.Permanent(err)
		}
		// 成功応答に画像が無いのは再試行しても変わらず、致命的エラーとも区別して返す
		var noData *domain.NoImageDataError
		if errors.As(err, &noData) {
			return res, backoff.Permanent(err)
		}

		lastClass = e.classify(err)
		if !lastClass.Retryable() {
			return res, backoff.Permanent(&domain.FatalUpstreamError{Model: model, Err: err})
		}
		if d, ok := RetryAfter(err); ok {
			b.override = d
		}
		return res, err
	}
	notify := func(err error, next time.Duration) {
		e.logger.WarnContext(ctx, "上流呼び出しに失敗したため再試行します",
			"model", model,
			"attempt", attempts,
			"max_attempts", e.policy.MaxAttempts,
			"class", lastClass.String(),
			"delay", next,
			"error", err)
	}

	var timer backoff.Timer
	if e.newTimer != nil {
		timer = e.newTimer()
	}

	res, err := backoff.RetryNotifyWithTimerAndData(operation, bo, notify, timer)
	if err == nil {
		if attempts > 1 {
			e.logger.InfoContext(ctx, "再試行で成功しました", "model", model, "attempts", attempts)
		}
		return res, nil
	}

	var zero T
	var (
		fatal  *domain.FatalUpstreamError
		noData *domain.NoImageDataError
	)
	if errors.As(err, &fatal) || errors.As(err, &noData) {
		return zero, err
	}
	if cerr := ctx.Err(); cerr != nil {
		if errors.Is(err, cerr) {
			return zero, fmt.Errorf("%d 回の試行後に中断されました: %w", attempts, err)
		}
		return zero, fmt.Errorf("%d 回の試行後に中断されました: %w (last error: %v)", attempts, cerr, err)
	}

	e.logger.WarnContext(ctx, "再試行の上限に達しました",
		"model", model, "attempts", attempts, "class", lastClass.String(), "error", err)
	return zero, &domain.TransientUpstreamError{
		Class:    lastClass,
		Model:    model,
		Attempts: attempts,
		Err:      err,
	}
}

// overrideBackOff は上流が指示した待機時間を次の 1 回だけ優先します。
// 指数スケジュール自体は通常どおり進めます。
type overrideBackOff struct {
	delegate backoff.BackOff
	override time.Duration
}

func (b *overrideBackOff) Reset() {
	b.override = 0
	b.delegate.Reset()
}

func (b *overrideBackOff) NextBackOff() time.Duration {
	next := b.delegate.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.override > 0 {
		next = b.override
		b.override = 0
	}
	return next
}
