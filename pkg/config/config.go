package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/gemini-image-client/pkg/domain"
)

// 環境変数名
const (
	EnvAPIKey          = "GEMINI_API_KEY"
	EnvAPIKeyAlias     = "GOOGLE_API_KEY"
	EnvModel           = "GEMINI_IMAGE_MODEL"
	EnvFallbackModel   = "GEMINI_IMAGE_FALLBACK_MODEL"
	EnvFallbackEnabled = "GEMINI_IMAGE_FALLBACK_ENABLED"
	EnvTransport       = "GEMINI_IMAGE_TRANSPORT"
	EnvBaseURL         = "GEMINI_API_BASE_URL"
	EnvOpenAIBaseURL   = "GEMINI_OPENAI_BASE_URL"
	EnvTimeout         = "GEMINI_IMAGE_TIMEOUT"
	EnvMaxAttempts     = "GEMINI_IMAGE_MAX_ATTEMPTS"
)

const (
	DefaultModel         = "gemini-2.5-flash-image-preview"
	DefaultBaseURL       = "https://generativelanguage.googleapis.com"
	DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultTimeout       = 90 * time.Second
	DefaultMaxAttempts   = 3
)

// TransportMode は経路選択の方針です。
type TransportMode string

const (
	TransportAuto    TransportMode = "auto"
	TransportContent TransportMode = "content"
	TransportImages  TransportMode = "images"
	TransportREST    TransportMode = "rest"
)

// Config は起動時に一度だけ解決され、以後は読み取り専用として共有されます。
type Config struct {
	APIKey          string
	Model           string
	FallbackModel   string
	FallbackEnabled bool
	Transport       TransportMode
	BaseURL         string
	OpenAIBaseURL   string
	// Timeout は 1 回の生成呼び出し全体 (再試行・フォールバックを含む) の上限です。0 で無制限。
	Timeout     time.Duration
	MaxAttempts int
}

// FallbackModelFor は primary に対して有効なフォールバックモデルを返します。
// 無効化されている、未設定、または primary と同一の場合は false です。
func (c Config) FallbackModelFor(primary string) (string, bool) {
	if !c.FallbackEnabled || c.FallbackModel == "" {
		return "", false
	}
	if TrimModelPrefix(c.FallbackModel) == TrimModelPrefix(primary) {
		return "", false
	}
	return c.FallbackModel, true
}

// TrimModelPrefix は "models/" 接頭辞を取り除きます。
func TrimModelPrefix(model string) string {
	return strings.TrimPrefix(model, "models/")
}

// Load はプロセスの環境変数から Config を解決します。
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom は lookup を使って Config を解決します。
// 認証情報が無い場合は通信を試みる前に *domain.ConfigurationError を返します。
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		APIKey:        get(EnvAPIKey),
		Model:         get(EnvModel),
		FallbackModel: get(EnvFallbackModel),
		Transport:     TransportMode(strings.ToLower(get(EnvTransport))),
		BaseURL:       get(EnvBaseURL),
		OpenAIBaseURL: get(EnvOpenAIBaseURL),
		Timeout:       DefaultTimeout,
		MaxAttempts:   DefaultMaxAttempts,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = get(EnvAPIKeyAlias)
	}
	if cfg.APIKey == "" {
		return Config{}, &domain.ConfigurationError{
			Key:    EnvAPIKey,
			Reason: "neither " + EnvAPIKey + " nor " + EnvAPIKeyAlias + " is set",
		}
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = DefaultOpenAIBaseURL
	}

	switch cfg.Transport {
	case "":
		cfg.Transport = TransportAuto
	case TransportAuto, TransportContent, TransportImages, TransportREST:
	default:
		return Config{}, &domain.ConfigurationError{Key: EnvTransport, Reason: "unknown transport " + strconv.Quote(string(cfg.Transport))}
	}

	if v := get(EnvFallbackEnabled); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, &domain.ConfigurationError{Key: EnvFallbackEnabled, Reason: err.Error()}
		}
		cfg.FallbackEnabled = b
	}

	if v := get(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, &domain.ConfigurationError{Key: EnvTimeout, Reason: "invalid duration " + strconv.Quote(v)}
		}
		cfg.Timeout = d
	}

	if v := get(EnvMaxAttempts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, &domain.ConfigurationError{Key: EnvMaxAttempts, Reason: "must be a positive integer"}
		}
		cfg.MaxAttempts = n
	}

	return cfg, nil
}
