package commands

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/shouni/gemini-image-client/pkg/config"
	"github.com/shouni/gemini-image-client/pkg/domain"
	"github.com/shouni/gemini-image-client/pkg/generator"
	"github.com/shouni/gemini-image-client/pkg/imgutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	got  domain.ImageGenerationRequest
	resp *domain.ImageResponse
	err  error
}

func (s *stubGenerator) GenerateImage(ctx context.Context, req domain.ImageGenerationRequest) (*domain.ImageResponse, error) {
	s.got = req
	return s.resp, s.err
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(0, 0, color.RGBA{0, 128, 0, 255})
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func useStub(t *testing.T, stub *stubGenerator) {
	t.Helper()
	orig := newImageGenerator
	newImageGenerator = func(ctx context.Context, cfg config.Config) (generator.ImageGenerator, error) {
		return stub, nil
	}
	t.Cleanup(func() { newImageGenerator = orig })
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateCommand(t *testing.T) {
	t.Run("画像を拡張子付きで書き出すのだ", func(t *testing.T) {
		t.Setenv(config.EnvAPIKey, "test-key")
		data := pngImage(t)
		stub := &stubGenerator{resp: &domain.ImageResponse{Data: data, MimeType: "image/png"}}
		useStub(t, stub)
		out := filepath.Join(t.TempDir(), "fox")

		stdout, err := runCLI(t, "generate", "a", "red", "fox", "--width", "640", "--height", "480", "--output", out)
		require.NoError(t, err)

		assert.Equal(t, "a red fox", stub.got.Prompt)
		assert.Equal(t, "640x480", stub.got.Size())
		written, err := os.ReadFile(out + ".png")
		require.NoError(t, err)
		assert.Equal(t, data, written)
		assert.Contains(t, stdout, out+".png")
	})

	t.Run("--format jpeg で再エンコードする", func(t *testing.T) {
		t.Setenv(config.EnvAPIKey, "test-key")
		useStub(t, &stubGenerator{resp: &domain.ImageResponse{Data: pngImage(t), MimeType: "image/png"}})
		out := filepath.Join(t.TempDir(), "cat")

		_, err := runCLI(t, "generate", "a cat", "--format", "jpeg", "--output", out)
		require.NoError(t, err)

		written, err := os.ReadFile(out + ".jpg")
		require.NoError(t, err)
		info, err := imgutil.Inspect(written)
		require.NoError(t, err)
		assert.Equal(t, "jpeg", info.Format)
	})

	t.Run("API キーが無ければ設定エラー", func(t *testing.T) {
		t.Setenv(config.EnvAPIKey, "")
		t.Setenv(config.EnvAPIKeyAlias, "")
		useStub(t, &stubGenerator{})

		_, err := runCLI(t, "generate", "a cat")

		var cfgErr *domain.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("生成エラーはそのまま返す", func(t *testing.T) {
		t.Setenv(config.EnvAPIKey, "test-key")
		useStub(t, &stubGenerator{err: &domain.NoImageDataError{Shape: "content", Text: "refused"}})

		_, err := runCLI(t, "generate", "a cat", "--output", filepath.Join(t.TempDir(), "x"))

		var noData *domain.NoImageDataError
		assert.True(t, errors.As(err, &noData))
	})

	t.Run("未対応の形式は通信前に拒否する", func(t *testing.T) {
		t.Setenv(config.EnvAPIKey, "test-key")
		stub := &stubGenerator{}
		useStub(t, stub)

		_, err := runCLI(t, "generate", "a cat", "--format", "tiff")
		assert.Error(t, err)
		assert.Empty(t, stub.got.Prompt)
	})
}
