package adapters

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shouni/gemini-image-client/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRESTServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *RESTTransport) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewRESTTransport("test-key", srv.URL+"/", srv.Client())
}

func TestRESTTransport_Generate(t *testing.T) {
	ctx := context.Background()
	req := domain.ImageGenerationRequest{Prompt: "a lighthouse", Width: 1024, Height: 1024}
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x01}

	t.Run("ヘッダー認証で content エンドポイントを呼び出す", func(t *testing.T) {
		_, tr := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1beta/models/gemini-image:generateContent", r.URL.Path)
			assert.Empty(t, r.URL.RawQuery, "API キーをクエリに載せてはならない")
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body restRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Contents, 1)
			assert.Equal(t, "user", body.Contents[0].Role)
			assert.Equal(t, "a lighthouse", body.Contents[0].Parts[0].Text)
			assert.Equal(t, []string{"IMAGE"}, body.GenerationConfig.ResponseModalities)

			fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/jpeg","data":%q}}]}}]}`,
				base64.StdEncoding.EncodeToString(jpeg))
		})

		resp, err := tr.Generate(ctx, "models/gemini-image", req)
		require.NoError(t, err)

		shape, ok := resp.(*ContentPartShape)
		require.True(t, ok)
		part := shape.Raw.Candidates[0].Content.Parts[0]
		assert.Equal(t, "image/jpeg", part.InlineData.MIMEType)
		assert.Equal(t, jpeg, part.InlineData.Data)
	})

	t.Run("2xx 以外はステータス・理由句・切り詰めた本文を持つ", func(t *testing.T) {
		_, tr := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, "<html>"+strings.Repeat("x", 2000)+"</html>")
		})

		_, err := tr.Generate(ctx, "gemini-image", req)

		var up *domain.UpstreamError
		require.True(t, errors.As(err, &up))
		assert.Equal(t, 500, up.StatusCode)
		assert.Equal(t, "Internal Server Error", up.Status)
		assert.LessOrEqual(t, len([]rune(up.Body)), maxErrorBody+3)
		assert.True(t, strings.HasPrefix(up.Body, "<html>xxx"))
	})

	t.Run("エラー本文の retryDelay を読み取る", func(t *testing.T) {
		_, tr := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED","details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"5s"}]}}`)
		})

		_, err := tr.Generate(ctx, "gemini-image", req)

		var up *domain.UpstreamError
		require.True(t, errors.As(err, &up))
		assert.Equal(t, 429, up.StatusCode)
		assert.Equal(t, "Too Many Requests", up.Status)
		assert.Equal(t, "Resource has been exhausted (e.g. check quota).", up.Message)
		assert.Equal(t, 5*time.Second, up.RetryAfter)
	})

	t.Run("Retry-After ヘッダーも参考にする", func(t *testing.T) {
		_, tr := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := tr.Generate(ctx, "gemini-image", req)

		var up *domain.UpstreamError
		require.True(t, errors.As(err, &up))
		assert.Equal(t, 2*time.Second, up.RetryAfter)
	})

	t.Run("配列形式の本文は RawArrayShape になる", func(t *testing.T) {
		_, tr := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `[{"candidates":[]},{"candidates":[]}]`)
		})

		resp, err := tr.Generate(ctx, "gemini-image", req)
		require.NoError(t, err)
		shape, ok := resp.(*RawArrayShape)
		require.True(t, ok)
		assert.Len(t, shape.Items, 2)
	})

	t.Run("images 形式の本文は LegacyImageShape になる", func(t *testing.T) {
		_, tr := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"data":[{"b64Data":"aGVsbG8=","mimeType":"image/webp"}]}`)
		})

		resp, err := tr.Generate(ctx, "gemini-image", req)
		require.NoError(t, err)
		shape, ok := resp.(*LegacyImageShape)
		require.True(t, ok)
		assert.Equal(t, "image/webp", shape.Images[0].MimeType)
	})

	t.Run("JSON として読めない 2xx の本文は NoImageDataError", func(t *testing.T) {
		for _, body := range []string{"", "<html>ok</html>", "[not json"} {
			_, tr := newRESTServer(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			})

			_, err := tr.Generate(ctx, "gemini-image", req)

			var noData *domain.NoImageDataError
			require.True(t, errors.As(err, &noData), "body=%q err=%v", body, err)
			assert.Equal(t, "rest", noData.Shape)
			assert.Equal(t, strings.TrimSpace(body), noData.Text)
		}
	})

	t.Run("接続できない場合はステータス無しの UpstreamError", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewRESTTransport("k", url, nil).Generate(ctx, "gemini-image", req)

		var up *domain.UpstreamError
		require.True(t, errors.As(err, &up))
		assert.Zero(t, up.StatusCode)
	})
}
