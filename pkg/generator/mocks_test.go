package generator

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shouni/gemini-image-client/pkg/adapters"
	"github.com/shouni/gemini-image-client/pkg/domain"
	"google.golang.org/genai"
)

// --- Mocks ---

// mockTransport はモデルごとの呼び出し回数を記録する経路なのだ。
type mockTransport struct {
	kind         domain.TransportKind
	calls        map[string]int
	generateFunc func(ctx context.Context, model string, call int) (adapters.Response, error)
}

func newMockTransport(fn func(ctx context.Context, model string, call int) (adapters.Response, error)) *mockTransport {
	return &mockTransport{kind: domain.TransportContent, calls: map[string]int{}, generateFunc: fn}
}

func (m *mockTransport) Kind() domain.TransportKind { return m.kind }

func (m *mockTransport) Generate(ctx context.Context, model string, req domain.ImageGenerationRequest) (adapters.Response, error) {
	m.calls[model]++
	return m.generateFunc(ctx, model, m.calls[model])
}

func (m *mockTransport) total() int {
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// fakeTimer は待機時間を記録して即座に発火するのだ。
type fakeTimer struct {
	rec *timerRecorder
	c   chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	t.rec.mu.Lock()
	t.rec.waits = append(t.rec.waits, d)
	t.rec.mu.Unlock()
	t.c <- time.Now()
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

type timerRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *timerRecorder) factory() backoff.Timer {
	return &fakeTimer{rec: r, c: make(chan time.Time, 1)}
}

// --- Fixtures ---

func imageContent(mimeType string, data []byte) *adapters.ContentPartShape {
	return &adapters.ContentPartShape{Raw: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}},
			},
			FinishReason: genai.FinishReasonStop,
		}},
	}}
}

func textContent(finish genai.FinishReason, text string) *adapters.ContentPartShape {
	return &adapters.ContentPartShape{Raw: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: finish,
		}},
	}}
}

func statusErr(code int) error {
	return &domain.UpstreamError{Transport: domain.TransportREST, StatusCode: code, Message: "upstream failure"}
}
