package app

import (
	"context"
	"sync"

	"boxity-analyzer/internal/domain/entity"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func testImage() entity.Image {
	return entity.NewImage(pngHeader, "image/png")
}

// fakeModel отдаёт ответы по очереди; последний ответ повторяется.
type fakeModel struct {
	name    string
	replies []string
	err     error
	block   bool
	// blockFrom > 0 блокирует вызовы начиная с этого номера
	blockFrom int

	mu       sync.Mutex
	requests []entity.ModelRequest
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Generate(ctx context.Context, req entity.ModelRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	n := len(m.requests)
	m.mu.Unlock()

	if m.block || (m.blockFrom > 0 && n >= m.blockFrom) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	if n > len(m.replies) {
		n = len(m.replies)
	}
	return m.replies[n-1], nil
}

func (m *fakeModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type fakeFallback struct {
	candidates []entity.Candidate
	err        error
	block      bool

	mu     sync.Mutex
	called int
}

func (f *fakeFallback) DetectDifferences(ctx context.Context, baseline, current entity.Image) ([]entity.Candidate, error) {
	f.mu.Lock()
	f.called++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.candidates, f.err
}

func (f *fakeFallback) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.called
}

type fakeHighlighter struct {
	err error
}

func (h *fakeHighlighter) Highlight(imageData []byte, differences []entity.Difference) ([]byte, error) {
	if h.err != nil {
		return nil, h.err
	}
	return append([]byte("marked:"), imageData...), nil
}
