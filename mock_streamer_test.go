package imagestudio

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockImageStreamer is a mock implementation of ImageStreamer.
type MockImageStreamer struct {
	StreamFunc func(ctx context.Context, parts []ContentPart, config *GenerateConfig) (*StreamResult, error)
	ModelFunc  func() Model
	CloseFunc  func() error

	mu    sync.Mutex
	calls [][]ContentPart
}

func (m *MockImageStreamer) Stream(ctx context.Context, parts []ContentPart, config *GenerateConfig) (*StreamResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, parts)
	m.mu.Unlock()

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, parts, config)
	}
	return &StreamResult{}, nil
}

func (m *MockImageStreamer) Model() Model {
	if m.ModelFunc != nil {
		return m.ModelFunc()
	}
	return "test-model"
}

func (m *MockImageStreamer) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockImageStreamer) Calls() [][]ContentPart {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]ContentPart, len(m.calls))
	copy(out, m.calls)
	return out
}

// memArtifacts and memLedger are minimal in-package stores for Manager tests.
type memArtifacts struct {
	mu     sync.Mutex
	images map[string]GeneratedImage
	next   int
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{images: make(map[string]GeneratedImage)}
}

func (s *memArtifacts) Put(data []byte, mimeType, sessionID string) (GeneratedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	img := GeneratedImage{
		ID:        fmt.Sprintf("img-%d", s.next),
		Data:      append([]byte(nil), data...),
		MIMEType:  mimeType,
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
	s.images[img.ID] = img
	return img, nil
}

func (s *memArtifacts) Get(id string) (GeneratedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[id]
	if !ok {
		return GeneratedImage{}, fmt.Errorf("image %q not found", id)
	}
	return img, nil
}

func (s *memArtifacts) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.images, id)
	return nil
}

func (s *memArtifacts) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

type memLedger struct {
	mu       sync.Mutex
	sessions map[string][]SessionTurn
	failWith error
}

func newMemLedger() *memLedger {
	return &memLedger{sessions: make(map[string][]SessionTurn)}
}

func (l *memLedger) Append(sessionID string, turn SessionTurn) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failWith != nil {
		return l.failWith
	}
	l.sessions[sessionID] = append(l.sessions[sessionID], turn)
	return nil
}

func (l *memLedger) Turns(sessionID string) ([]SessionTurn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	turns, ok := l.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}
	return append([]SessionTurn(nil), turns...), nil
}
