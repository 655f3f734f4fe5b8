package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/localnerve/lxnotes/internal/notify"
	"github.com/localnerve/lxnotes/internal/printing"
	"github.com/localnerve/lxnotes/internal/storage"
)

type fakeSender struct {
	sent []notify.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg notify.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (s *memoryStore) Enabled() bool { return true }

func (s *memoryStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, storage.ErrObjectNotFound)
	}
	return data, nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.example.test/" + key + "?signed", nil
}

func (s *memoryStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}

type fakeRenderer struct {
	requests []*printing.RenderRequest
}

func (r *fakeRenderer) Render(_ context.Context, req *printing.RenderRequest) (*printing.RenderResult, error) {
	r.requests = append(r.requests, req)
	return &printing.RenderResult{PDFData: []byte("%PDF-1.7 fake")}, nil
}

func (r *fakeRenderer) Close() error { return nil }

type fakeRecaller struct {
	fired []string
	err   error
}

func (r *fakeRecaller) FireCue(_ context.Context, cue string) error {
	if r.err != nil {
		return r.err
	}
	r.fired = append(r.fired, cue)
	return nil
}
