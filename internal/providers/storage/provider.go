package storage

import (
	"context"
	"io"
	"sync"
)

// Object describes a stored file.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

type Provider interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (Object, error)
	Delete(ctx context.Context, key string) error
}

// MemoryProvider keeps objects in process. Used when no bucket is configured
// and in tests.
type MemoryProvider struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{objects: make(map[string][]byte)}
}

func (p *MemoryProvider) Put(ctx context.Context, key, contentType string, body io.Reader) (Object, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return Object{}, err
	}
	p.mu.Lock()
	p.objects[key] = data
	p.mu.Unlock()
	return Object{
		Key:         key,
		URL:         "memory://" + key,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func (p *MemoryProvider) Delete(ctx context.Context, key string) error {
	p.mu.Lock()
	delete(p.objects, key)
	p.mu.Unlock()
	return nil
}

func (p *MemoryProvider) Has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.objects[key]
	return ok
}
