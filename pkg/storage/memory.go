package storage

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/JaimeStill/osenchi/pkg/lifecycle"
)

// Memory is an in-process System used for local runs and tests.
// Buckets are created implicitly on first Put.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]map[string][]byte
	logger  *slog.Logger
}

// NewMemory creates an empty in-memory store.
func NewMemory(logger *slog.Logger) *Memory {
	return &Memory{
		objects: make(map[string]map[string][]byte),
		logger:  logger.With("system", "storage", "provider", ProviderMemory),
	}
}

func (m *Memory) Start(lc *lifecycle.Coordinator) error {
	m.logger.Info("starting storage system")
	return nil
}

func (m *Memory) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := validateLocation(bucket, key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(data), nil
}

func (m *Memory) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if err := validateLocation(bucket, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.objects[bucket]
	if !ok {
		objects = make(map[string][]byte)
		m.objects[bucket] = objects
	}
	objects[key] = slices.Clone(data)
	return nil
}

func (m *Memory) Delete(ctx context.Context, bucket, key string) (int, error) {
	if err := validateLocation(bucket, key); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects[bucket], key)
	return http.StatusNoContent, nil
}

func (m *Memory) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := validateLocation(bucket, key); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.objects[bucket][key]
	return ok, nil
}

// Keys returns the sorted object keys stored in bucket.
func (m *Memory) Keys(bucket string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects[bucket]))
	for k := range m.objects[bucket] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
