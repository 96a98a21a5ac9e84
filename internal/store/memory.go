package store

import (
	"context"
	"sync"
)

// Memory keeps records in process memory. It backs tests and the daemon's
// --ephemeral mode.
type Memory struct {
	codec
	mem *memoryRecords
}

type memoryRecords struct {
	mu     sync.Mutex
	values map[string][]byte
	writes int
}

func NewMemory() *Memory {
	m := &memoryRecords{values: make(map[string][]byte)}
	return &Memory{codec: codec{backend: m}, mem: m}
}

func (m *memoryRecords) get(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memoryRecords) put(ctx context.Context, name string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = append([]byte(nil), value...)
	m.writes++
	return nil
}

// Raw returns the stored bytes for name.
func (m *Memory) Raw(name string) ([]byte, bool) {
	v, ok, _ := m.mem.get(context.Background(), name)
	return v, ok
}

// SetRaw stores bytes for name directly, bypassing encoding.
func (m *Memory) SetRaw(name string, value []byte) {
	_ = m.mem.put(context.Background(), name, value)
}

// Writes counts successful puts, including SetRaw.
func (m *Memory) Writes() int {
	m.mem.mu.Lock()
	defer m.mem.mu.Unlock()
	return m.mem.writes
}

func (m *Memory) Close() error { return nil }
