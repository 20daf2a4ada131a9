package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryRemote is an in-process RemoteStore. Setting Err makes every call fail.
type MemoryRemote struct {
	mu          sync.Mutex
	collections map[string]map[string]Document
	Err         error
	applies     int
}

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{collections: make(map[string]map[string]Document)}
}

func (m *MemoryRemote) List(ctx context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	docs := make([]Document, 0, len(m.collections[collection]))
	for _, d := range m.collections[collection] {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *MemoryRemote) Apply(ctx context.Context, collection string, upserts []Document, deletes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.applies++
	c := m.collections[collection]
	if c == nil {
		c = make(map[string]Document)
		m.collections[collection] = c
	}
	for _, d := range upserts {
		c[d.ID] = d
	}
	for _, id := range deletes {
		delete(c, id)
	}
	return nil
}

func (m *MemoryRemote) SetErr(err error) {
	m.mu.Lock()
	m.Err = err
	m.mu.Unlock()
}

// Applies counts successful Apply calls.
func (m *MemoryRemote) Applies() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applies
}

// MemoryLocal is an in-process LocalStore. Setting Err makes every call fail.
type MemoryLocal struct {
	mu   sync.Mutex
	data map[string][]byte
	Err  error
}

func NewMemoryLocal() *MemoryLocal {
	return &MemoryLocal{data: make(map[string][]byte)}
}

func (m *MemoryLocal) Read(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	d, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), d...), true, nil
}

func (m *MemoryLocal) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryLocal) SetErr(err error) {
	m.mu.Lock()
	m.Err = err
	m.mu.Unlock()
}
