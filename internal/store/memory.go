package store

import (
	"strings"
	"sync"

	"github.com/google/btree"
)

type memItem struct {
	key   string
	value []byte
}

func memLess(a, b memItem) bool {
	return a.key < b.key
}

// MemoryStore an ordered in-process store, lost on exit
type MemoryStore struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[memItem]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tree: btree.NewG[memItem](16, memLess)}
}

func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.tree.Get(memItem{key: key})
	if !ok {
		return nil, ErrNotFound
	}
	return copyBytes(it.value), nil
}

func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(memItem{key: key, value: copyBytes(value)})
	return nil
}

func (s *MemoryStore) ScanPrefix(prefix string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	s.tree.AscendGreaterOrEqual(memItem{key: prefix}, func(it memItem) bool {
		if !strings.HasPrefix(it.key, prefix) {
			return false
		}
		out = append(out, Entry{Key: it.key, Value: copyBytes(it.value)})
		return true
	})
	return out, nil
}

// Len number of keys held
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

func (s *MemoryStore) Close() error {
	return nil
}
