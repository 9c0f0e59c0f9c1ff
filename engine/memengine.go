package engine

import (
	"bytes"
	"sort"
)

// MemEngine is an in-memory Engine, grounded on the teacher's
// primary/inmemory.InMemory pattern: a plain slice kept in sorted order
// instead of a real LSM tree. It exists for tests and small examples; it has
// no persistence and is not safe for concurrent use without external
// synchronization (same contract spec §5 asks of a single Engine).
type MemEngine struct {
	keys   [][]byte
	values [][]byte
}

// NewMemEngine returns an empty in-memory Engine.
func NewMemEngine() *MemEngine {
	return &MemEngine{}
}

func (m *MemEngine) indexOf(key []byte) (int, bool) {
	i := sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], key) >= 0
	})
	if i < len(m.keys) && bytes.Equal(m.keys[i], key) {
		return i, true
	}
	return i, false
}

func (m *MemEngine) Get(key []byte) ([]byte, bool, error) {
	i, ok := m.indexOf(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), m.values[i]...), true, nil
}

func (m *MemEngine) Put(key, value []byte) error {
	i, ok := m.indexOf(key)
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	if ok {
		m.values[i] = v
		return nil
	}
	m.keys = append(m.keys, nil)
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = k
	m.values = append(m.values, nil)
	copy(m.values[i+1:], m.values[i:])
	m.values[i] = v
	return nil
}

func (m *MemEngine) Delete(key []byte) error {
	i, ok := m.indexOf(key)
	if !ok {
		return nil
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.values = append(m.values[:i], m.values[i+1:]...)
	return nil
}

func (m *MemEngine) DeleteRange(start, end []byte) error {
	lo := sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], start) >= 0
	})
	hi := sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], end) > 0
	})
	if lo >= hi {
		return nil
	}
	m.keys = append(m.keys[:lo], m.keys[hi:]...)
	m.values = append(m.values[:lo], m.values[hi:]...)
	return nil
}

func (m *MemEngine) NewIterator(start, end []byte) Iterator {
	lo := sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], start) >= 0
	})
	hi := sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], end) > 0
	})
	return &memIterator{m: m, i: lo - 1, hi: hi}
}

func (m *MemEngine) ApproximateSize(start, end []byte) (uint64, error) {
	var total uint64
	it := m.NewIterator(start, end)
	defer it.Close()
	for it.Next() {
		total += uint64(len(it.Key()) + len(it.Value()))
	}
	return total, it.Error()
}

func (m *MemEngine) Repair() error { return nil }

func (m *MemEngine) Close() error { return nil }

type memIterator struct {
	m  *MemEngine
	i  int
	hi int
}

func (it *memIterator) Next() bool {
	it.i++
	return it.i < it.hi
}

func (it *memIterator) Key() []byte   { return it.m.keys[it.i] }
func (it *memIterator) Value() []byte { return it.m.values[it.i] }
func (it *memIterator) Error() error  { return nil }
func (it *memIterator) Close() error  { return nil }

var _ Engine = (*MemEngine)(nil)
