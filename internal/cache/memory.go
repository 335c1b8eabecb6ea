package cache

import (
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// memoryLayer is a small LRU in front of the durable store. Each entry carries
// its own expiry, taken from the durable entry's computedAt and TTL. Values
// are encoded JSON and never mutated after insertion.
type memoryLayer struct {
	entries *lru.Cache
}

type memEntry struct {
	value json.RawMessage
	exp   time.Time
}

func newMemoryLayer(maxEntries int) *memoryLayer {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	entries, err := lru.New(maxEntries)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &memoryLayer{entries: entries}
}

func (m *memoryLayer) get(key string, now time.Time) (json.RawMessage, bool) {
	v, ok := m.entries.Get(key)
	if !ok {
		return nil, false
	}
	en := v.(memEntry)
	if !now.Before(en.exp) {
		m.entries.Remove(key)
		return nil, false
	}
	return en.value, true
}

func (m *memoryLayer) put(key string, value json.RawMessage, exp time.Time, now time.Time) {
	if !now.Before(exp) {
		return
	}
	m.entries.Add(key, memEntry{value: value, exp: exp})
}

func (m *memoryLayer) len() int { return m.entries.Len() }
