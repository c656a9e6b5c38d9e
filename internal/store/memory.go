package store

import (
	"context"
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// Memory keeps everything in process memory. Entries never expire.
type Memory struct {
	items *gocache.Cache
}

func NewMemory() *Memory {
	return &Memory{items: gocache.New(gocache.NoExpiration, 0)}
}

func memoryKey(ns Namespace, key string) string {
	return ns.String() + "\x00" + key
}

func (m *Memory) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	v, ok := m.items.Get(memoryKey(ns, key))
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v.([]byte)), nil
}

func (m *Memory) Set(ctx context.Context, ns Namespace, key string, data []byte) error {
	m.items.Set(memoryKey(ns, key), clone(data), gocache.NoExpiration)
	return nil
}

func (m *Memory) Delete(ctx context.Context, ns Namespace, key string) error {
	k := memoryKey(ns, key)
	if _, ok := m.items.Get(k); !ok {
		return ErrNotFound
	}
	m.items.Delete(k)
	return nil
}

func (m *Memory) List(ctx context.Context, ns Namespace, prefix string) ([][]byte, error) {
	full := memoryKey(ns, prefix)

	var keys []string
	items := m.items.Items()
	for k := range items {
		if strings.HasPrefix(k, full) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		out = append(out, clone(items[k].Object.([]byte)))
	}
	return out, nil
}

func (m *Memory) Close() error {
	m.items.Flush()
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
