// Package cache provides the process-wide key/value cache backing remote
// metadata lookups. Entries live until evicted by capacity or removed
// explicitly; there is no TTL.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize bounds the shared cache. The steady-state population is tiny
// (one discovery document plus one key set per identity provider), the
// bound just keeps a misbehaving caller from growing it without limit.
const DefaultSize = 256

// Service is a namespaced cache. Namespaces partition keys by concern so
// callers cannot collide; a read either observes a fully written entry or
// a miss, never a partial value.
type Service interface {
	Get(namespace, key string) (any, bool)
	Put(namespace, key string, value any)
	Remove(namespace, key string)
}

type lruService struct {
	entries *lru.Cache[string, any]
}

// New creates an LRU-backed cache service. A non-positive size falls back
// to DefaultSize.
func New(size int) (Service, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &lruService{entries: entries}, nil
}

func (s *lruService) Get(namespace, key string) (any, bool) {
	return s.entries.Get(entryKey(namespace, key))
}

func (s *lruService) Put(namespace, key string, value any) {
	s.entries.Add(entryKey(namespace, key), value)
}

func (s *lruService) Remove(namespace, key string) {
	s.entries.Remove(entryKey(namespace, key))
}

// entryKey joins namespace and key with a separator no namespace uses, so
// ("a", "b::c") and ("a::b", "c") stay distinct in practice.
func entryKey(namespace, key string) string {
	return namespace + "::" + key
}
