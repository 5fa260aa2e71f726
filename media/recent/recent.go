// Copyright The go.kurento.org Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package recent remembers a bounded number of recently retired keys, oldest
// evicted first.
package recent

import (
	"container/list"
	"sync"

	log "github.com/sirupsen/logrus"
)

const DefaultSize = 1000

type Cache[K comparable] struct {
	name    string
	size    int
	entries map[K]*list.Element
	order   *list.List
	mu      sync.Mutex
}

func NewCache[K comparable](name string, size int) *Cache[K] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache[K]{
		name:    name,
		size:    size,
		entries: make(map[K]*list.Element, size),
		order:   list.New(),
	}
}

func (c *Cache[K]) Register(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.MoveToBack(elem)
		return
	}

	if len(c.entries) == c.size {
		oldest := c.order.Remove(c.order.Front()).(K)
		delete(c.entries, oldest)
		log.WithField("cache", c.name).Debugf("evicted %v from full cache", oldest)
	}

	elem := c.order.PushBack(key)
	c.entries[key] = elem
}

func (c *Cache[K]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	return ok
}

func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
