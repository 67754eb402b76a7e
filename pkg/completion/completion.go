// Copyright 2024-2026 Aiku AI

// Package completion keeps a set of command names for tab completion, fed by
// the command registry's added/removed notifications.
package completion

import (
	"sort"
	"strings"
	"sync"

	"github.com/aiku/chatcmd/pkg/cmds"
)

// Cache is a cmds.Observer that tracks which command names are registered.
// A name stays in the cache until every registration using it is removed.
// Cache is safe for concurrent use.
type Cache struct {
	mu    sync.RWMutex
	names map[string]int
}

var _ cmds.Observer = (*Cache)(nil)

// New returns an empty cache.
func New() *Cache {
	return &Cache{names: make(map[string]int)}
}

// Attach seeds a new cache with the commands already in reg and subscribes
// it to later changes. Call the returned function to detach.
func Attach(reg *cmds.Registry) (*Cache, func()) {
	c := New()
	for _, name := range reg.List(nil) {
		c.names[name]++
	}
	return c, reg.AddObserver(c)
}

func (c *Cache) CommandAdded(name string, _ int, _ cmds.Flag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[name]++
}

func (c *Cache) CommandRemoved(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.names[name] <= 1 {
		delete(c.names, name)
		return
	}
	c.names[name]--
}

// Names returns every cached name in lexical order.
func (c *Cache) Names() []string {
	return c.Complete("")
}

// Complete returns the names starting with partial. An exact match comes
// first, then shorter names, then lexical order.
func (c *Cache) Complete(partial string) []string {
	c.mu.RLock()
	var matches []string
	for name := range c.names {
		if strings.HasPrefix(name, partial) {
			matches = append(matches, name)
		}
	}
	c.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if (a == partial) != (b == partial) {
			return a == partial
		}
		if partial != "" && len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return matches
}

// CompleteLine completes a whole input line for line editors. Only the
// command word is completed: line must start with prefix and contain no
// space yet. Candidates are full lines ending in a space.
func (c *Cache) CompleteLine(line, prefix string) []string {
	if prefix == "" || !strings.HasPrefix(line, prefix) || strings.Contains(line, " ") {
		return nil
	}
	partial := strings.TrimPrefix(line, prefix)
	if strings.HasPrefix(partial, prefix) {
		// An escaped prefix starts a message, not a command.
		return nil
	}
	names := c.Complete(partial)
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = prefix + name + " "
	}
	return lines
}
