// Package assets loads shader sources and other named resources.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when no source can provide the resource.
var ErrNotFound = errors.New("resource not found")

// Loader returns the full contents of a named resource.
type Loader interface {
	Load(name string) ([]byte, error)
}

// DirLoader reads resources from a directory on disk.
type DirLoader struct {
	Dir string
}

// Load reads name relative to the directory.
func (l DirLoader) Load(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.Dir, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, l.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// FSLoader reads resources from a file system, typically an embed.FS.
type FSLoader struct {
	FS fs.FS
	// Root is prepended to every name.
	Root string
}

// Load reads name from the file system.
func (l FSLoader) Load(name string) ([]byte, error) {
	data, err := fs.ReadFile(l.FS, path.Join(l.Root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Manager searches a list of loaders and caches what it finds.
type Manager struct {
	loaders []Loader
	cache   *Cache
	mu      sync.RWMutex
}

// NewManager creates a manager over loaders. Later loaders take priority.
func NewManager(loaders ...Loader) *Manager {
	return &Manager{
		loaders: loaders,
		cache:   NewCache(),
	}
}

// Add appends a loader with the highest priority so far.
func (m *Manager) Add(l Loader) {
	m.mu.Lock()
	m.loaders = append(m.loaders, l)
	m.mu.Unlock()
}

// Load returns the resource from the cache or the highest priority loader
// that has it. The returned slice is shared; callers must not modify it.
func (m *Manager) Load(name string) ([]byte, error) {
	if data, ok := m.cache.Get(name); ok {
		return data, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.loaders) - 1; i >= 0; i-- {
		data, err := m.loaders[i].Load(name)
		if err == nil {
			m.cache.Set(name, data)
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Invalidate forgets cached resources so the next Load reads the loaders again.
func (m *Manager) Invalidate() {
	m.cache.Clear()
}

// Close drops every loader and cached resource.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loaders = nil
	m.cache.Clear()
}

// Stats returns the cache hit and miss counts.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Cache is a simple in-memory cache for loaded resources.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
