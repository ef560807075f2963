package glrender

import (
	"slices"
	"sync"

	"github.com/LT-Kerrigan/LabRender/glbuild"
)

// Cache maps variant identifiers to built shaders for the lifetime of the
// process. Entries are never evicted. A Cache is created once at startup and
// passed to every [Selector] that should share compiled programs.
// The zero value is ready to use and Cache is safe for concurrent use.
type Cache struct {
	once    sync.Once
	mu      sync.RWMutex
	shaders map[string]*glbuild.Shader
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{} }

func (c *Cache) init() {
	c.once.Do(func() {
		c.shaders = make(map[string]*glbuild.Shader)
	})
}

// Has reports whether a shader is cached under id.
func (c *Cache) Has(id string) bool {
	c.init()
	c.mu.RLock()
	_, ok := c.shaders[id]
	c.mu.RUnlock()
	return ok
}

// Add stores sh under id replacing any previous entry.
func (c *Cache) Add(id string, sh *glbuild.Shader) {
	c.init()
	c.mu.Lock()
	c.shaders[id] = sh
	c.mu.Unlock()
}

// Shader returns the shader cached under id or nil. It never builds.
func (c *Cache) Shader(id string) *glbuild.Shader {
	c.init()
	c.mu.RLock()
	sh := c.shaders[id]
	c.mu.RUnlock()
	return sh
}

// Len returns the number of cached variants.
func (c *Cache) Len() int {
	c.init()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shaders)
}

// Keys returns the cached variant identifiers in sorted order.
func (c *Cache) Keys() []string {
	c.init()
	c.mu.RLock()
	keys := make([]string, 0, len(c.shaders))
	for k := range c.shaders {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	slices.Sort(keys)
	return keys
}
