package rcache

import (
	"errors"
	"strconv"

	"mermaidlive/internal/diagram"
	"mermaidlive/internal/trace"
)

// Options configures a Cache.
type Options struct {
	Entries int
	// Dir enables the disk layer when non-empty.
	Dir string
	// MaxWidth is the width cap artifacts are fitted under. Disk entries
	// fitted under another cap are misses.
	MaxWidth int
	Tracer   trace.Tracer
}

// Cache layers the memory LRU over the optional disk cache. Disk errors are
// traced and treated as misses.
type Cache struct {
	mem      *Memory
	disk     *Disk
	maxWidth int
	tracer   trace.Tracer
}

// New builds a Cache.
func New(opts Options) (*Cache, error) {
	c := &Cache{
		mem:      NewMemory(opts.Entries),
		maxWidth: opts.MaxWidth,
		tracer:   trace.OrNop(opts.Tracer),
	}
	if opts.Dir != "" {
		disk, err := OpenDisk(opts.Dir)
		if err != nil {
			return nil, err
		}
		c.disk = disk
	}
	return c, nil
}

// Get looks in memory, then on disk, promoting disk hits.
func (c *Cache) Get(id diagram.Identity) (diagram.Outcome, bool) {
	if o, ok := c.mem.Get(id); ok {
		trace.Point(c.tracer, trace.ScopeDetail, "cache.hit", "memory", map[string]string{"id": id.Short()})
		return o, true
	}
	p, ok, err := c.disk.Get(id)
	if err != nil {
		trace.Errorf(c.tracer, trace.ScopeDetail, "cache.read", "%s: %v", id.Short(), err)
		if errors.Is(err, ErrSchema) {
			err = c.disk.DropAll()
		} else {
			err = c.disk.Remove(id)
		}
		if err != nil {
			trace.Errorf(c.tracer, trace.ScopeDetail, "cache.evict", "%s: %v", id.Short(), err)
		}
		return diagram.Outcome{}, false
	}
	if !ok {
		return diagram.Outcome{}, false
	}
	if p.MaxWidth != c.maxWidth {
		trace.Point(c.tracer, trace.ScopeDetail, "cache.stale", "max width", map[string]string{
			"id":   id.Short(),
			"was":  strconv.Itoa(p.MaxWidth),
			"want": strconv.Itoa(c.maxWidth),
		})
		_ = c.disk.Remove(id)
		return diagram.Outcome{}, false
	}
	o := p.Outcome()
	c.mem.Put(id, o)
	trace.Point(c.tracer, trace.ScopeDetail, "cache.hit", "disk", map[string]string{"id": id.Short()})
	return o, true
}

// Put stores successful outcomes in both layers.
func (c *Cache) Put(id diagram.Identity, o diagram.Outcome) {
	if o.Status != diagram.StatusSuccess {
		return
	}
	c.mem.Put(id, o)
	if err := c.disk.Put(id, payloadFrom(o, c.maxWidth)); err != nil {
		trace.Errorf(c.tracer, trace.ScopeDetail, "cache.write", "%s: %v", id.Short(), err)
	}
}

// Len returns the number of entries held in memory.
func (c *Cache) Len() int { return c.mem.Len() }
