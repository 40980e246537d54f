package kb

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/globe-kernel/core"
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventShapeAdded EventType = iota
	EventShapeChanged
)

// Event is emitted to subscribers when a named shape is added or replaced.
// Previous is the zero Ellipsoid for EventShapeAdded.
type Event struct {
	Type     EventType
	Name     string
	Previous core.Ellipsoid
	Current  core.Ellipsoid
}

// Catalog is an in-memory, thread-safe store of named ellipsoids.
// Ellipsoids are immutable values, so changing a shape replaces the entry.
type Catalog struct {
	mu sync.RWMutex

	shapes map[string]core.Ellipsoid

	subs   map[int]func(Event)
	nextID int
}

// NewCatalog constructs a catalog holding the built-in presets.
func NewCatalog() *Catalog {
	c := NewEmptyCatalog()
	for _, name := range core.PresetNames() {
		e, _ := core.Preset(name)
		c.shapes[name] = e
	}
	return c
}

// NewEmptyCatalog constructs a catalog with no shapes.
func NewEmptyCatalog() *Catalog {
	return &Catalog{
		shapes: make(map[string]core.Ellipsoid),
		subs:   make(map[int]func(Event)),
	}
}

// Add registers a new shape. It returns an error if the name already exists.
func (c *Catalog) Add(name string, e core.Ellipsoid) error {
	if name == "" {
		return fmt.Errorf("shape name is empty")
	}
	c.mu.Lock()
	if _, exists := c.shapes[name]; exists {
		c.mu.Unlock()
		return fmt.Errorf("shape %q already exists", name)
	}
	c.shapes[name] = e
	subs := c.snapshotSubs()
	c.mu.Unlock()

	notify(subs, Event{Type: EventShapeAdded, Name: name, Current: e})
	return nil
}

// Set replaces an existing shape and notifies subscribers.
func (c *Catalog) Set(name string, e core.Ellipsoid) error {
	c.mu.Lock()
	prev, ok := c.shapes[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("shape %q not found: %w", name, core.ErrUnknownEllipsoid)
	}
	c.shapes[name] = e
	subs := c.snapshotSubs()
	c.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	notify(subs, Event{Type: EventShapeChanged, Name: name, Previous: prev, Current: e})
	return nil
}

// Ellipsoid returns the named shape. It satisfies core.ShapeResolver.
func (c *Catalog) Ellipsoid(name string) (core.Ellipsoid, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.shapes[name]
	return e, ok
}

// Names returns the registered names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]string, 0, len(c.shapes))
	for name := range c.shapes {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// Len returns the number of registered shapes.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shapes)
}

// Subscribe registers a callback for catalog events. It returns an unsubscribe function.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// snapshotSubs must be called with c.mu held. Callbacks run in
// subscription order.
func (c *Catalog) snapshotSubs() []func(Event) {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, c.subs[id])
	}
	return subs
}

func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
