// Package header provides the ordered, case-insensitive set of default
// headers a [github.com/adamwoolhether/apiclient/client.Client] applies to
// every outgoing request.
//
// Every effective mutation notifies the owner through the callback given to
// [New], which is how the client learns that its transport must re-apply
// headers before the next request is sent.
package header

import (
	"iter"
	"net/http"
	"slices"
	"strings"
	"sync"
)

type field struct {
	name  string
	value string
}

// Collection is an ordered mapping of header name to value.
// Lookups ignore case; the casing of the first Set is kept for output.
type Collection struct {
	mu       sync.RWMutex
	order    []string // lower-cased keys, insertion order
	fields   map[string]field
	applied  []string // canonical keys written by the last ApplyTo
	onChange func()
}

// New returns an empty Collection. onChange may be nil.
func New(onChange func()) *Collection {
	return &Collection{
		fields:   make(map[string]field),
		onChange: onChange,
	}
}

// Get returns the value stored for name.
func (c *Collection) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, ok := c.fields[strings.ToLower(name)]
	return f.value, ok
}

// Has reports whether name is present.
func (c *Collection) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Set stores value under name, replacing any previous value.
// An empty value removes the entry.
func (c *Collection) Set(name, value string) {
	if value == "" {
		c.Remove(name)
		return
	}

	key := strings.ToLower(name)

	c.mu.Lock()
	old, ok := c.fields[key]
	if ok && old.value == value {
		c.mu.Unlock()
		return
	}
	if !ok {
		c.order = append(c.order, key)
		old.name = name
	}
	c.fields[key] = field{name: old.name, value: value}
	c.mu.Unlock()

	c.changed()
}

// Remove deletes name and reports whether it was present.
func (c *Collection) Remove(name string) bool {
	key := strings.ToLower(name)

	c.mu.Lock()
	if _, ok := c.fields[key]; !ok {
		c.mu.Unlock()
		return false
	}
	delete(c.fields, key)
	c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == key })
	c.mu.Unlock()

	c.changed()

	return true
}

// Clear removes every entry.
func (c *Collection) Clear() {
	c.mu.Lock()
	if len(c.order) == 0 {
		c.mu.Unlock()
		return
	}
	clear(c.fields)
	c.order = c.order[:0]
	c.mu.Unlock()

	c.changed()
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.order)
}

// Names returns the header names in insertion order.
func (c *Collection) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.order))
	for _, k := range c.order {
		names = append(names, c.fields[k].name)
	}

	return names
}

// All iterates over a snapshot of the entries in insertion order.
func (c *Collection) All() iter.Seq2[string, string] {
	c.mu.RLock()
	snapshot := make([]field, 0, len(c.order))
	for _, k := range c.order {
		snapshot = append(snapshot, c.fields[k])
	}
	c.mu.RUnlock()

	return func(yield func(string, string) bool) {
		for _, f := range snapshot {
			if !yield(f.name, f.value) {
				return
			}
		}
	}
}

// Header returns the entries as a new [http.Header].
func (c *Collection) Header() http.Header {
	h := make(http.Header, c.Len())
	for name, value := range c.All() {
		h.Set(name, value)
	}

	return h
}

// ApplyTo removes from dst every header written by the previous ApplyTo
// call and writes the current entries. The caller must hold exclusive
// access to dst.
func (c *Collection) ApplyTo(dst http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range c.applied {
		dst.Del(k)
	}
	c.applied = c.applied[:0]

	for _, k := range c.order {
		f := c.fields[k]
		canonical := http.CanonicalHeaderKey(f.name)
		dst.Set(canonical, f.value)
		c.applied = append(c.applied, canonical)
	}
}

func (c *Collection) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
