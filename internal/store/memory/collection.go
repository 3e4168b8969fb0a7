package memory

import (
	"fmt"

	"painel/internal/core"
)

// collection keeps records in insertion order with an id index.
type collection[T any] struct {
	items []T
	id    func(T) string
}

func newCollection[T any](seed []T, id func(T) string) collection[T] {
	c := collection[T]{id: id}
	for _, item := range seed {
		_ = c.upsert(item)
	}
	return c
}

func (c *collection[T]) list() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *collection[T]) index(id string) int {
	for i, item := range c.items {
		if c.id(item) == id {
			return i
		}
	}
	return -1
}

func (c *collection[T]) has(id string) bool {
	return c.index(id) >= 0
}

func (c *collection[T]) upsert(item T) error {
	id := c.id(item)
	if id == "" {
		return core.ErrEmptyID
	}
	if i := c.index(id); i >= 0 {
		c.items[i] = item
		return nil
	}
	c.items = append(c.items, item)
	return nil
}

func (c *collection[T]) update(item T) error {
	id := c.id(item)
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("update %q: %w", id, core.ErrNotFound)
	}
	c.items[i] = item
	return nil
}

func (c *collection[T]) delete(id string) error {
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("delete %q: %w", id, core.ErrNotFound)
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return nil
}
