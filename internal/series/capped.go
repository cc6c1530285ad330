package series

// Capped is a most-recent-first list holding at most max items. Pushing past
// the limit evicts from the tail.
type Capped[T any] struct {
	max   int
	items []T
}

func NewCapped[T any](max int) *Capped[T] {
	if max < 1 {
		max = 1
	}
	return &Capped[T]{max: max}
}

// Push inserts v at the head and returns any evicted items.
func (c *Capped[T]) Push(v T) []T {
	c.items = append([]T{v}, c.items...)
	if len(c.items) <= c.max {
		return nil
	}
	evicted := append([]T(nil), c.items[c.max:]...)
	c.items = c.items[:c.max:c.max]
	return evicted
}

// Reset replaces the contents, keeping only the first max items.
func (c *Capped[T]) Reset(items []T) {
	if len(items) > c.max {
		items = items[:c.max]
	}
	c.items = append([]T(nil), items...)
}

// RemoveFunc drops the first item matching fn and reports whether one was found.
func (c *Capped[T]) RemoveFunc(fn func(T) bool) bool {
	for i, v := range c.items {
		if fn(v) {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Capped[T]) Clear() { c.items = nil }

// Items returns a shallow copy, most recent first.
func (c *Capped[T]) Items() []T {
	return append([]T{}, c.items...)
}

func (c *Capped[T]) Len() int { return len(c.items) }
