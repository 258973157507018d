package gameconfig

// Collection is an ordered keyed list. Mutating methods return a new
// collection and leave the receiver untouched, so a snapshot handed out
// earlier never changes underneath its holder.
type Collection[T any] struct {
	items []T
	idOf  func(T) string
}

func NewCollection[T any](idOf func(T) string, items ...T) Collection[T] {
	return Collection[T]{items: append([]T(nil), items...), idOf: idOf}
}

func (c Collection[T]) Len() int { return len(c.items) }

// All returns the items in insertion order.
func (c Collection[T]) All() []T {
	return append([]T(nil), c.items...)
}

func (c Collection[T]) Get(id string) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c Collection[T]) Add(item T) Collection[T] {
	items := make([]T, len(c.items), len(c.items)+1)
	copy(items, c.items)
	return Collection[T]{items: append(items, item), idOf: c.idOf}
}

// Update replaces the item with id. ok is false when id is absent.
func (c Collection[T]) Update(id string, item T) (Collection[T], bool) {
	i := c.index(id)
	if i < 0 {
		return c, false
	}
	items := c.All()
	items[i] = item
	return Collection[T]{items: items, idOf: c.idOf}, true
}

func (c Collection[T]) Delete(id string) (Collection[T], T, bool) {
	i := c.index(id)
	if i < 0 {
		var zero T
		return c, zero, false
	}
	removed := c.items[i]
	items := make([]T, 0, len(c.items)-1)
	items = append(items, c.items[:i]...)
	items = append(items, c.items[i+1:]...)
	return Collection[T]{items: items, idOf: c.idOf}, removed, true
}

func (c Collection[T]) index(id string) int {
	for i, it := range c.items {
		if c.idOf(it) == id {
			return i
		}
	}
	return -1
}
