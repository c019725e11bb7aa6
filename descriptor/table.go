// Package descriptor implements a table mapping small integer descriptors to
// values.
package descriptor

import (
	"fmt"
	"sync"

	"github.com/willf/bitset"
)

// Table maps descriptors to values of type T. Descriptors below the table's
// floor are never chosen by Insert but may be claimed with InsertAt.
//
// A Table is safe for concurrent use.
type Table[T any] struct {
	m     sync.Mutex
	floor uint
	used  bitset.BitSet
	items []T
}

// NewTable returns an empty table whose Insert never returns a descriptor
// below floor.
func NewTable[T any](floor int) *Table[T] {
	if floor < 0 {
		panic(fmt.Errorf("negative descriptor floor %d", floor))
	}
	return &Table[T]{floor: uint(floor)}
}

// Insert stores item under the lowest unused descriptor at or above the
// table's floor.
func (t *Table[T]) Insert(item T) int {
	t.m.Lock()
	defer t.m.Unlock()

	fd, ok := t.used.NextClear(t.floor)
	if !ok {
		fd = t.used.Len()
		if fd < t.floor {
			fd = t.floor
		}
	}
	t.store(fd, item)
	return int(fd)
}

// InsertAt stores item under fd. It returns false if fd is negative or
// already in use.
func (t *Table[T]) InsertAt(fd int, item T) bool {
	if fd < 0 {
		return false
	}

	t.m.Lock()
	defer t.m.Unlock()

	if t.used.Test(uint(fd)) {
		return false
	}
	t.store(uint(fd), item)
	return true
}

func (t *Table[T]) store(fd uint, item T) {
	if n := int(fd) + 1; n > len(t.items) {
		if n <= cap(t.items) {
			t.items = t.items[:n]
		} else {
			items := make([]T, n, 2*n)
			copy(items, t.items)
			t.items = items
		}
	}
	t.used.Set(fd)
	t.items[fd] = item
}

// Lookup returns the item stored under fd.
func (t *Table[T]) Lookup(fd int) (T, bool) {
	t.m.Lock()
	defer t.m.Unlock()

	var zero T
	if fd < 0 || fd >= len(t.items) || !t.used.Test(uint(fd)) {
		return zero, false
	}
	return t.items[fd], true
}

// Delete removes fd from the table and returns the item it held.
func (t *Table[T]) Delete(fd int) (T, bool) {
	t.m.Lock()
	defer t.m.Unlock()

	var zero T
	if fd < 0 || fd >= len(t.items) || !t.used.Test(uint(fd)) {
		return zero, false
	}
	item := t.items[fd]
	t.items[fd] = zero
	t.used.Clear(uint(fd))
	return item, true
}

// Len returns the number of descriptors in use.
func (t *Table[T]) Len() int {
	t.m.Lock()
	defer t.m.Unlock()

	return int(t.used.Count())
}

// Range calls f for each descriptor in ascending order until f returns false.
// f must not modify the table.
func (t *Table[T]) Range(f func(fd int, item T) bool) {
	t.m.Lock()
	defer t.m.Unlock()

	for fd, ok := t.used.NextSet(0); ok; fd, ok = t.used.NextSet(fd + 1) {
		if !f(int(fd), t.items[fd]) {
			return
		}
	}
}

// Reset removes every descriptor.
func (t *Table[T]) Reset() {
	t.m.Lock()
	defer t.m.Unlock()

	t.used.ClearAll()
	t.items = nil
}
