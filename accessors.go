package chaintab

import (
	"github.com/pkg/errors"
)

// GetRef returns a pointer to the value stored for key, allowing in-place
// mutation without a copy. It fails with ErrKeyNotFound if key is absent.
//
// The pointer aliases the table's value slice and is invalidated by any
// operation that changes the capacity.
func (t *Table[K, V]) GetRef(key K) (*V, error) {
	t.checkRead()
	i := t.findSlot(&key)
	if i == emptySlot {
		return nil, errors.Wrapf(ErrKeyNotFound, "key %v", key)
	}
	return &t.values[i], nil
}

// AnyKey returns the key of an arbitrary live entry: the head of the first
// non-empty bucket. It fails with ErrEmptyTable if the table has no entries.
func (t *Table[K, V]) AnyKey() (K, error) {
	if key, _, _, ok := t.TryGetFirstEntry(Cursor{}); ok {
		return key, nil
	}
	return *new(K), ErrEmptyTable
}

// Cursor is a resumable position for TryGetFirstEntry. The zero value
// starts at the first bucket.
type Cursor struct {
	bucket  int   // next bucket to scan
	pending int32 // next slot of the current chain plus one, 0 if none
}

// TryGetFirstEntry returns the first live entry at or after c, in bucket
// order and chain order within a bucket, together with the cursor to pass
// to the next call. found is false once every entry has been visited.
//
// Starting from Cursor{} and threading the returned cursor back in visits
// each live entry exactly once, as long as the table is not modified in
// between.
func (t *Table[K, V]) TryGetFirstEntry(c Cursor) (key K, value V, next Cursor, found bool) {
	t.checkRead()
	slot := c.pending - 1
	b := c.bucket
	for slot == emptySlot {
		if b >= len(t.buckets) {
			return key, value, Cursor{bucket: b}, false
		}
		slot = t.buckets[b]
		b++
	}
	return t.keys[slot], t.values[slot], Cursor{bucket: b, pending: t.next[slot] + 1}, true
}

// All returns an iterator over every entry, for use with range-over-func.
func (t *Table[K, V]) All() func(yield func(K, V) bool) {
	return func(yield func(K, V) bool) {
		for k, v, c, ok := t.TryGetFirstEntry(Cursor{}); ok; k, v, c, ok = t.TryGetFirstEntry(c) {
			if !yield(k, v) {
				return
			}
		}
	}
}

// Keys returns an iterator over every key.
func (t *Table[K, V]) Keys() func(yield func(K) bool) {
	return func(yield func(K) bool) {
		for k := range t.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over every value.
func (t *Table[K, V]) Values() func(yield func(V) bool) {
	return func(yield func(V) bool) {
		for _, v := range t.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// ToMap collects the table into a Go map. When a key is stored twice
// (a violated bulk-load contract) the value lookups resolve to wins.
func (t *Table[K, V]) ToMap() map[K]V {
	m := make(map[K]V, t.Count())
	for k, v := range t.All() {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return m
}
