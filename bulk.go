package chaintab

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ClearAndLoad replaces the whole content of the table with the pairs
// (keys[i], values[i]).
//
// The keys and values are copied into slots [0, len(keys)) and every bucket
// chain is rebuilt from scratch by pushing slots onto the front of their
// chain in ascending order. Capacity grows if needed and never shrinks.
//
// Keys must be unique. This is not verified unless checks are enabled; if a
// key is supplied twice, lookups resolve to the occurrence with the highest
// index.
//
// Returns ErrArgumentMismatch, without touching the table, if the slices
// differ in length.
func (t *Table[K, V]) ClearAndLoad(keys []K, values []V) error {
	if len(keys) != len(values) {
		return errors.Wrapf(ErrArgumentMismatch,
			"clear and load: %d keys, %d values", len(keys), len(values))
	}
	return t.clearAndLoad(keys, values, true)
}

// ClearAndLoadN is ClearAndLoad over the first n elements of keys and
// values. Both slices must hold at least n elements.
func (t *Table[K, V]) ClearAndLoadN(keys []K, values []V, n int) error {
	if n < 0 {
		panic("chaintab: negative length")
	}
	if len(keys) < n || len(values) < n {
		return errors.Wrapf(ErrArgumentMismatch,
			"clear and load %d: %d keys, %d values", n, len(keys), len(values))
	}
	return t.clearAndLoad(keys[:n], values[:n], true)
}

// ClearAndLoadKeys replaces the key set of the table without writing the
// value slots. The value observed for each key afterwards is whatever its
// slot held before (zero for slots never written); callers use this to
// rebuild a key set whose values are maintained separately.
func (t *Table[K, V]) ClearAndLoadKeys(keys []K) error {
	return t.clearAndLoad(keys, nil, false)
}

func (t *Table[K, V]) clearAndLoad(keys []K, values []V, withValues bool) error {
	t.lazyInit()
	t.beginWrite()
	defer t.endWrite()

	n := len(keys)
	if n > MaxCapacity {
		return errors.Wrapf(ErrInvalidCapacity, "need %d slots, max %d", n, MaxCapacity)
	}
	if t.checks {
		if err := t.checkUnique(keys, false); err != nil {
			return err
		}
	}

	// Nothing survives, so growing need not carry the old slots over.
	t.count = 0
	t.freeHead = emptySlot
	t.freeLen = 0
	if err := t.ensureCapacity(n); err != nil {
		return err
	}

	copy(t.keys, keys)
	if withValues {
		copy(t.values, values)
	}
	fillEmpty(t.buckets)
	for i := 0; i < n; i++ {
		t.linkHead(int32(i))
	}
	t.count = n

	t.log.WithFields(logrus.Fields{
		"count":    n,
		"capacity": len(t.keys),
	}).Debug("chaintab: clear and load")
	return nil
}

// Append adds the pairs (keys[i], values[i]) after the existing entries.
//
// The new pairs go to slots [Count(), Count()+len(keys)) and are pushed onto
// the front of their bucket chains; existing chains are extended, not
// rebuilt. Capacity grows if needed.
//
// Preconditions, verified only when checks are enabled:
//   - the table is dense: no entry was removed since the last load,
//   - the keys are unique among themselves and absent from the table.
func (t *Table[K, V]) Append(keys []K, values []V) error {
	if len(keys) != len(values) {
		return errors.Wrapf(ErrArgumentMismatch,
			"append: %d keys, %d values", len(keys), len(values))
	}
	return t.appendBatch(keys, values, true)
}

// AppendN is Append over the first n elements of keys and values.
func (t *Table[K, V]) AppendN(keys []K, values []V, n int) error {
	if n < 0 {
		panic("chaintab: negative length")
	}
	if len(keys) < n || len(values) < n {
		return errors.Wrapf(ErrArgumentMismatch,
			"append %d: %d keys, %d values", n, len(keys), len(values))
	}
	return t.appendBatch(keys[:n], values[:n], true)
}

// AppendKeys is Append without writing the value slots.
func (t *Table[K, V]) AppendKeys(keys []K) error {
	return t.appendBatch(keys, nil, false)
}

func (t *Table[K, V]) appendBatch(keys []K, values []V, withValues bool) error {
	t.lazyInit()
	t.beginWrite()
	defer t.endWrite()

	n := len(keys)
	if n == 0 {
		return nil
	}
	old := t.count
	if old+n > MaxCapacity {
		return errors.Wrapf(ErrInvalidCapacity, "need %d slots, max %d", old+n, MaxCapacity)
	}
	if t.checks {
		if err := t.checkDense("append"); err != nil {
			return err
		}
		if err := t.checkUnique(keys, true); err != nil {
			return err
		}
	}
	if err := t.ensureCapacity(old + n); err != nil {
		return err
	}

	copy(t.keys[old:], keys)
	if withValues {
		copy(t.values[old:], values)
	}
	for i := old; i < old+n; i++ {
		t.linkHead(int32(i))
	}
	t.count = old + n

	t.log.WithFields(logrus.Fields{
		"appended": n,
		"count":    t.count,
	}).Debug("chaintab: append")
	return nil
}

// checkDense fails if removed slots are waiting for reuse.
func (t *Table[K, V]) checkDense(op string) error {
	if t.freeLen == 0 {
		return nil
	}
	t.log.WithFields(logrus.Fields{
		"op":      op,
		"removed": t.freeLen,
	}).Warn("chaintab: bulk append on a table with removed slots")
	return errors.Wrapf(ErrPreconditionViolation,
		"%s: table has %d removed slots", op, t.freeLen)
}

// checkUnique fails on the first key repeated within keys or, when
// againstTable is set, already present in the table.
func (t *Table[K, V]) checkUnique(keys []K, againstTable bool) error {
	seen := make(map[K]struct{}, len(keys))
	for i := range keys {
		k := &keys[i]
		_, dup := seen[*k]
		if !dup && againstTable {
			dup = t.findSlot(k) != emptySlot
		}
		if dup {
			t.log.WithFields(logrus.Fields{
				"key":   *k,
				"index": i,
			}).Warn("chaintab: duplicate key in bulk operation")
			return errors.Wrapf(ErrPreconditionViolation,
				"duplicate key %v at index %d", *k, i)
		}
		seen[*k] = struct{}{}
	}
	return nil
}
