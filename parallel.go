package chaintab

import (
	"context"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ParallelWriter appends disjoint batches to a Table from many goroutines.
//
// Each Append reserves a contiguous slot range with one atomic fetch-and-add
// on a shared counter, copies its batch there, and links every new slot into
// its bucket chain with a compare-and-swap retry loop on the bucket head, so
// batches landing in the same bucket never lose a link.
//
// Usage:
//
//	w, err := t.ParallelWriter(total) // sizes the table once, up front
//	// ... goroutines call w.Append(keys, values) ...
//	// ... wait for all of them ...
//	err = w.Complete() // publishes the new count
//
// The table must not be read or written through any other method between
// ParallelWriter and Complete or Abort.
type ParallelWriter[K comparable, V any] struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		table unsafe.Pointer
		start int
		limit int
	}{})%CacheLineSize) % CacheLineSize]byte

	table *Table[K, V]
	start int // count when the writer was created
	limit int // reservations must end at or below this slot

	reserved atomic.Int64 // next free slot
	//lint:ignore U1000 prevents false sharing
	_ [(CacheLineSize - unsafe.Sizeof(int64(0))%CacheLineSize) % CacheLineSize]byte

	failed atomic.Bool
	closed atomic.Bool
}

// ParallelWriter grows the table so that total more entries fit and returns
// a writer for appending them concurrently. Growth happens only here: a
// capacity change while writers are running would move the slices under
// them.
//
// The table must be dense and, as for Append, keys across all batches must be
// unique and absent from the table; with checks enabled a non-dense table
// yields ErrPreconditionViolation.
func (t *Table[K, V]) ParallelWriter(total int) (*ParallelWriter[K, V], error) {
	if total < 0 {
		panic("chaintab: negative length")
	}
	t.lazyInit()
	if t.checks && !t.access.CompareAndSwap(accessIdle, accessParallel) {
		panic(ErrConcurrentAccess)
	}
	if t.checks {
		if err := t.checkDense("parallel append"); err != nil {
			t.endParallel()
			return nil, err
		}
	}
	if err := t.ensureCapacity(t.count + total); err != nil {
		t.endParallel()
		return nil, err
	}

	w := &ParallelWriter[K, V]{
		table: t,
		start: t.count,
		limit: len(t.keys),
	}
	w.reserved.Store(int64(t.count))

	t.log.WithFields(logrus.Fields{
		"count":    t.count,
		"reserve":  total,
		"capacity": len(t.keys),
	}).Debug("chaintab: parallel writer opened")
	return w, nil
}

// Append writes one batch. It is safe for concurrent use.
//
// It returns ErrArgumentMismatch if the slices differ in length, and
// ErrCapacityExceeded if the batch does not fit in the capacity reserved by
// ParallelWriter. The latter poisons the writer: Complete then discards every
// batch.
func (w *ParallelWriter[K, V]) Append(keys []K, values []V) error {
	if len(keys) != len(values) {
		return errors.Wrapf(ErrArgumentMismatch,
			"parallel append: %d keys, %d values", len(keys), len(values))
	}
	return w.append(keys, values, true)
}

// AppendKeys writes one batch of keys without writing the value slots.
// It is safe for concurrent use.
func (w *ParallelWriter[K, V]) AppendKeys(keys []K) error {
	return w.append(keys, nil, false)
}

func (w *ParallelWriter[K, V]) append(keys []K, values []V, withValues bool) error {
	n := len(keys)
	if n == 0 {
		return nil
	}
	if w.closed.Load() {
		return errors.Wrap(ErrPreconditionViolation, "parallel append after close")
	}
	end := int(w.reserved.Add(int64(n)))
	start := end - n
	if end > w.limit {
		w.failed.Store(true)
		return errors.Wrapf(ErrCapacityExceeded,
			"slots [%d, %d) past capacity %d", start, end, w.limit)
	}

	t := w.table
	copy(t.keys[start:end], keys)
	if withValues {
		copy(t.values[start:end], values)
	}
	for i := start; i < end; i++ {
		t.linkHeadAtomic(int32(i))
	}
	return nil
}

// linkHeadAtomic pushes slot onto the front of its bucket chain while other
// goroutines may be doing the same on the same bucket. next[slot] belongs to
// the reserving goroutine, so only the head needs the CAS.
func (t *Table[K, V]) linkHeadAtomic(slot int32) {
	head := &t.buckets[t.bucketFor(&t.keys[slot])]
	for {
		old := atomic.LoadInt32(head)
		t.next[slot] = old
		if atomic.CompareAndSwapInt32(head, old, slot) {
			return
		}
	}
}

// Reserved returns the number of slots reserved so far by Append calls.
func (w *ParallelWriter[K, V]) Reserved() int {
	return int(w.reserved.Load()) - w.start
}

// Complete publishes every appended batch by advancing the table count. It
// must be called once, after all Append calls have returned.
//
// If any Append failed with ErrCapacityExceeded, Complete discards all
// batches, restores the chains of the entries that existed before the
// writer was opened, and returns ErrCapacityExceeded.
func (w *ParallelWriter[K, V]) Complete() error {
	if !w.closed.CompareAndSwap(false, true) {
		return errors.Wrap(ErrPreconditionViolation, "parallel writer already closed")
	}
	t := w.table
	if w.failed.Load() {
		reserved := w.Reserved()
		w.rollback()
		t.log.WithFields(logrus.Fields{
			"reserved": reserved,
			"capacity": w.limit,
		}).Error("chaintab: parallel append overflowed, batches discarded")
		return errors.Wrapf(ErrCapacityExceeded,
			"reserved %d slots, capacity %d", reserved, w.limit-w.start)
	}

	t.count = int(w.reserved.Load())
	t.endParallel()

	t.log.WithFields(logrus.Fields{
		"appended": t.count - w.start,
		"count":    t.count,
	}).Debug("chaintab: parallel writer completed")
	return nil
}

// Abort discards every appended batch, leaving the table as it was when the
// writer was opened apart from its capacity. Like Complete it must be called
// after all Append calls have returned.
func (w *ParallelWriter[K, V]) Abort() {
	if !w.closed.CompareAndSwap(false, true) {
		return
	}
	w.rollback()
}

func (w *ParallelWriter[K, V]) rollback() {
	t := w.table
	t.count = w.start
	t.rebuildChains()
	t.endParallel()
}

func (t *Table[K, V]) endParallel() {
	if t.checks {
		t.access.Store(accessIdle)
	}
}

// ParallelAppend appends keyBatches[i]/valueBatches[i] concurrently, one
// goroutine per batch and at most GOMAXPROCS at a time, then publishes the
// result. Either every batch is appended or, on error or cancellation of
// ctx, none is.
func (t *Table[K, V]) ParallelAppend(
	ctx context.Context,
	keyBatches [][]K,
	valueBatches [][]V,
) error {
	if len(keyBatches) != len(valueBatches) {
		return errors.Wrapf(ErrArgumentMismatch,
			"parallel append: %d key batches, %d value batches",
			len(keyBatches), len(valueBatches))
	}
	total := 0
	for i := range keyBatches {
		if len(keyBatches[i]) != len(valueBatches[i]) {
			return errors.Wrapf(ErrArgumentMismatch,
				"parallel append batch %d: %d keys, %d values",
				i, len(keyBatches[i]), len(valueBatches[i]))
		}
		total += len(keyBatches[i])
	}

	w, err := t.ParallelWriter(total)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range keyBatches {
		keys, values := keyBatches[i], valueBatches[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return w.Append(keys, values)
		})
	}
	if err := g.Wait(); err != nil {
		w.Abort()
		return errors.Wrap(err, "parallel append")
	}
	return w.Complete()
}
