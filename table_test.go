package chaintab

import (
	"errors"
	"fmt"
	"testing"
)

// reachableSlots walks every bucket chain and counts how often each slot is
// reached.
func reachableSlots[K comparable, V any](t *Table[K, V]) map[int32]int {
	seen := make(map[int32]int)
	for _, head := range t.buckets {
		for i := head; i != emptySlot; i = t.next[i] {
			seen[i]++
		}
	}
	return seen
}

func TestTable_ZeroValue(t *testing.T) {
	var tb Table[string, int]
	if tb.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", tb.Count())
	}
	if _, ok := tb.TryGetValue("a"); ok {
		t.Fatal("TryGetValue on zero table found a key")
	}
	if tb.Remove("a") {
		t.Fatal("Remove on zero table reported success")
	}
	tb.Clear()

	if err := tb.Add("a", 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if v, ok := tb.TryGetValue("a"); !ok || v != 1 {
		t.Fatalf("TryGetValue(a) = (%v, %v), want (1, true)", v, ok)
	}
	if tb.Capacity() != minCapacity {
		t.Fatalf("Capacity() = %d, want %d", tb.Capacity(), minCapacity)
	}
}

func TestTable_AddGetRemove(t *testing.T) {
	tb := New[int, string]()
	for i := 0; i < 1000; i++ {
		if err := tb.Add(i, fmt.Sprint(i)); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}
	if tb.Count() != 1000 {
		t.Fatalf("Count() = %d, want 1000", tb.Count())
	}
	if err := tb.Add(5, "x"); !errors.Is(err, ErrKeyExists) {
		t.Fatalf("Add(dup) = %v, want ErrKeyExists", err)
	}
	if tb.TryAdd(5, "x") {
		t.Fatal("TryAdd(dup) = true")
	}
	for i := 0; i < 1000; i++ {
		if v, ok := tb.TryGetValue(i); !ok || v != fmt.Sprint(i) {
			t.Fatalf("TryGetValue(%d) = (%q, %v)", i, v, ok)
		}
	}

	for i := 0; i < 1000; i += 2 {
		if !tb.Remove(i) {
			t.Fatalf("Remove(%d) = false", i)
		}
	}
	if tb.Remove(0) {
		t.Fatal("second Remove(0) = true")
	}
	if tb.Count() != 500 {
		t.Fatalf("Count() = %d, want 500", tb.Count())
	}
	if tb.IsDense() {
		t.Fatal("IsDense() = true after Remove")
	}
	for i := 0; i < 1000; i++ {
		if got := tb.ContainsKey(i); got != (i%2 == 1) {
			t.Fatalf("ContainsKey(%d) = %v", i, got)
		}
	}
}

func TestTable_RemovedSlotsAreReused(t *testing.T) {
	tb := New[int, int]()
	for i := 0; i < 10; i++ {
		tb.Add(i, i)
	}
	tb.Remove(3)
	tb.Remove(7)
	if err := tb.Add(100, 100); err != nil {
		t.Fatal(err)
	}
	if err := tb.Add(200, 200); err != nil {
		t.Fatal(err)
	}
	if !tb.IsDense() {
		t.Fatal("IsDense() = false after refilling removed slots")
	}
	if tb.count != 10 {
		t.Fatalf("allocated = %d, want 10", tb.count)
	}
	for _, k := range []int{0, 1, 2, 4, 5, 6, 8, 9, 100, 200} {
		if v, ok := tb.TryGetValue(k); !ok || v != k {
			t.Fatalf("TryGetValue(%d) = (%d, %v)", k, v, ok)
		}
	}
}

func TestTable_Set(t *testing.T) {
	tb := New[string, int]()
	if err := tb.Set("a", 1); err != nil {
		t.Fatal(err)
	}
	if err := tb.Set("a", 2); err != nil {
		t.Fatal(err)
	}
	if v, _ := tb.TryGetValue("a"); v != 2 {
		t.Fatalf("TryGetValue(a) = %d, want 2", v)
	}
	if tb.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", tb.Count())
	}
}

func TestTable_SetCapacity(t *testing.T) {
	tb := New[int, int](WithCapacity(4))
	if tb.Capacity() != minCapacity {
		t.Fatalf("Capacity() = %d, want %d", tb.Capacity(), minCapacity)
	}
	for i := 0; i < 100; i++ {
		tb.Add(i, -i)
	}
	tb.Remove(50)

	if err := tb.SetCapacity(1000); err != nil {
		t.Fatal(err)
	}
	if tb.Capacity() != 1024 {
		t.Fatalf("Capacity() = %d, want 1024", tb.Capacity())
	}
	if err := tb.SetCapacity(99); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("SetCapacity(99) = %v, want ErrInvalidCapacity", err)
	}
	if err := tb.SetCapacity(100); err != nil {
		t.Fatal(err)
	}
	if tb.Capacity() != 128 {
		t.Fatalf("Capacity() = %d, want 128", tb.Capacity())
	}
	for i := 0; i < 100; i++ {
		v, ok := tb.TryGetValue(i)
		if i == 50 {
			if ok {
				t.Fatal("removed key 50 survived SetCapacity")
			}
			continue
		}
		if !ok || v != -i {
			t.Fatalf("TryGetValue(%d) = (%d, %v)", i, v, ok)
		}
	}
	// the free slot is still reusable after relinking
	if err := tb.Add(500, 500); err != nil {
		t.Fatal(err)
	}
	if tb.count != 100 || !tb.IsDense() {
		t.Fatalf("allocated = %d dense = %v, want 100 true", tb.count, tb.IsDense())
	}
}

func TestTable_Clear(t *testing.T) {
	tb := New[int, int]()
	for i := 0; i < 100; i++ {
		tb.Add(i, i)
	}
	capacity := tb.Capacity()
	tb.Clear()
	if tb.Count() != 0 || tb.Capacity() != capacity {
		t.Fatalf("Count() = %d Capacity() = %d", tb.Count(), tb.Capacity())
	}
	if len(reachableSlots(tb)) != 0 {
		t.Fatal("chains survived Clear")
	}
	if tb.ContainsKey(1) {
		t.Fatal("ContainsKey(1) after Clear")
	}
}

func TestTable_Growth(t *testing.T) {
	tb := New[int, int]()
	for i := 0; i < 1<<12; i++ {
		tb.Add(i, i)
	}
	if tb.Capacity() != 1<<12 {
		t.Fatalf("Capacity() = %d, want %d", tb.Capacity(), 1<<12)
	}
	if s := tb.Stats(); s.TotalGrowths != 8 {
		t.Fatalf("TotalGrowths = %d, want 8\n%s", s.TotalGrowths, s.ToString())
	}
}

func TestTable_Stats(t *testing.T) {
	tb := New[int, int](WithKeyHasher(func(k int, _ uintptr) uintptr {
		return uintptr(k % 4)
	}))
	for i := 0; i < 12; i++ {
		tb.Add(i, i)
	}
	tb.Remove(0)
	s := tb.Stats()
	if s.Count != 11 || s.Allocated != 12 || s.Free != 1 {
		t.Fatalf("unexpected stats:\n%s", s.ToString())
	}
	if s.UsedBuckets != 4 || s.MaxChain != 3 {
		t.Fatalf("unexpected chain stats:\n%s", s.ToString())
	}
}

func TestTable_WriteGuard(t *testing.T) {
	tb := New[int, int](WithChecks(true))
	tb.access.Store(accessWrite)

	defer func() {
		r := recover()
		if err, ok := r.(error); !ok || !errors.Is(err, ErrConcurrentAccess) {
			t.Fatalf("recover() = %v, want ErrConcurrentAccess", r)
		}
		if tb.access.Load() != accessWrite {
			t.Fatal("failed writer released the guard it did not own")
		}
	}()
	tb.Add(1, 1)
	t.Fatal("Add did not panic")
}

func TestTable_WithSeed(t *testing.T) {
	keys := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	a := New[string, int](WithSeed(42))
	b := New[string, int](WithSeed(42))
	for i, k := range keys {
		a.Add(k, i)
		b.Add(k, i)
	}
	for i := range a.buckets {
		if a.buckets[i] != b.buckets[i] {
			t.Fatalf("bucket %d differs with equal seeds", i)
		}
	}
}
