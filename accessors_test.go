package chaintab

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int
}

func TestGetRef(t *testing.T) {
	tb := New[string, point]()
	require.NoError(t, tb.ClearAndLoad(
		[]string{"a", "b"},
		[]point{{1, 2}, {3, 4}},
	))

	ref, err := tb.GetRef("b")
	require.NoError(t, err)
	ref.X = 30
	v, ok := tb.TryGetValue("b")
	require.True(t, ok)
	require.Equal(t, point{30, 4}, v)

	ref, err = tb.GetRef("missing")
	require.Nil(t, ref)
	require.True(t, errors.Is(err, ErrKeyNotFound), "got %v", err)
}

func TestGetRef_ZeroTable(t *testing.T) {
	var tb Table[int, int]
	_, err := tb.GetRef(1)
	require.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestAnyKey(t *testing.T) {
	var tb Table[int, string]
	_, err := tb.AnyKey()
	require.True(t, errors.Is(err, ErrEmptyTable))

	require.NoError(t, tb.ClearAndLoad([]int{42}, []string{"x"}))
	k, err := tb.AnyKey()
	require.NoError(t, err)
	require.Equal(t, 42, k)

	tb.Remove(42)
	_, err = tb.AnyKey()
	require.True(t, errors.Is(err, ErrEmptyTable))
}

func TestAnyKey_Deterministic(t *testing.T) {
	keys, values := makeBatch(0, 300)
	tb := New[int, string]()
	require.NoError(t, tb.ClearAndLoad(keys, values))

	first, err := tb.AnyKey()
	require.NoError(t, err)
	require.True(t, tb.ContainsKey(first))
	for i := 0; i < 10; i++ {
		k, err := tb.AnyKey()
		require.NoError(t, err)
		require.Equal(t, first, k)
	}
}

func TestTryGetFirstEntry_VisitsAll(t *testing.T) {
	tb := New[int, string](WithKeyHasher(func(k int, _ uintptr) uintptr {
		return uintptr(k % 7)
	}))
	keys, values := makeBatch(0, 200)
	require.NoError(t, tb.ClearAndLoad(keys, values))
	for k := 0; k < 200; k += 5 {
		tb.Remove(k)
	}

	walk := func() []int {
		var got []int
		for k, v, c, ok := tb.TryGetFirstEntry(Cursor{}); ok; k, v, c, ok = tb.TryGetFirstEntry(c) {
			ref, err := tb.GetRef(k)
			require.NoError(t, err)
			require.Equal(t, *ref, v)
			got = append(got, k)
		}
		return got
	}

	got := walk()
	require.Len(t, got, tb.Count())
	require.Equal(t, got, walk())

	sorted := slices.Clone(got)
	slices.Sort(sorted)
	require.Len(t, slices.Compact(sorted), len(got), "entry visited twice")
	for _, k := range got {
		require.NotZero(t, k%5)
	}
}

func TestTryGetFirstEntry_Exhausted(t *testing.T) {
	tb := New[int, int]()
	tb.Add(1, 1)
	_, _, c, ok := tb.TryGetFirstEntry(Cursor{})
	require.True(t, ok)
	_, _, c, ok = tb.TryGetFirstEntry(c)
	require.False(t, ok)
	// an exhausted cursor stays exhausted
	_, _, _, ok = tb.TryGetFirstEntry(c)
	require.False(t, ok)
}

func TestIterators_EarlyStop(t *testing.T) {
	keys, values := makeBatch(0, 100)
	tb := New[int, string]()
	require.NoError(t, tb.ClearAndLoad(keys, values))

	n := 0
	for range tb.All() {
		n++
		if n == 10 {
			break
		}
	}
	require.Equal(t, 10, n)

	n = 0
	for k := range tb.Keys() {
		require.True(t, tb.ContainsKey(k))
		n++
		if n == 3 {
			break
		}
	}
	require.Equal(t, 3, n)

	var all []string
	for v := range tb.Values() {
		all = append(all, v)
	}
	require.Len(t, all, 100)
	require.ElementsMatch(t, values, all)
}

func TestToMap(t *testing.T) {
	tb := New[string, int]()
	want := map[string]int{"one": 1, "two": 2, "three": 3}
	for k, v := range want {
		require.NoError(t, tb.Add(k, v))
	}
	tb.Remove("two")
	delete(want, "two")
	require.Equal(t, want, tb.ToMap())
}
