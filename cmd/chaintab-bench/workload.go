package main

import (
	"math/rand/v2"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/llxisdsh/chaintab"
)

// newTable creates a table configured from the global flags.
func newTable() *chaintab.Table[int, int] {
	return chaintab.New[int, int](
		chaintab.WithSeed(uintptr(globalOptions.Seed)),
		chaintab.WithChecks(globalOptions.Checks),
		chaintab.WithLogger(log.StandardLogger()),
	)
}

// makeKeys returns n distinct keys starting at from, shuffled, with values
// equal to their keys.
func makeKeys(from, n int) ([]int, []int) {
	keys := make([]int, n)
	for i := range keys {
		keys[i] = from + i
	}
	r := rand.New(rand.NewPCG(globalOptions.Seed, uint64(from)))
	r.Shuffle(n, func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	values := make([]int, n)
	copy(values, keys)
	return keys, values
}

// splitBatches cuts keys and values into batches of at most size entries.
func splitBatches(keys, values []int, size int) ([][]int, [][]int) {
	var kb, vb [][]int
	for len(keys) > 0 {
		n := min(size, len(keys))
		kb = append(kb, keys[:n])
		vb = append(vb, values[:n])
		keys, values = keys[n:], values[n:]
	}
	return kb, vb
}

// addAll inserts keys one at a time, the baseline for every bulk path.
func addAll(t *chaintab.Table[int, int], keys, values []int) error {
	for i, k := range keys {
		if err := t.Add(k, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// timed runs fn and logs its duration and throughput under name.
func timed(name string, n int, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		return err
	}
	elapsed := time.Since(start)
	fields := log.Fields{
		"entries": n,
		"elapsed": elapsed,
	}
	if elapsed > 0 {
		fields["entries_per_sec"] = int64(float64(n) / elapsed.Seconds())
	}
	log.WithFields(fields).Info(name)
	return nil
}

// report logs the chain statistics of t.
func report(t *chaintab.Table[int, int]) {
	log.Debugf("table stats:\n%s", t.Stats().ToString())
}
