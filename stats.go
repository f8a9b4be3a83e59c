package chaintab

import (
	"fmt"
	"strings"
)

// TableStats is Table statistics.
//
// Warning: map statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type TableStats struct {
	// Capacity is the number of allocated slots, which is also the number
	// of buckets.
	Capacity int
	// Allocated is the slot range [0, Allocated) handed out so far.
	Allocated int
	// Count is the number of live entries.
	Count int
	// Free is the number of removed slots waiting for reuse.
	Free int
	// UsedBuckets is the number of buckets with at least one entry.
	UsedBuckets int
	// MaxChain is the length of the longest bucket chain.
	MaxChain int
	// AvgChain is the mean chain length over used buckets.
	AvgChain float64
	// TotalGrowths is the number of times the slices were reallocated to a
	// larger capacity.
	TotalGrowths uint32
}

// Stats walks every bucket chain and returns statistics for the table.
// It is not safe to call while the table is being written.
func (t *Table[K, V]) Stats() *TableStats {
	t.checkRead()
	s := &TableStats{
		Capacity:  len(t.keys),
		Allocated: t.count,
		Count:     t.Count(),
		Free:      t.freeLen,

		TotalGrowths: t.growths,
	}
	linked := 0
	for _, head := range t.buckets {
		n := 0
		for i := head; i != emptySlot; i = t.next[i] {
			n++
		}
		if n == 0 {
			continue
		}
		s.UsedBuckets++
		linked += n
		s.MaxChain = max(s.MaxChain, n)
	}
	if s.UsedBuckets != 0 {
		s.AvgChain = float64(linked) / float64(s.UsedBuckets)
	}
	return s
}

// ToString returns string representation of table stats.
func (s *TableStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("TableStats{\n")
	sb.WriteString(fmt.Sprintf("Capacity:    %d\n", s.Capacity))
	sb.WriteString(fmt.Sprintf("Allocated:   %d\n", s.Allocated))
	sb.WriteString(fmt.Sprintf("Count:       %d\n", s.Count))
	sb.WriteString(fmt.Sprintf("Free:        %d\n", s.Free))
	sb.WriteString(fmt.Sprintf("UsedBuckets: %d\n", s.UsedBuckets))
	sb.WriteString(fmt.Sprintf("MaxChain:    %d\n", s.MaxChain))
	sb.WriteString(fmt.Sprintf("AvgChain:    %.2f\n", s.AvgChain))
	sb.WriteString(fmt.Sprintf("TotalGrowths: %d\n", s.TotalGrowths))
	sb.WriteString("}\n")
	return sb.String()
}
