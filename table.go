// Package chaintab provides an open-chained hash table laid out as parallel
// slices, together with bulk operations that rebuild its bucket chains
// directly from caller buffers instead of inserting one key at a time.
//
// Storage layout of Table[K, V]:
//
//	keys    [capacity]K      slot-indexed keys
//	values  [capacity]V      slot-indexed values, parallel to keys
//	buckets [capacity]int32  head slot of each bucket chain, or -1
//	next    [capacity]int32  next slot in the same chain, or -1
//
// A key lives in bucket hash(key) & (capacity-1); capacity is always a power
// of 2. Live entries occupy the allocated range [0, count). Slots past count
// hold stale data and are never reachable from a bucket.
//
// The bulk loaders (ClearAndLoad, Append) and the ParallelWriter trade safety
// checks for speed: keys must be unique and the table must not contain
// removed slots. Build with -tags chaintab_checks, run under -race, or pass
// WithChecks(true) to have those contracts validated.
package chaintab

import (
	"io"
	"math/rand/v2"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// emptySlot terminates a chain and marks an empty bucket.
	emptySlot int32 = -1

	// minCapacity is the smallest number of slots a table allocates.
	minCapacity = 16

	// MaxCapacity is the largest capacity addressable by int32 slot links.
	MaxCapacity = 1 << 30
)

// write-access guard states, only maintained when checks are enabled
const (
	accessIdle int32 = iota
	accessWrite
	accessParallel
)

// Table is an open-chained hash table over parallel key/value slices.
//
// The zero value is an empty table ready to use with default options.
// A Table is not safe for concurrent use, with one exception: batches may
// be appended from many goroutines through a ParallelWriter.
//
// A Table must not be copied after first use.
type Table[K comparable, V any] struct {
	_        noCopy
	keys     []K
	values   []V
	buckets  []int32
	next     []int32
	mask     int
	count    int   // allocated slot range [0, count)
	freeHead int32 // removed slots, chained through next
	freeLen  int
	growths  uint32
	seed     uintptr
	keyHash  HashFunc           // WithKeyHasher
	checks   bool               // WithChecks
	log      logrus.FieldLogger // WithLogger
	access   atomic.Int32
}

// Config defines configurable Table options.
type Config struct {
	capacity int
	keyHash  HashFunc
	seed     uintptr
	hasSeed  bool
	checks   bool
	logger   logrus.FieldLogger
}

// WithCapacity configures the initial number of slots. The value is rounded
// up to a power of 2; zero or negative values are ignored.
func WithCapacity(capacity int) func(*Config) {
	return func(c *Config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithKeyHasher sets a custom key hash function. K must match the key type of
// the table the option is passed to.
func WithKeyHasher[K comparable](keyHash func(key K, seed uintptr) uintptr) func(*Config) {
	return func(c *Config) {
		if keyHash == nil {
			c.keyHash = nil
			return
		}
		c.keyHash = func(ptr unsafe.Pointer, seed uintptr) uintptr {
			return keyHash(*(*K)(ptr), seed)
		}
	}
}

// WithKeyHasherUnsafe sets a custom key hash function operating on a pointer
// to the key.
func WithKeyHasherUnsafe(keyHash HashFunc) func(*Config) {
	return func(c *Config) {
		c.keyHash = keyHash
	}
}

// WithSeed fixes the hash seed instead of drawing a random one.
func WithSeed(seed uintptr) func(*Config) {
	return func(c *Config) {
		c.seed = seed
		c.hasSeed = true
	}
}

// WithChecks enables or disables validation of caller contracts for this
// table: duplicate keys in bulk loads, bulk appends to a table with removed
// slots, and overlapping writer access. The default depends on build tags.
func WithChecks(enabled bool) func(*Config) {
	return func(c *Config) {
		c.checks = enabled
	}
}

// WithLogger routes the table's diagnostics to logger. By default they are
// discarded.
func WithLogger(logger logrus.FieldLogger) func(*Config) {
	return func(c *Config) {
		c.logger = logger
	}
}

var discardLogger = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

// New creates a Table configured by options.
func New[K comparable, V any](options ...func(*Config)) *Table[K, V] {
	t := &Table[K, V]{}
	t.Init(options...)
	return t
}

// Init (re)initializes the table with options, dropping any content.
//
// Notes:
//   - This function is not thread-safe.
//   - If it is not called, the table initializes itself with defaults on
//     first write.
func (t *Table[K, V]) Init(options ...func(*Config)) {
	c := Config{
		capacity: minCapacity,
		checks:   enableChecks,
	}
	for _, o := range options {
		o(&c)
	}

	if c.hasSeed {
		t.seed = c.seed
	} else {
		t.seed = uintptr(rand.Uint64())
	}
	t.keyHash = c.keyHash
	if t.keyHash == nil {
		t.keyHash = defaultHasher[K]()
	}
	t.checks = c.checks
	t.log = c.logger
	if t.log == nil {
		t.log = discardLogger
	}

	t.count = 0
	t.freeHead = emptySlot
	t.freeLen = 0
	t.growths = 0
	t.alloc(calcCapacity(min(c.capacity, MaxCapacity)))
}

func (t *Table[K, V]) lazyInit() {
	if t.keyHash == nil {
		t.Init()
	}
}

// alloc replaces the backing slices with empty ones of the given capacity.
func (t *Table[K, V]) alloc(capacity int) {
	t.keys = make([]K, capacity)
	t.values = make([]V, capacity)
	t.next = make([]int32, capacity)
	t.buckets = make([]int32, capacity)
	fillEmpty(t.buckets)
	t.mask = capacity - 1
}

func fillEmpty(s []int32) {
	for i := range s {
		s[i] = emptySlot
	}
}

// Capacity returns the number of allocated slots.
func (t *Table[K, V]) Capacity() int {
	return len(t.keys)
}

// SetCapacity reallocates the backing slices to hold at least capacity slots,
// preserving every entry. It fails with ErrInvalidCapacity if capacity is
// below the allocated slot range or above MaxCapacity.
func (t *Table[K, V]) SetCapacity(capacity int) error {
	t.lazyInit()
	t.beginWrite()
	defer t.endWrite()

	if capacity < t.count || capacity > MaxCapacity {
		return errors.Wrapf(ErrInvalidCapacity,
			"capacity %d (allocated %d, max %d)", capacity, t.count, MaxCapacity)
	}
	if newCap := calcCapacity(capacity); newCap != len(t.keys) {
		t.resize(newCap)
	}
	return nil
}

// Count returns the number of live entries.
func (t *Table[K, V]) Count() int {
	return t.count - t.freeLen
}

// IsDense reports whether every allocated slot is live, which is required
// by Append and ParallelWriter.
func (t *Table[K, V]) IsDense() bool {
	return t.freeLen == 0
}

// ensureCapacity grows the table so that n slots fit. It never shrinks.
func (t *Table[K, V]) ensureCapacity(n int) error {
	if n <= len(t.keys) {
		return nil
	}
	if n > MaxCapacity {
		return errors.Wrapf(ErrInvalidCapacity, "need %d slots, max %d", n, MaxCapacity)
	}
	t.resize(calcCapacity(n))
	return nil
}

// resize moves slots [0, count) into fresh slices and relinks every chain.
func (t *Table[K, V]) resize(capacity int) {
	oldCap := len(t.keys)
	oldKeys, oldValues, oldNext := t.keys, t.values, t.next
	t.alloc(capacity)
	copy(t.keys, oldKeys[:t.count])
	copy(t.values, oldValues[:t.count])
	// keeps the free list intact
	copy(t.next, oldNext[:t.count])
	t.rebuildChains()
	if capacity > oldCap {
		t.growths++
	}

	t.log.WithFields(logrus.Fields{
		"old":   oldCap,
		"new":   capacity,
		"count": t.count,
	}).Debug("chaintab: capacity changed")
}

// rebuildChains empties every bucket and links each live slot of [0, count)
// in ascending order, so the highest slot of a duplicated key ends up first.
func (t *Table[K, V]) rebuildChains() {
	fillEmpty(t.buckets)
	var free []bool
	if t.freeLen != 0 {
		free = make([]bool, t.count)
		for i := t.freeHead; i != emptySlot; i = t.next[i] {
			free[i] = true
		}
	}
	for i := 0; i < t.count; i++ {
		if free != nil && free[i] {
			continue
		}
		t.linkHead(int32(i))
	}
}

//go:nosplit
func (t *Table[K, V]) bucketFor(key *K) int {
	return int(t.keyHash(noescape(unsafe.Pointer(key)), t.seed) & uintptr(t.mask))
}

// linkHead pushes slot onto the front of its bucket chain. Single writer only.
func (t *Table[K, V]) linkHead(slot int32) {
	b := t.bucketFor(&t.keys[slot])
	t.next[slot] = t.buckets[b]
	t.buckets[b] = slot
}

// findSlot walks the chain of key's bucket and returns the first matching
// slot, or emptySlot.
func (t *Table[K, V]) findSlot(key *K) int32 {
	if len(t.buckets) == 0 {
		return emptySlot
	}
	for i := t.buckets[t.bucketFor(key)]; i != emptySlot; i = t.next[i] {
		if t.keys[i] == *key {
			return i
		}
	}
	return emptySlot
}

// Add inserts a new entry. It fails with ErrKeyExists if key is present.
func (t *Table[K, V]) Add(key K, value V) error {
	t.lazyInit()
	t.beginWrite()
	defer t.endWrite()

	if t.findSlot(&key) != emptySlot {
		return errors.Wrapf(ErrKeyExists, "key %v", key)
	}
	return t.insert(key, value)
}

// TryAdd inserts a new entry and reports whether it was added.
func (t *Table[K, V]) TryAdd(key K, value V) bool {
	return t.Add(key, value) == nil
}

// Set stores value for key, inserting the key if needed.
func (t *Table[K, V]) Set(key K, value V) error {
	t.lazyInit()
	t.beginWrite()
	defer t.endWrite()

	if i := t.findSlot(&key); i != emptySlot {
		t.values[i] = value
		return nil
	}
	return t.insert(key, value)
}

// insert places a new entry in a recycled slot if one is available,
// otherwise at slot count, growing by doubling when full.
func (t *Table[K, V]) insert(key K, value V) error {
	var slot int32
	if t.freeHead != emptySlot {
		slot = t.freeHead
		t.freeHead = t.next[slot]
		t.freeLen--
	} else {
		if err := t.ensureCapacity(t.count + 1); err != nil {
			return err
		}
		slot = int32(t.count)
		t.count++
	}
	t.keys[slot] = key
	t.values[slot] = value
	t.linkHead(slot)
	return nil
}

// TryGetValue returns the value stored for key.
func (t *Table[K, V]) TryGetValue(key K) (value V, ok bool) {
	t.checkRead()
	if i := t.findSlot(&key); i != emptySlot {
		return t.values[i], true
	}
	return
}

// ContainsKey reports whether key is present.
func (t *Table[K, V]) ContainsKey(key K) bool {
	t.checkRead()
	return t.findSlot(&key) != emptySlot
}

// Remove deletes key and reports whether it was present.
//
// The freed slot is kept for reuse by Add, so until it is reused the table
// is no longer dense and must not receive bulk appends.
func (t *Table[K, V]) Remove(key K) bool {
	if len(t.buckets) == 0 {
		return false
	}
	t.beginWrite()
	defer t.endWrite()

	b := t.bucketFor(&key)
	prev := emptySlot
	for i := t.buckets[b]; i != emptySlot; prev, i = i, t.next[i] {
		if t.keys[i] != key {
			continue
		}
		if prev == emptySlot {
			t.buckets[b] = t.next[i]
		} else {
			t.next[prev] = t.next[i]
		}
		t.keys[i] = *new(K)
		t.values[i] = *new(V)
		t.next[i] = t.freeHead
		t.freeHead = i
		t.freeLen++
		return true
	}
	return false
}

// Clear removes every entry, keeping the capacity.
func (t *Table[K, V]) Clear() {
	if len(t.buckets) == 0 {
		return
	}
	t.beginWrite()
	defer t.endWrite()

	clear(t.keys[:t.count])
	clear(t.values[:t.count])
	fillEmpty(t.buckets)
	t.count = 0
	t.freeHead = emptySlot
	t.freeLen = 0
}

func (t *Table[K, V]) beginWrite() {
	if t.checks && !t.access.CompareAndSwap(accessIdle, accessWrite) {
		panic(ErrConcurrentAccess)
	}
}

func (t *Table[K, V]) endWrite() {
	if t.checks {
		t.access.Store(accessIdle)
	}
}

func (t *Table[K, V]) checkRead() {
	if t.checks && t.access.Load() != accessIdle {
		panic(ErrConcurrentAccess)
	}
}

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
//
//nolint:unused
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
