package chaintab

import (
	"hash/maphash"
	"math/bits"
	"unsafe"

	"github.com/dchest/siphash"
)

// HashFunc is the unsafe form of a key hasher: it receives a pointer to the
// key and the table seed.
type HashFunc func(ptr unsafe.Pointer, seed uintptr) uintptr

// seedMix derives the second siphash key from the table seed.
// 0x9E3779B185EBCA87 is the 64-bit golden ratio constant.
const seedMix uint64 = 0x9E3779B185EBCA87

// defaultHasher picks a hasher for K.
//
// Integer keys hash to themselves: the bucket index is hash & mask, so
// dense integer key ranges spread over every bucket without collisions.
// Strings use siphash keyed by the table seed. Every other comparable type
// falls back to hash/maphash.
func defaultHasher[K comparable]() HashFunc {
	switch any(*new(K)).(type) {
	case uint, int, uintptr:
		return func(ptr unsafe.Pointer, _ uintptr) uintptr {
			return *(*uintptr)(ptr)
		}

	case uint64, int64:
		if bits.UintSize == 32 {
			return func(ptr unsafe.Pointer, _ uintptr) uintptr {
				v := *(*uint64)(ptr)
				return uintptr(v) ^ uintptr(v>>32)
			}
		}
		return func(ptr unsafe.Pointer, _ uintptr) uintptr {
			return uintptr(*(*uint64)(ptr))
		}

	case uint32, int32:
		return func(ptr unsafe.Pointer, _ uintptr) uintptr {
			return uintptr(*(*uint32)(ptr))
		}

	case uint16, int16:
		return func(ptr unsafe.Pointer, _ uintptr) uintptr {
			return uintptr(*(*uint16)(ptr))
		}

	case uint8, int8:
		return func(ptr unsafe.Pointer, _ uintptr) uintptr {
			return uintptr(*(*uint8)(ptr))
		}

	case string:
		return hashString

	default:
		ms := maphash.MakeSeed()
		return func(ptr unsafe.Pointer, _ uintptr) uintptr {
			return uintptr(maphash.Comparable(ms, *(*K)(ptr)))
		}
	}
}

func hashString(ptr unsafe.Pointer, seed uintptr) uintptr {
	s := *(*string)(ptr)
	b := unsafe.Slice(unsafe.StringData(s), len(s))
	return uintptr(siphash.Hash(uint64(seed), uint64(seed)^seedMix, b))
}

// SipHasher returns a siphash-based hasher for byte-string-like keys,
// suitable for WithKeyHasher when keys come from untrusted input.
func SipHasher[K ~string]() func(key K, seed uintptr) uintptr {
	return func(key K, seed uintptr) uintptr {
		s := string(key)
		return hashString(noescape(unsafe.Pointer(&s)), seed)
	}
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
// Compatible with both 32-bit and 64-bit systems.
func nextPowOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// calcCapacity rounds a requested slot count up to a valid table capacity.
// The return value is always a power of 2 and at least minCapacity.
func calcCapacity(n int) int {
	if n <= minCapacity {
		return minCapacity
	}
	return nextPowOf2(n)
}

// noescape hides a pointer from escape analysis.  noescape is
// the identity function but escape analysis doesn't think the
// output depends on the input.  noescape is inlined and currently
// compiles down to zero instructions.
// USE CAREFULLY!
//
// nolint:all
//
//go:nosplit
//goland:noinspection ALL
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
