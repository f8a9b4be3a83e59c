package chaintab

import "github.com/pkg/errors"

var (
	// ErrArgumentMismatch is returned when a key buffer and a value buffer
	// disagree on length. The table is left unmodified.
	ErrArgumentMismatch = errors.New("chaintab: key/value length mismatch")

	// ErrKeyNotFound is returned by GetRef when no live slot holds the key.
	ErrKeyNotFound = errors.New("chaintab: key not found")

	// ErrEmptyTable is returned by AnyKey on a table without entries.
	ErrEmptyTable = errors.New("chaintab: table is empty")

	// ErrPreconditionViolation reports a broken caller contract: duplicate
	// keys in a bulk load, or a bulk append on a table with removed slots.
	// It is only ever returned when checks are enabled.
	ErrPreconditionViolation = errors.New("chaintab: precondition violation")

	// ErrCapacityExceeded is returned by ParallelWriter.Append when a
	// reservation runs past the capacity fixed when the writer was created.
	ErrCapacityExceeded = errors.New("chaintab: reserved capacity exceeded")

	// ErrKeyExists is returned by Add when the key is already present.
	ErrKeyExists = errors.New("chaintab: key already exists")

	// ErrInvalidCapacity is returned by SetCapacity for a capacity below the
	// allocated slot range or above MaxCapacity.
	ErrInvalidCapacity = errors.New("chaintab: invalid capacity")

	// ErrConcurrentAccess is the panic value raised by the write-access guard
	// when checks are enabled and two writers overlap.
	ErrConcurrentAccess = errors.New("chaintab: concurrent access to table")
)
