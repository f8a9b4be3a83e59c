//go:build chaintab_checks || race

package chaintab

// enableChecks is the default for WithChecks. In this configuration every
// table validates bulk inputs for duplicate keys, refuses appends to a table
// with removed slots, and panics on overlapping writer access.
const enableChecks = true
