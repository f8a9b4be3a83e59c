//go:build !chaintab_checks && !race

package chaintab

// enableChecks is the default for WithChecks.
//   - false: bulk paths trust the caller (unique keys, dense table, exclusive
//     access) and pay nothing for it.
//   - true: see opt_checks_on.go.
//
// Build with -tags chaintab_checks (or -race) to flip the default.
const enableChecks = false
