// Package aggregates implements the write-side aggregates over the gorm
// repos in internal/data/repos.
//
// Each aggregate runs its writes through one TxRunner transaction, maps
// storage errors to domain codes with MapError and reports every write to
// Hooks.
package aggregates
