// Package aggregates holds the storage-free side of write aggregates: the
// error codes shared by services and handlers, and the contracts that the
// gorm implementations in internal/data/aggregates satisfy.
package aggregates
