// Package storage defines the run store used by the record and queue modes.
// Backends (see pkg/storage/postgres) implement these interfaces and handle
// transactions so that a run and its queue job are written atomically.
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import "context"

// AllStorage groups every capability usable both inside and outside a
// transaction.
type AllStorage interface {
	RunStorage
	JobStorage
}

// TxStorage is a storage handle bound to an open transaction. It becomes
// unusable after Commit or Rollback.
type TxStorage interface {
	AllStorage

	// Commit persists every change made through this handle.
	Commit() error
	// Rollback discards every change made through this handle.
	Rollback() error
}

// Storage is the root, non-transactional storage handle.
type Storage interface {
	AllStorage

	// Close releases the underlying connection pool.
	Close() error

	// Begin opens a transaction.
	Begin(ctx context.Context) (TxStorage, error)
	// WithTx runs cb inside a transaction that is committed when cb returns
	// nil and rolled back otherwise.
	WithTx(ctx context.Context, cb func(storage AllStorage) error) error
}
