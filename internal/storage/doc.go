// Package storage persists family members and the notification log.
//
// Drivers:
//   - file: two JSON arrays in a data directory (default)
//   - sqlite: modernc.org/sqlite, embedded schema
//   - badger: embedded key-value store, optionally in memory
//   - postgres: pgx through database/sql
//
// All drivers return ErrNotFound for unknown member ids and ErrDuplicate when
// a member id or notification key already exists.
package storage
