// Package sqlite provides the SQLite-backed attendance store.
package sqlite
