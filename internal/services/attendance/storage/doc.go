// Package storage defines persistence contracts for the attendance service.
//
// The event ledger is append-only. Challenges are unique per employee,
// project, calendar date and slot; that constraint is the only
// synchronization between concurrent schedulers.
package storage
