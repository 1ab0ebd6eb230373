/*
storage.go - Persistence collaborator interface

PURPOSE:
  The engine operates on in-memory snapshots; persistence lives behind
  this interface. Collections move whole: the store supplies the full
  employee collection on demand and accepts a full replacement - the
  engine never addresses individual employees within a store. Leave
  records are upserted individually, matching how the submission and
  approval flows touch them.

IMPLEMENTATIONS:
  - store/sqlite:  Production SQLite store
  - yukyu/store:   In-memory store for tests and dev
*/
package yukyu

import "context"

// Store is the persistence collaborator.
type Store interface {
	// LoadEmployees returns the full employee collection.
	LoadEmployees(ctx context.Context) ([]Employee, error)

	// ReplaceEmployees stores a full replacement collection.
	ReplaceEmployees(ctx context.Context, employees []Employee) error

	// LoadRecords returns all leave records.
	LoadRecords(ctx context.Context) ([]LeaveRecord, error)

	// LoadRecord returns one leave record, or ErrRecordNotFound.
	LoadRecord(ctx context.Context, id string) (LeaveRecord, error)

	// SaveRecord upserts one leave record by id.
	SaveRecord(ctx context.Context, rec LeaveRecord) error
}
